package device

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

// MockRepository stores devices as JSON, like the document store does.
type MockRepository struct {
	mu      sync.Mutex
	docs    map[string][]byte
	saveErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{docs: make(map[string][]byte)}
}

func (m *MockRepository) FindAll(_ context.Context) ([]*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Device, 0, len(m.docs))
	for _, data := range m.docs {
		var d *Device
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *MockRepository) Save(_ context.Context, id string, d *Device) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = data
	return nil
}

func (m *MockRepository) DeleteByID(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	delete(m.docs, id)
	return ok, nil
}

func (m *MockRepository) stored(t *testing.T, id string) *Device {
	t.Helper()
	m.mu.Lock()
	data, ok := m.docs[id]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("device %s not persisted", id)
	}
	var d Device
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("decoding %s: %v", id, err)
	}
	return &d
}

func setupRegistry(t *testing.T) (*Registry, *MockRepository) {
	t.Helper()
	repo := NewMockRepository()
	return NewRegistry(repo), repo
}

func mustDevice(t *testing.T, id string, kind Kind, module string) *Device {
	t.Helper()
	d, err := New(id, "Device "+id, kind, module)
	if err != nil {
		t.Fatalf("New(%s) error = %v", id, err)
	}
	return d
}

// ─── Tests ─────────────────────────────────────────────────────────

func TestRegistry_SaveAndGet(t *testing.T) {
	reg, repo := setupRegistry(t)
	ctx := context.Background()

	live, err := reg.Save(ctx, mustDevice(t, "d1", KindLight, "hue"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok := reg.Get("d1")
	if !ok || got != live {
		t.Fatal("Get() should return the live device")
	}
	if repo.stored(t, "d1").Kind != KindLight {
		t.Error("persisted kind mismatch")
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}

func TestRegistry_SaveExistingKeepsListeners(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	live, err := reg.Save(ctx, mustDevice(t, "d1", KindLight, "hue"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	live.AddListener(Listener{Key: "a1", Event: "onOn", Callback: func(any) {}})

	renamed := mustDevice(t, "d1", KindLight, "hue")
	renamed.Name = "Renamed"
	got, err := reg.Save(ctx, renamed)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got != live {
		t.Error("Save() should update the live object in place")
	}
	if live.Name != "Renamed" {
		t.Errorf("Name = %q, want Renamed", live.Name)
	}
	if live.ListenerCount("onOn") != 1 {
		t.Error("listeners should survive an update")
	}
}

func TestRegistry_SaveInvalid(t *testing.T) {
	reg, _ := setupRegistry(t)

	_, err := reg.Save(context.Background(), &Device{ID: "x", Name: "x", Kind: "toaster"})
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("Save() error = %v, want ErrInvalidKind", err)
	}
	if reg.Count() != 0 {
		t.Error("invalid device must not be registered")
	}
}

func TestRegistry_SaveRepoError(t *testing.T) {
	reg, repo := setupRegistry(t)
	repo.saveErr = errors.New("disk full")

	if _, err := reg.Save(context.Background(), mustDevice(t, "d1", KindLight, "")); err == nil {
		t.Error("Save() should surface repository errors")
	}
}

func TestRegistry_LoadAttachesExecutor(t *testing.T) {
	reg, repo := setupRegistry(t)
	ctx := context.Background()

	for _, d := range []*Device{
		mustDevice(t, "d1", KindLight, "hue"),
		mustDevice(t, "d2", KindMotion, "zigbee"),
	} {
		if err := repo.Save(ctx, d.ID, d); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	exec := &mockExecutor{}
	reg.SetExecutor(exec)
	if err := reg.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", reg.Count())
	}

	d1, _ := reg.Get("d1")
	if err := d1.InvokeCommand("setOn"); err != nil {
		t.Fatalf("InvokeCommand() error = %v", err)
	}
	if len(exec.commands()) != 1 {
		t.Error("loaded devices should use the registry executor")
	}
}

func TestRegistry_ByModuleAndList(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	err := reg.SaveAll(ctx, []*Device{
		mustDevice(t, "c", KindLight, "hue"),
		mustDevice(t, "a", KindLight, "hue"),
		mustDevice(t, "b", KindTemperature, "zigbee"),
	})
	if err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	all := reg.List()
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Errorf("List() not sorted by id: %v", ids(all))
	}

	hue := reg.ByModule("hue")
	if len(hue) != 2 || hue[0].ID != "a" || hue[1].ID != "c" {
		t.Errorf("ByModule(hue) = %v", ids(hue))
	}
}

func TestRegistry_Delete(t *testing.T) {
	reg, repo := setupRegistry(t)
	ctx := context.Background()

	live, _ := reg.Save(ctx, mustDevice(t, "d1", KindLight, ""))
	live.AddListener(Listener{Key: "a1", Event: "onOn", Callback: func(any) {}})

	if err := reg.Delete(ctx, "d1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := reg.Get("d1"); ok {
		t.Error("device should be gone")
	}
	if live.ListenerCount("") != 0 {
		t.Error("listeners should be removed on delete")
	}
	if len(repo.docs) != 0 {
		t.Error("device should be deleted from storage")
	}
	if err := reg.Delete(ctx, "d1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Delete() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_RemoveRoomFromDevices(t *testing.T) {
	reg, repo := setupRegistry(t)
	ctx := context.Background()

	for id, room := range map[string]string{"d1": "kitchen", "d2": "kitchen", "d3": "hall"} {
		d := mustDevice(t, id, KindLight, "")
		d.Room = room
		if _, err := reg.Save(ctx, d); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	n, err := reg.RemoveRoomFromDevices(ctx, "kitchen")
	if err != nil {
		t.Fatalf("RemoveRoomFromDevices() error = %v", err)
	}
	if n != 2 {
		t.Errorf("updated = %d, want 2", n)
	}
	if repo.stored(t, "d1").Room != "" || repo.stored(t, "d3").Room != "hall" {
		t.Error("only kitchen devices should lose their room")
	}
}

func TestRegistry_Persist(t *testing.T) {
	reg, repo := setupRegistry(t)
	ctx := context.Background()

	live, _ := reg.Save(ctx, mustDevice(t, "d1", KindLightDimmer, ""))
	live.SetState("brightness", 75)

	if err := reg.Persist(ctx, "d1"); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if b, _ := repo.stored(t, "d1").State().Float("brightness"); b != 75 {
		t.Errorf("persisted brightness = %v, want 75", b)
	}
	if err := reg.Persist(ctx, "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Persist(missing) error = %v", err)
	}
}

func ids(ds []*Device) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}
