package automation

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nerrad567/gray-logic-automation/internal/device"
	"github.com/nerrad567/gray-logic-automation/internal/workerpool"
	"github.com/nerrad567/gray-logic-automation/internal/workflow"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// memStore is an in-memory document store that encodes with JSON like the
// real one, so tests see the same copy semantics.
type memStore[T any] struct {
	mu      sync.Mutex
	docs    map[string][]byte
	saveErr error
	saves   int
}

func newMemStore[T any]() *memStore[T] {
	return &memStore[T]{docs: make(map[string][]byte)}
}

func (m *memStore[T]) Save(_ context.Context, id string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.docs[id] = data
	m.saves++
	return nil
}

func (m *memStore[T]) FindAll(_ context.Context) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		var v T
		if err := json.Unmarshal(m.docs[id], &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *memStore[T]) DeleteByID(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	delete(m.docs, id)
	return ok, nil
}

func (m *memStore[T]) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

func (m *memStore[T]) failSaves(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

// mockDevices is a fixed device set.
type mockDevices struct {
	devices map[string]*device.Device
}

func newMockDevices(t *testing.T, devices ...*device.Device) *mockDevices {
	t.Helper()
	m := &mockDevices{devices: make(map[string]*device.Device)}
	for _, d := range devices {
		m.devices[d.ID] = d
	}
	return m
}

func (m *mockDevices) Get(id string) (*device.Device, bool) {
	d, ok := m.devices[id]
	return d, ok
}

func (m *mockDevices) ByModule(moduleID string) []*device.Device {
	var out []*device.Device
	for _, d := range m.devices {
		if d.ModuleID == moduleID {
			out = append(out, d)
		}
	}
	return out
}

// eventRecorder collects registry events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) HandleEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) count(typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(typ EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == typ {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// ─── Fixtures ───────────────────────────────────────────────────────────────

// testStart is a Friday.
var testStart = time.Date(2026, 10, 16, 6, 59, 0, 0, time.UTC)

type fixture struct {
	reg     *Registry
	clock   *clockwork.FakeClock
	actions *memStore[*Action]
	scenes  *memStore[*Scene]
	devices *mockDevices
	events  *eventRecorder
	light   *device.Device
	motion  *device.Device
}

type fixtureOption func(*Deps)

func withSeed() fixtureOption {
	return func(d *Deps) { d.SeedStandardScenes = true }
}

func withPoolSize(n int) fixtureOption {
	return func(d *Deps) { d.Pool = workerpool.New(n) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		clock:   clockwork.NewFakeClockAt(testStart),
		actions: newMemStore[*Action](),
		scenes:  newMemStore[*Scene](),
		events:  &eventRecorder{},
		light:   mustDevice(t, "light-1", "Kitchen Light", device.KindLight, "mod-a"),
		motion:  mustDevice(t, "motion-1", "Hall Motion", device.KindMotion, "mod-a"),
	}
	f.devices = newMockDevices(t, f.light, f.motion)

	deps := Deps{
		Actions:     f.actions,
		Scenes:      f.scenes,
		Devices:     f.devices,
		Interpreter: workflow.New(workflow.WithClock(f.clock)),
		Location:    time.UTC,
	}
	for _, o := range opts {
		o(&deps)
	}

	reg, err := NewRegistry(deps)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	reg.AddSink(f.events)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})
	f.reg = reg
	return f
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	if err := f.reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func mustDevice(t *testing.T, id, name string, kind device.Kind, module string) *device.Device {
	t.Helper()
	d, err := device.New(id, name, kind, module)
	if err != nil {
		t.Fatalf("device.New(%s) error = %v", id, err)
	}
	return d
}

// ─── Workflow builders ──────────────────────────────────────────────────────

func manualTrigger(next ...string) workflow.Node {
	return workflow.Node{
		NodeID:        "trigger",
		Type:          workflow.NodeTrigger,
		TriggerConfig: &workflow.TriggerConfig{Type: workflow.TriggerManual},
		NextNodes:     next,
	}
}

func deviceTrigger(deviceID, event string, next ...string) workflow.Node {
	return workflow.Node{
		NodeID: "trigger",
		Type:   workflow.NodeTrigger,
		TriggerConfig: &workflow.TriggerConfig{
			Type:   workflow.TriggerDevice,
			Device: &workflow.DeviceTrigger{DeviceID: deviceID, Event: event},
		},
		NextNodes: next,
	}
}

func timeTrigger(freq, hhmm string, next ...string) workflow.Node {
	return workflow.Node{
		NodeID: "trigger",
		Type:   workflow.NodeTrigger,
		TriggerConfig: &workflow.TriggerConfig{
			Type: workflow.TriggerTime,
			Time: &workflow.TimeTrigger{Frequency: freq, Time: hhmm},
		},
		NextNodes: next,
	}
}

func commandNode(id, deviceID, command string, next ...string) workflow.Node {
	return workflow.Node{
		NodeID:       id,
		Type:         workflow.NodeAction,
		ActionConfig: &workflow.ActionConfig{Type: workflow.ActionTargetDevice, DeviceID: deviceID, Action: command},
		NextNodes:    next,
	}
}

func sleepNode(id string, seconds int, next ...string) workflow.Node {
	return workflow.Node{
		NodeID:     id,
		Type:       workflow.NodeWait,
		WaitConfig: &workflow.WaitConfig{Type: workflow.WaitTime, WaitTime: seconds},
		NextNodes:  next,
	}
}

func newAction(id, triggerType string, nodes ...workflow.Node) *Action {
	return &Action{
		ActionID:    id,
		Name:        id,
		TriggerType: triggerType,
		Workflow:    workflow.Workflow{Nodes: nodes},
	}
}

// ─── Waiting ────────────────────────────────────────────────────────────────

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func blockUntil(t *testing.T, clock *clockwork.FakeClock, waiters int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, waiters); err != nil {
		t.Fatalf("clock waiters: %v", err)
	}
}

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
