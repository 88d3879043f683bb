package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry holds the live device objects.
//
// Unlike a read cache it hands out the shared *Device: listeners registered
// by the automation engine live on these objects, so saving an existing id
// updates the object in place instead of replacing it.
//
// All methods are safe for concurrent use.
type Registry struct {
	repo     Repository
	mu       sync.RWMutex
	devices  map[string]*Device
	executor Executor
	logger   Logger
}

// NewRegistry creates an empty registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:    repo,
		devices: make(map[string]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry and its devices.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
	for _, d := range r.devices {
		d.SetLogger(logger)
	}
}

// SetExecutor attaches the hardware executor to every current and future device.
func (r *Registry) SetExecutor(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executor = e
	for _, d := range r.devices {
		d.SetExecutor(e)
	}
}

// Load replaces the in-memory set with the persisted devices.
// Devices of unknown kinds are kept but have an empty surface.
func (r *Registry) Load(ctx context.Context) error {
	devices, err := r.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]*Device, len(devices))
	for _, d := range devices {
		if d == nil || d.ID == "" {
			continue
		}
		if d.Catalog() == nil {
			r.logger.Warn("device has unknown type", "device_id", d.ID, "type", d.Kind)
		}
		r.attach(d)
		r.devices[d.ID] = d
	}

	r.logger.Info("devices loaded", "count", len(r.devices))
	return nil
}

func (r *Registry) attach(d *Device) {
	d.SetExecutor(r.executor)
	d.SetLogger(r.logger)
}

// Get returns the live device for id.
func (r *Registry) Get(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// List returns all devices ordered by id.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByModule returns the devices owned by a module, ordered by id.
func (r *Registry) ByModule(moduleID string) []*Device {
	var out []*Device
	for _, d := range r.List() {
		if d.ModuleID == moduleID {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Save validates and persists d. If the id is already registered the
// existing object takes d's identity fields and state, keeping its listeners.
// The returned device is the live one.
func (r *Registry) Save(ctx context.Context, d *Device) (*Device, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidDevice)
	}
	d.init()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	live, exists := r.devices[d.ID]
	if exists {
		live.adopt(d)
	} else {
		live = d
		r.attach(live)
		r.devices[d.ID] = live
	}
	r.mu.Unlock()

	if err := r.repo.Save(ctx, live.ID, live); err != nil {
		return nil, fmt.Errorf("saving device %s: %w", live.ID, err)
	}

	r.logger.Info("device saved", "device_id", live.ID, "type", live.Kind, "module_id", live.ModuleID)
	return live, nil
}

// SaveAll saves each device, stopping at the first error.
func (r *Registry) SaveAll(ctx context.Context, devices []*Device) error {
	for _, d := range devices {
		if _, err := r.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// Persist writes the current state of a registered device.
func (r *Registry) Persist(ctx context.Context, id string) error {
	d, ok := r.Get(id)
	if !ok {
		return ErrDeviceNotFound
	}
	if err := r.repo.Save(ctx, id, d); err != nil {
		return fmt.Errorf("saving device %s: %w", id, err)
	}
	return nil
}

// Delete removes a device and all of its listeners.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	d, ok := r.devices[id]
	delete(r.devices, id)
	r.mu.Unlock()

	if !ok {
		return ErrDeviceNotFound
	}
	d.RemoveAllListeners()

	if _, err := r.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("deleting device %s: %w", id, err)
	}
	r.logger.Info("device deleted", "device_id", id)
	return nil
}

// RemoveRoomFromDevices clears the room of every device in roomID and
// persists each change. It returns how many devices were updated.
func (r *Registry) RemoveRoomFromDevices(ctx context.Context, roomID string) (int, error) {
	n := 0
	for _, d := range r.List() {
		if roomID == "" || d.Room != roomID {
			continue
		}
		d.mu.Lock()
		d.Room = ""
		d.mu.Unlock()
		if err := r.repo.Save(ctx, d.ID, d); err != nil {
			return n, fmt.Errorf("saving device %s: %w", d.ID, err)
		}
		n++
	}
	if n > 0 {
		r.logger.Info("room removed from devices", "room_id", roomID, "count", n)
	}
	return n, nil
}

// adopt copies identity fields and state from src, keeping listeners,
// executor and logger.
func (d *Device) adopt(src *Device) {
	state := src.State()

	d.mu.Lock()
	d.Name = src.Name
	d.Kind = src.Kind
	d.ModuleID = src.ModuleID
	d.Room = src.Room
	d.Icon = src.Icon
	d.QuickAccess = src.QuickAccess
	d.catalog = CatalogFor(src.Kind)
	if len(state) > 0 {
		d.state = state
	}
	d.mu.Unlock()
}
