package device

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Kind identifies a device type and selects its catalog.
type Kind string

// Supported device kinds.
const (
	KindLight       Kind = "light"
	KindLightDimmer Kind = "light-dimmer"
	KindSwitch      Kind = "switch"
	KindMotion      Kind = "motion"
	KindTemperature Kind = "temperature"
)

// State is a device's last known field values. Numbers are float64.
type State map[string]any

// Bool returns a boolean field, false when absent.
func (s State) Bool(field string) bool {
	b, _ := s[field].(bool)
	return b
}

// Float returns a numeric field and whether it was present.
func (s State) Float(field string) (float64, bool) {
	f, ok := normalizeNumber(s[field]).(float64)
	return f, ok
}

func (s State) clone() State {
	return State(deepCopyMap(s))
}

// Executor carries out commands on physical hardware. The MQTT bridge is
// the production implementation; a nil executor makes devices purely virtual.
type Executor interface {
	Execute(d *Device, command string, args []any) error
}

// Device is a controllable or monitorable entity.
//
// Identity fields are plain; state, connection status and listeners are
// guarded by an internal mutex and must be accessed through methods.
// Always handle devices by pointer.
type Device struct {
	ID          string
	Name        string
	Kind        Kind
	ModuleID    string
	Room        string
	Icon        string
	QuickAccess bool

	mu        sync.Mutex
	state     State
	connected bool
	listeners map[string][]Listener
	catalog   *Catalog
	executor  Executor
	logger    Logger
}

// New creates a device of a known kind.
func New(id, name string, kind Kind, moduleID string) (*Device, error) {
	d := &Device{ID: id, Name: name, Kind: kind, ModuleID: moduleID}
	d.init()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init() {
	if d.state == nil {
		d.state = State{}
	}
	if d.listeners == nil {
		d.listeners = make(map[string][]Listener)
	}
	d.catalog = CatalogFor(d.Kind)
	if d.Icon == "" && d.catalog != nil {
		d.Icon = d.catalog.Icon
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
}

// Validate checks identity fields and that the kind has a catalog.
func (d *Device) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	if CatalogFor(d.Kind) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind)
	}
	return nil
}

// Catalog returns the device's command/property/event catalog, nil for unknown kinds.
func (d *Device) Catalog() *Catalog {
	return d.catalog
}

// State returns a copy of the current state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.clone()
}

// Connected reports whether the owning module last reported the device reachable.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// SetConnected records reachability.
func (d *Device) SetConnected(connected bool) {
	d.mu.Lock()
	d.connected = connected
	d.mu.Unlock()
}

// SetExecutor attaches the hardware executor.
func (d *Device) SetExecutor(e Executor) {
	d.mu.Lock()
	d.executor = e
	d.mu.Unlock()
}

// SetLogger attaches a logger for listener failures.
func (d *Device) SetLogger(l Logger) {
	d.mu.Lock()
	d.logger = l
	d.mu.Unlock()
}

// record is the persisted and API form of a device.
type record struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Type             Kind     `json:"type"`
	TypeLabel        string   `json:"typeLabel,omitempty"`
	ModuleID         string   `json:"moduleId,omitempty"`
	Room             string   `json:"room,omitempty"`
	Icon             string   `json:"icon,omitempty"`
	QuickAccess      bool     `json:"quickAccess,omitempty"`
	IsConnected      bool     `json:"isConnected"`
	State            State    `json:"state,omitempty"`
	FunctionsAction  []string `json:"functionsAction,omitempty"`
	FunctionsBool    []string `json:"functionsBool,omitempty"`
	FunctionsTrigger []string `json:"functionsTrigger,omitempty"`
}

// MarshalJSON encodes identity, state and the catalog's function lists.
func (d *Device) MarshalJSON() ([]byte, error) {
	d.mu.Lock()
	r := record{
		ID:          d.ID,
		Name:        d.Name,
		Type:        d.Kind,
		ModuleID:    d.ModuleID,
		Room:        d.Room,
		Icon:        d.Icon,
		QuickAccess: d.QuickAccess,
		IsConnected: d.connected,
		State:       d.state.clone(),
	}
	d.mu.Unlock()

	if c := d.catalog; c != nil {
		r.TypeLabel = c.Label
		r.FunctionsAction = c.CommandSignatures()
		r.FunctionsBool = c.PropertySignatures()
		r.FunctionsTrigger = c.EventSignatures()
	}
	return json.Marshal(r)
}

// UnmarshalJSON restores a device. Listeners and the executor are runtime
// only and are never decoded.
func (d *Device) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.ID = r.ID
	d.Name = r.Name
	d.Kind = r.Type
	d.ModuleID = r.ModuleID
	d.Room = r.Room
	d.Icon = r.Icon
	d.QuickAccess = r.QuickAccess
	d.connected = r.IsConnected
	d.state = State{}
	for k, v := range r.State {
		d.state[k] = normalizeNumber(v)
	}
	d.init()
	return nil
}

// deepCopyMap copies nested maps and slices so snapshots never alias live state.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v
	}
}
