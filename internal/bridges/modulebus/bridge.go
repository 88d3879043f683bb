package modulebus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/nerrad567/gray-logic-automation/internal/device"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/mqtt"
)

const defaultQoS = 1

// MQTTClient is the subset of *mqtt.Client the bridge needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Devices is satisfied by *device.Registry.
type Devices interface {
	Get(id string) (*device.Device, bool)
	ByModule(moduleID string) []*device.Device
	List() []*device.Device
}

// Wiring is satisfied by *automation.Registry.
type Wiring interface {
	AddDevicesForModule(moduleID string) int
	RemoveDeviceForModule(moduleID string) int
}

// Logger is satisfied by *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Bridge. Client, Devices and Wiring are required.
type Options struct {
	Client  MQTTClient
	Devices Devices
	Wiring  Wiring

	// QoS for commands and subscriptions. Zero means 1.
	QoS byte

	// Source is stamped on every command, usually the MQTT client id.
	Source string

	Clock  clockwork.Clock
	Logger Logger
}

// Bridge connects devices and action wiring to the module bus.
// Safe for concurrent use.
type Bridge struct {
	client  MQTTClient
	devices Devices
	wiring  Wiring
	qos     byte
	source  string
	clock   clockwork.Clock
	logger  Logger
	topics  mqtt.Topics

	// mu serializes module transitions with the wiring calls they make.
	mu      sync.RWMutex
	modules map[string]*ModuleStatus

	statesApplied  uint64
	statesRejected uint64
	commandsSent   uint64
}

// New creates a bridge. Call Start to subscribe.
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("modulebus: mqtt client is required")
	}
	if opts.Devices == nil {
		return nil, fmt.Errorf("modulebus: device registry is required")
	}
	if opts.Wiring == nil {
		return nil, fmt.Errorf("modulebus: automation wiring is required")
	}

	b := &Bridge{
		client:  opts.Client,
		devices: opts.Devices,
		wiring:  opts.Wiring,
		qos:     opts.QoS,
		source:  opts.Source,
		clock:   opts.Clock,
		logger:  opts.Logger,
		modules: make(map[string]*ModuleStatus),
	}
	if b.qos == 0 {
		b.qos = defaultQoS
	}
	if b.source == "" {
		b.source = "graylogic-automation"
	}
	if b.clock == nil {
		b.clock = clockwork.NewRealClock()
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	return b, nil
}

// Start subscribes to every module's state and health topics.
func (b *Bridge) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.client.Subscribe(b.topics.AllStates(), b.qos, b.deliverState); err != nil {
		return fmt.Errorf("subscribing to device states: %w", err)
	}
	if err := b.client.Subscribe(b.topics.AllHealth(), b.qos, b.HandleHealth); err != nil {
		return fmt.Errorf("subscribing to module health: %w", err)
	}
	b.logger.Info("module bus bridge started",
		"states", b.topics.AllStates(), "health", b.topics.AllHealth())
	return nil
}

// Stop unsubscribes. Errors are logged; the broker drops the
// subscriptions with the session anyway.
func (b *Bridge) Stop() {
	for _, topic := range []string{b.topics.AllStates(), b.topics.AllHealth()} {
		if err := b.client.Unsubscribe(topic); err != nil {
			b.logger.Warn("module bus unsubscribe failed", "topic", topic, "error", err)
		}
	}
}

// Execute publishes a command for d to its module. It implements
// device.Executor.
func (b *Bridge) Execute(d *device.Device, command string, args []any) error {
	if d.ModuleID == "" {
		return fmt.Errorf("%w: %s", ErrNoModule, d.ID)
	}
	if !b.online(d.ModuleID) {
		return fmt.Errorf("%w: %s", ErrModuleOffline, d.ModuleID)
	}

	msg := CommandMessage{
		ID:        uuid.NewString(),
		Timestamp: b.clock.Now().UTC(),
		DeviceID:  d.ID,
		ModuleID:  d.ModuleID,
		Command:   device.BaseName(command),
		Args:      args,
		Source:    b.source,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}
	topic := b.topics.Command(d.ModuleID, d.ID)
	if err := b.client.Publish(topic, payload, b.qos, false); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", msg.Command, d.ID, err)
	}

	b.mu.Lock()
	b.commandsSent++
	b.mu.Unlock()
	b.logger.Debug("command published", "device_id", d.ID, "command", msg.Command, "topic", topic)
	return nil
}

// deliverState hands a state report to its own goroutine. Listener
// callbacks run inside HandleState and may walk the rest of a workflow,
// waits and command publishes included, so the MQTT router must not run
// them itself. Reports are therefore applied in no guaranteed order.
func (b *Bridge) deliverState(topic string, payload []byte) error {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("state report panicked", "topic", topic, "panic", r)
			}
		}()
		if err := b.HandleState(topic, payload); err != nil {
			b.logger.Warn("state report rejected", "topic", topic, "error", err)
		}
	}()
	return nil
}

// HandleState applies a state report from a module on the calling
// goroutine. Listeners fired by the report run before it returns.
func (b *Bridge) HandleState(topic string, payload []byte) error {
	err := b.applyState(topic, payload)

	b.mu.Lock()
	if err != nil {
		b.statesRejected++
	} else {
		b.statesApplied++
	}
	b.mu.Unlock()
	return err
}

func (b *Bridge) applyState(topic string, payload []byte) error {
	category, moduleID, deviceID, err := mqtt.ParseDeviceTopic(topic)
	if err != nil {
		return err
	}
	if category != mqtt.CategoryState {
		return fmt.Errorf("%w: %q", mqtt.ErrUnknownTopic, topic)
	}

	var msg StateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	d, ok := b.devices.Get(deviceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	if d.ModuleID != moduleID {
		return fmt.Errorf("%w: %s is on %q, reported by %q", ErrModuleMismatch, deviceID, d.ModuleID, moduleID)
	}

	d.SetConnected(true)
	if len(msg.State) > 0 {
		d.ApplyState(msg.State)
	}
	for _, event := range msg.Events {
		d.TriggerCheckListener(event)
	}
	b.logger.Debug("device state applied",
		"device_id", deviceID, "fields", len(msg.State), "events", len(msg.Events))
	return nil
}

// HandleHealth processes a module health report.
func (b *Bridge) HandleHealth(topic string, payload []byte) error {
	moduleID, err := mqtt.ParseHealthTopic(topic)
	if err != nil {
		return err
	}
	var msg HealthMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	reachable, ok := msg.Status.Reachable()
	if !ok {
		b.logger.Debug("module in transition", "module_id", moduleID, "status", msg.Status)
		return nil
	}
	reason := msg.Reason
	if reason == "" {
		reason = string(msg.Status)
	}
	b.SetModuleOnline(moduleID, reachable, reason)
	return nil
}

// SetModuleOnline records a module's reachability. On a transition to
// offline every listener on the module's devices is removed; on a
// transition back the module's device triggers are registered again.
// It returns false when the module was already in that state.
func (b *Bridge) SetModuleOnline(moduleID string, online bool, reason string) bool {
	if moduleID == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	st, known := b.modules[moduleID]
	if !known {
		st = &ModuleStatus{ID: moduleID, Online: true}
		b.modules[moduleID] = st
	}
	if st.Online == online {
		return false
	}

	st.Online = online
	st.ChangedAt = b.clock.Now().UTC()
	st.Reason = reason

	for _, d := range b.devices.ByModule(moduleID) {
		d.SetConnected(online)
	}
	if online {
		n := b.wiring.AddDevicesForModule(moduleID)
		b.logger.Info("module online", "module_id", moduleID, "actions", n, "reason", reason)
	} else {
		n := b.wiring.RemoveDeviceForModule(moduleID)
		b.logger.Warn("module offline", "module_id", moduleID, "devices", n, "reason", reason)
	}
	return true
}

func (b *Bridge) online(moduleID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.modules[moduleID]
	return !ok || st.Online
}

// Module returns the status of one module. Modules with registered
// devices are known even before they report.
func (b *Bridge) Module(moduleID string) (ModuleStatus, bool) {
	for _, m := range b.Modules() {
		if m.ID == moduleID {
			return m, true
		}
	}
	return ModuleStatus{}, false
}

// Modules lists every module that has devices or has reported health,
// sorted by id.
func (b *Bridge) Modules() []ModuleStatus {
	counts := make(map[string]int)
	for _, d := range b.devices.List() {
		if d.ModuleID != "" {
			counts[d.ModuleID]++
		}
	}

	b.mu.RLock()
	out := make([]ModuleStatus, 0, len(counts)+len(b.modules))
	for id, st := range b.modules {
		m := *st
		m.Devices = counts[id]
		out = append(out, m)
		delete(counts, id)
	}
	b.mu.RUnlock()

	for id, n := range counts {
		out = append(out, ModuleStatus{ID: id, Online: true, Devices: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats reports message counters.
type Stats struct {
	CommandsSent   uint64 `json:"commandsSent"`
	StatesApplied  uint64 `json:"statesApplied"`
	StatesRejected uint64 `json:"statesRejected"`
}

// Stats returns a snapshot of the counters.
func (b *Bridge) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		CommandsSent:   b.commandsSent,
		StatesApplied:  b.statesApplied,
		StatesRejected: b.statesRejected,
	}
}
