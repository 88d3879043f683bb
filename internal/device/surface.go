package device

import (
	"fmt"
	"strings"
)

// Listener is a callback registered on a device event.
//
// Key identifies the owner (an action id, or "<actionId>-wait-<nodeId>" for
// a pending wait). Params are the 0–2 match values the event's predicate
// compares against. Callback receives the event value: the new field value
// for stateChanged events, nil otherwise.
type Listener struct {
	Key      string
	Event    string
	Params   []any
	Callback func(value any)
}

// eventKey normalizes an event name for listener storage.
// Parameterized stateChanged names are kept whole.
func eventKey(name string) string {
	if strings.HasPrefix(name, StateChangedPrefix) {
		return name
	}
	return BaseName(name)
}

// InvokeCommand runs a command with execute=true, so the executor is
// asked to carry it out. Arguments go through ConvertValue first.
func (d *Device) InvokeCommand(name string, args ...any) error {
	return d.Call(name, true, args...)
}

// Call runs a command by name and arity. With execute=false only local
// state is updated, as when replaying a value reported by the hardware.
func (d *Device) Call(name string, execute bool, args ...any) error {
	if len(args) > 2 {
		return fmt.Errorf("%w: %s takes at most 2, got %d", ErrTooManyArgs, name, len(args))
	}
	if d.catalog == nil {
		return fmt.Errorf("%w: %s on unknown type %q", ErrCommandNotFound, name, d.Kind)
	}
	cmd, ok := d.catalog.Command(name, len(args))
	if !ok {
		return fmt.Errorf("%w: %s/%d on %s", ErrCommandNotFound, BaseName(name), len(args), d.Kind)
	}
	return cmd.Run(d, ConvertValues(args), execute)
}

// QueryProperty evaluates a boolean property with 0 or 1 arguments.
func (d *Device) QueryProperty(name string, args ...any) (bool, error) {
	if len(args) > 1 {
		return false, fmt.Errorf("%w: property %s takes at most 1, got %d", ErrTooManyArgs, name, len(args))
	}
	if d.catalog == nil {
		return false, fmt.Errorf("%w: %s on unknown type %q", ErrPropertyNotFound, name, d.Kind)
	}
	p, ok := d.catalog.Property(name, len(args))
	if !ok {
		return false, fmt.Errorf("%w: %s/%d on %s", ErrPropertyNotFound, BaseName(name), len(args), d.Kind)
	}
	return p.Eval(d.State(), ConvertValues(args))
}

// AddListener registers l. A listener with the same key and event replaces
// the previous one, so re-wiring an action never double-fires.
func (d *Device) AddListener(l Listener) {
	if l.Key == "" || l.Event == "" || l.Callback == nil {
		return
	}
	ev := eventKey(l.Event)
	l.Params = ConvertValues(l.Params)

	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.listeners[ev]
	for i := range list {
		if list[i].Key == l.Key {
			list[i] = l
			return
		}
	}
	d.listeners[ev] = append(list, l)
}

// RemoveListener removes the listener registered under key for event.
func (d *Device) RemoveListener(key, event string) {
	ev := eventKey(event)

	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.listeners[ev]
	kept := list[:0]
	for _, l := range list {
		if l.Key != key {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(d.listeners, ev)
		return
	}
	d.listeners[ev] = kept
}

// RemoveAllListeners drops every listener on the device.
func (d *Device) RemoveAllListeners() {
	d.mu.Lock()
	d.listeners = make(map[string][]Listener)
	d.mu.Unlock()
}

// ListenerCount returns the number of listeners for event, or for all
// events when event is empty.
func (d *Device) ListenerCount(event string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if event != "" {
		return len(d.listeners[eventKey(event)])
	}
	n := 0
	for _, list := range d.listeners {
		n += len(list)
	}
	return n
}

// TriggerCheckListener re-evaluates a level event against the current
// state and fires every matching listener. Edge events are not fired.
func (d *Device) TriggerCheckListener(event string) {
	if d.catalog == nil {
		return
	}
	e, ok := d.catalog.Event(eventKey(event))
	if !ok || e.Edge {
		return
	}
	var value any
	if e.Field != "" {
		value = d.State()[e.Field]
	}
	d.emit(eventKey(event), value)
}

// SetState records a field value and fires the events bound to it.
// Edge events and stateChanged:<field> fire only when the value changed.
func (d *Device) SetState(field string, value any) {
	value = ConvertValue(value)

	d.mu.Lock()
	old, had := d.state[field]
	d.state[field] = value
	d.mu.Unlock()

	changed := !had || !equalValues(old, value)
	if d.catalog != nil && d.catalog.momentary[field] {
		changed = true
	}

	if d.catalog != nil {
		for _, name := range d.catalog.fields[field] {
			if e := d.catalog.events[name]; e.Edge && !changed {
				continue
			}
			d.emit(name, value)
		}
	}
	if changed {
		d.emit(StateChangedPrefix+field, value)
	}
}

// ApplyState records several reported fields with execute=false semantics.
func (d *Device) ApplyState(fields map[string]any) {
	for field, value := range fields {
		d.SetState(field, value)
	}
}

// emit runs the listeners of one event outside the device lock, so
// callbacks may add or remove listeners.
func (d *Device) emit(event string, value any) {
	d.mu.Lock()
	list := append([]Listener(nil), d.listeners[event]...)
	snapshot := d.state.clone()
	logger := d.logger
	d.mu.Unlock()

	if len(list) == 0 {
		return
	}

	var match MatchFunc
	if d.catalog != nil {
		if e, ok := d.catalog.events[event]; ok {
			match = e.Match
		}
	}

	for _, l := range list {
		if match != nil && !match(snapshot, l.Params) {
			continue
		}
		d.run(l, value, logger)
	}
}

func (d *Device) run(l Listener, value any, logger Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("device listener panicked",
				"device_id", d.ID, "key", l.Key, "event", l.Event, "panic", r)
		}
	}()
	logger.Debug("device listener fired", "device_id", d.ID, "key", l.Key, "event", l.Event)
	l.Callback(value)
}

func (d *Device) execute(command string, args []any) error {
	d.mu.Lock()
	e := d.executor
	d.mu.Unlock()
	if e == nil {
		return nil
	}
	if err := e.Execute(d, command, args); err != nil {
		return fmt.Errorf("executing %s on %s: %w", command, d.ID, err)
	}
	return nil
}
