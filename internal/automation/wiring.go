package automation

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/device"
	"github.com/nerrad567/gray-logic-automation/internal/schedule"
	"github.com/nerrad567/gray-logic-automation/internal/workflow"
)

// wireLocked registers the action's trigger according to its TriggerType.
func (r *Registry) wireLocked(a *Action) {
	switch a.TriggerType {
	case workflow.TriggerManual:
		r.wireManualLocked(a)
	case workflow.TriggerDevice:
		r.wireDeviceLocked(a)
	case workflow.TriggerTime:
		r.wireTimeLocked(a)
	default:
		r.logger.Warn("action has unknown trigger type",
			"action_id", a.ActionID, "trigger_type", a.TriggerType)
	}
}

// unwireLocked undoes wireLocked.
func (r *Registry) unwireLocked(a *Action) {
	switch a.TriggerType {
	case workflow.TriggerManual:
		for _, s := range r.scenes {
			s.RemoveListener(a.ActionID)
		}
	case workflow.TriggerDevice:
		dt, ok := a.Workflow.DeviceTrigger()
		if !ok || dt.DeviceID == "" || dt.Event == "" {
			return
		}
		if d, ok := r.devices.Get(dt.DeviceID); ok {
			d.RemoveListener(a.ActionID, dt.Event)
		}
	case workflow.TriggerTime:
		if t, ok := r.timeTriggers[a.ActionID]; ok {
			t.Stop()
			delete(r.timeTriggers, a.ActionID)
		}
	}
}

// wireManualLocked puts a listener for the action on every scene.
func (r *Registry) wireManualLocked(a *Action) {
	inv := r.invocables[a.ActionID]
	if inv == nil {
		return
	}
	for _, s := range r.scenes {
		s.AddListener(a.ActionID, func() { inv.Invoke(nil) })
	}
}

// wireSceneLocked puts a listener on s for each of its ActionIDs that
// names a known action.
func (r *Registry) wireSceneLocked(s *Scene) {
	for _, id := range s.ActionIDs {
		inv, ok := r.invocables[id]
		if !ok {
			r.logger.Debug("scene references unknown action", "scene_id", s.ID, "action_id", id)
			continue
		}
		s.AddListener(id, func() { inv.Invoke(nil) })
	}
}

// wireDeviceLocked listens on the trigger device. Only parameterized
// events (containing ':') pass the event value on as the payload.
func (r *Registry) wireDeviceLocked(a *Action) bool {
	inv := r.invocables[a.ActionID]
	if inv == nil {
		return false
	}
	dt, ok := a.Workflow.DeviceTrigger()
	if !ok || dt.DeviceID == "" || dt.Event == "" {
		r.logger.Warn("device action has no usable trigger", "action_id", a.ActionID)
		return false
	}
	if len(dt.TriggerValues) > 2 {
		r.logger.Warn("device trigger has too many values",
			"action_id", a.ActionID, "values", len(dt.TriggerValues))
		return false
	}
	d, ok := r.devices.Get(dt.DeviceID)
	if !ok {
		r.logger.Warn("trigger device not found", "action_id", a.ActionID, "device_id", dt.DeviceID)
		return false
	}

	withPayload := strings.Contains(dt.Event, ":")
	d.AddListener(device.Listener{
		Key:    a.ActionID,
		Event:  dt.Event,
		Params: dt.TriggerValues,
		Callback: func(value any) {
			if withPayload {
				inv.Invoke(value)
				return
			}
			inv.Invoke(nil)
		},
	})
	return true
}

// wireTimeLocked starts a scheduler for the action. A trigger that
// cannot be parsed or scheduled is logged and left silent.
func (r *Registry) wireTimeLocked(a *Action) {
	inv := r.invocables[a.ActionID]
	if inv == nil {
		return
	}
	tt, ok := a.Workflow.TimeTrigger()
	if !ok {
		r.logger.Warn("time action has no time trigger", "action_id", a.ActionID)
		return
	}
	spec, err := schedule.Parse(tt.Frequency, tt.Time, tt.Weekdays)
	if err != nil {
		r.logger.Warn("time trigger not scheduled", "action_id", a.ActionID, "error", err)
		return
	}

	t := schedule.NewTrigger(a.ActionID, spec, func() { inv.Invoke(nil) },
		schedule.WithClock(r.clock),
		schedule.WithLocation(r.loc),
		schedule.WithLogger(r.logger),
	)
	if err := t.Start(); err != nil {
		return
	}
	r.timeTriggers[a.ActionID] = t
}

// NextFire returns when the action's time trigger fires next.
func (r *Registry) NextFire(id string) (time.Time, bool) {
	r.mu.RLock()
	t, found := r.timeTriggers[id]
	r.mu.RUnlock()
	if !found {
		return time.Time{}, false
	}
	n := t.Next()
	return n, !n.IsZero()
}

func (r *Registry) triggerInfoLocked(a *Action) string {
	switch a.TriggerType {
	case workflow.TriggerManual:
		return "manual trigger"
	case workflow.TriggerDevice:
		dt, ok := a.Workflow.DeviceTrigger()
		if !ok {
			return "device trigger - not configured"
		}
		if d, ok := r.devices.Get(dt.DeviceID); ok {
			return fmt.Sprintf("%s - %s", d.Name, d.Kind)
		}
		return fmt.Sprintf("%s - unknown device", dt.DeviceID)
	case workflow.TriggerTime:
		tt, ok := a.Workflow.TimeTrigger()
		if !ok {
			return "time trigger - not configured"
		}
		spec, err := schedule.Parse(tt.Frequency, tt.Time, tt.Weekdays)
		if err != nil {
			return "time trigger - invalid"
		}
		return "time trigger - " + spec.String()
	default:
		return a.TriggerType
	}
}
