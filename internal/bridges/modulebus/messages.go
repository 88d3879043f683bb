package modulebus

import "time"

// CommandMessage is published hub → module.
// Topic: graylogic/command/{module}/{device}
type CommandMessage struct {
	// ID correlates the command in module logs.
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	ModuleID  string    `json:"module_id"`

	// Command is the base command name without signature, e.g. "setBrightness".
	Command string `json:"command"`
	Args    []any  `json:"args,omitempty"`

	// Source is "automation" for workflow runs and "api" for direct calls.
	Source string `json:"source"`
}

// StateMessage is published module → hub when device fields change.
// Topic: graylogic/state/{module}/{device}
type StateMessage struct {
	Timestamp time.Time      `json:"timestamp"`
	State     map[string]any `json:"state,omitempty"`

	// Events names momentary events to fire, e.g. "pressed".
	Events []string `json:"events,omitempty"`
}

// HealthStatus is a module's reported condition.
type HealthStatus string

// Module health values. Healthy, degraded and online count as reachable.
const (
	HealthHealthy   HealthStatus = "healthy"
	HealthOnline    HealthStatus = "online"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthOffline   HealthStatus = "offline"
	HealthStarting  HealthStatus = "starting"
	HealthStopping  HealthStatus = "stopping"
)

// Reachable reports whether the status means the module accepts commands.
// ok is false for transitional states, which leave wiring untouched.
func (s HealthStatus) Reachable() (reachable, ok bool) {
	switch s {
	case HealthHealthy, HealthOnline, HealthDegraded:
		return true, true
	case HealthUnhealthy, HealthOffline, HealthStopping:
		return false, true
	default:
		return false, false
	}
}

// HealthMessage is published module → hub, retained.
// Topic: graylogic/health/{module}
type HealthMessage struct {
	Timestamp time.Time    `json:"timestamp"`
	Status    HealthStatus `json:"status"`
	Version   string       `json:"version,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// ModuleStatus is the hub's view of one module.
type ModuleStatus struct {
	ID        string    `json:"id"`
	Online    bool      `json:"online"`
	Devices   int       `json:"devices"`
	ChangedAt time.Time `json:"changedAt,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}
