package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementActionRuns   = "action_runs"
	MeasurementModuleHealth = "module_health"
)

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeDropped   = "dropped"
)

// ActionRun describes one finished or refused action invocation.
type ActionRun struct {
	ActionID    string
	ActionName  string
	TriggerType string
	Outcome     string

	// Reason is set for dropped runs.
	Reason   string
	Nodes    int
	Failures int
	Duration time.Duration
	Time     time.Time
}

// WriteActionRun records a run in the action_runs measurement.
//
// Tags: action_id, trigger_type, outcome (and reason for drops).
// Fields: nodes, failures, duration_ms, name.
func (c *Client) WriteActionRun(run ActionRun) {
	c.write(actionRunPoint(run))
}

func actionRunPoint(run ActionRun) *write.Point {
	tags := map[string]string{
		"action_id":    run.ActionID,
		"trigger_type": run.TriggerType,
		"outcome":      run.Outcome,
	}
	if run.Reason != "" {
		tags["reason"] = run.Reason
	}
	fields := map[string]any{
		"nodes":       int64(run.Nodes),
		"failures":    int64(run.Failures),
		"duration_ms": float64(run.Duration) / float64(time.Millisecond),
	}
	if run.ActionName != "" {
		fields["name"] = run.ActionName
	}
	ts := run.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(MeasurementActionRuns, tags, fields, ts)
}

// WriteModuleHealth records a module going online (1) or offline (0).
func (c *Client) WriteModuleHealth(moduleID string, online bool, ts time.Time) {
	c.write(moduleHealthPoint(moduleID, online, ts))
}

func moduleHealthPoint(moduleID string, online bool, ts time.Time) *write.Point {
	var v int64
	if online {
		v = 1
	}
	return write.NewPoint(MeasurementModuleHealth,
		map[string]string{"module_id": moduleID},
		map[string]any{"online": v},
		ts)
}
