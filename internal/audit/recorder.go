package audit

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/automation"
)

// sourceAutomation marks entries written by the Recorder.
const sourceAutomation = "automation"

// defaultBuffer is how many events may wait for the writer.
const defaultBuffer = 256

// Logger is the logging surface the Recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder is an automation.EventSink that writes each event to the
// audit log on a background goroutine. Events arriving while the buffer is
// full are counted and dropped so runs never wait on the database.
type Recorder struct {
	repo    Repository
	logger  Logger
	events  chan automation.Event
	dropped atomic.Int64
}

// NewRecorder creates a recorder. Call Run to start writing.
func NewRecorder(repo Repository, logger Logger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, logger: logger, events: make(chan automation.Event, buffer)}
}

// HandleEvent queues e for writing.
func (r *Recorder) HandleEvent(e automation.Event) {
	select {
	case r.events <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run writes queued events until ctx is cancelled, then flushes what is
// already buffered.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case e := <-r.events:
			r.write(ctx, e)
		case <-ctx.Done():
			r.flush()
			return
		}
	}
}

func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-r.events:
			r.write(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, e automation.Event) {
	entry := Entry(e)
	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Error("failed to write audit log", "action", entry.Action, "error", err)
	}
}

// Entry converts an automation event to an audit log entry.
func Entry(e automation.Event) *AuditLog {
	entry := &AuditLog{
		Action:    string(e.Type),
		Source:    sourceAutomation,
		CreatedAt: e.Time,
	}

	if strings.HasPrefix(string(e.Type), "scene.") {
		entry.EntityType = "scene"
		entry.EntityID = e.SceneID
	} else {
		entry.EntityType = "action"
		entry.EntityID = e.ActionID
	}

	details := map[string]any{}
	if e.ActionName != "" {
		details["action_name"] = e.ActionName
	}
	if e.RunID != "" {
		details["run_id"] = e.RunID
	}
	if e.TriggerType != "" {
		details["trigger_type"] = e.TriggerType
	}
	if e.Reason != "" {
		details["reason"] = e.Reason
	}
	switch e.Type {
	case automation.EventActionCompleted:
		details["nodes"] = e.Nodes
		details["failures"] = e.Failures
		details["duration_ms"] = e.Duration.Milliseconds()
	case automation.EventSceneToggled:
		details["listeners"] = e.Listeners
	}
	if len(details) > 0 {
		entry.Details = details
	}
	return entry
}
