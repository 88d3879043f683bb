package automation

import "time"

// EventType names what happened in an Event.
type EventType string

// Event types.
const (
	EventActionStarted   EventType = "action.started"
	EventActionCompleted EventType = "action.completed"
	EventActionDropped   EventType = "action.dropped"
	EventActionSaved     EventType = "action.saved"
	EventActionDeleted   EventType = "action.deleted"
	EventSceneSaved      EventType = "scene.saved"
	EventSceneDeleted    EventType = "scene.deleted"
	EventSceneToggled    EventType = "scene.toggled"
)

// Drop reasons carried in Event.Reason.
const (
	ReasonBusy = "busy"
)

// Event reports a run or lifecycle change to the registry's sinks.
type Event struct {
	Type        EventType     `json:"type"`
	ActionID    string        `json:"actionId,omitempty"`
	ActionName  string        `json:"actionName,omitempty"`
	SceneID     string        `json:"sceneId,omitempty"`
	RunID       string        `json:"runId,omitempty"`
	TriggerType string        `json:"triggerType,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Nodes       int           `json:"nodes,omitempty"`
	Failures    int           `json:"failures,omitempty"`
	Listeners   int           `json:"listeners,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Time        time.Time     `json:"time"`
}

// EventSink receives registry events. HandleEvent is called on the
// goroutine that produced the event and must not block.
type EventSink interface {
	HandleEvent(e Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// HandleEvent calls f(e).
func (f EventSinkFunc) HandleEvent(e Event) { f(e) }
