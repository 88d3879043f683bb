package automation

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/workflow"
)

// Action is a named workflow with the way it gets started.
//
// The busy flag that keeps an action from running twice at once lives on
// its Invocable, not here, so Actions can be copied and persisted freely.
type Action struct {
	// ActionID is unique across actions. The API generates one when empty.
	ActionID string `json:"actionId" validate:"required,max=128"`

	// Name is shown in editors and logs.
	Name string `json:"name,omitempty" validate:"max=100"`

	// TriggerType picks the wiring: manual, device or time.
	TriggerType string `json:"triggerType" validate:"required,oneof=manual device time"`

	// Workflow is the node graph walked on every invocation.
	Workflow workflow.Workflow `json:"workflow"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the action.
func (a *Action) Clone() *Action {
	if a == nil {
		return nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		cp := *a
		return &cp
	}
	var cp Action
	if err := json.Unmarshal(data, &cp); err != nil {
		cp = *a
	}
	return &cp
}

// Scene is a user-facing grouping. Toggling it runs every action
// listening on it.
//
// Listeners are runtime state keyed by action ID and are never persisted.
type Scene struct {
	ID          string   `json:"id" validate:"required,max=128"`
	Name        string   `json:"name,omitempty" validate:"max=100"`
	Icon        string   `json:"icon,omitempty"`
	Active      bool     `json:"active"`
	Description string   `json:"description,omitempty" validate:"max=500"`
	ActionIDs   []string `json:"actionIds,omitempty"`
	ShowOnHome  bool     `json:"showOnHome"`
	IsCustom    bool     `json:"isCustom"`

	mu        sync.Mutex
	listeners map[string]func()
	order     []string
}

// AddListener registers fn under id, replacing any previous listener with
// the same id.
func (s *Scene) AddListener(id string, fn func()) {
	if id == "" || fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[string]func())
	}
	if _, ok := s.listeners[id]; !ok {
		s.order = append(s.order, id)
	}
	s.listeners[id] = fn
}

// RemoveListener drops the listener registered under id.
func (s *Scene) RemoveListener(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listeners[id]; !ok {
		return
	}
	delete(s.listeners, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// ClearListeners drops every listener.
func (s *Scene) ClearListeners() {
	s.mu.Lock()
	s.listeners = nil
	s.order = nil
	s.mu.Unlock()
}

// ListenerCount returns how many listeners are registered.
func (s *Scene) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// HasListener reports whether a listener is registered under id.
func (s *Scene) HasListener(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.listeners[id]
	return ok
}

// Toggle calls every listener once, in registration order, and returns
// how many were called. Listeners run outside the scene lock.
func (s *Scene) Toggle() int {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Clone copies the persisted fields. Listeners are not copied.
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}
	cp := &Scene{
		ID:          s.ID,
		Name:        s.Name,
		Icon:        s.Icon,
		Active:      s.Active,
		Description: s.Description,
		ShowOnHome:  s.ShowOnHome,
		IsCustom:    s.IsCustom,
	}
	if s.ActionIDs != nil {
		cp.ActionIDs = append([]string(nil), s.ActionIDs...)
	}
	return cp
}
