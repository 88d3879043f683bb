package automation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nerrad567/gray-logic-automation/internal/schedule"
	"github.com/nerrad567/gray-logic-automation/internal/workerpool"
	"github.com/nerrad567/gray-logic-automation/internal/workflow"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Deps holds the registry's collaborators. Actions, Scenes and Devices
// are required.
type Deps struct {
	Actions ActionStore
	Scenes  SceneStore
	Devices Devices

	// Interpreter walks workflows. Defaults to workflow.New().
	Interpreter *workflow.Interpreter
	// Pool runs invocations. Defaults to an unbounded pool.
	Pool *workerpool.Pool
	// Location is the zone time triggers are evaluated in. Defaults to time.Local.
	Location *time.Location
	Logger   Logger

	// SeedStandardScenes creates the built-in scenes on Load when missing.
	SeedStandardScenes bool
}

// Registry owns actions, scenes and the triggers that start actions.
//
// Lifecycle operations are serialised by one lock and persist before they
// touch in-memory state. Runs never take that lock.
//
// All public methods are thread-safe.
type Registry struct {
	actionStore ActionStore
	sceneStore  SceneStore
	devices     Devices
	interp      *workflow.Interpreter
	pool        *workerpool.Pool
	clock       clockwork.Clock
	loc         *time.Location
	logger      Logger
	seed        bool

	mu           sync.RWMutex
	actions      map[string]*Action
	invocables   map[string]*Invocable
	scenes       map[string]*Scene
	timeTriggers map[string]*schedule.Trigger

	sinksMu sync.RWMutex
	sinks   []EventSink

	ctx      context.Context
	cancel   context.CancelFunc
	shutdown sync.Once
}

// NewRegistry creates a registry. Call Load before use.
func NewRegistry(deps Deps) (*Registry, error) {
	if deps.Actions == nil {
		return nil, errors.New("automation: action store is required")
	}
	if deps.Scenes == nil {
		return nil, errors.New("automation: scene store is required")
	}
	if deps.Devices == nil {
		return nil, errors.New("automation: device registry is required")
	}

	r := &Registry{
		actionStore:  deps.Actions,
		sceneStore:   deps.Scenes,
		devices:      deps.Devices,
		interp:       deps.Interpreter,
		pool:         deps.Pool,
		loc:          deps.Location,
		logger:       deps.Logger,
		seed:         deps.SeedStandardScenes,
		actions:      make(map[string]*Action),
		invocables:   make(map[string]*Invocable),
		scenes:       make(map[string]*Scene),
		timeTriggers: make(map[string]*schedule.Trigger),
	}
	if r.interp == nil {
		r.interp = workflow.New()
	}
	if r.pool == nil {
		r.pool = workerpool.New(0)
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	r.clock = r.interp.Clock()
	r.ctx, r.cancel = context.WithCancel(context.Background())

	r.pool.OnPanic(func(rec any) {
		r.logger.Error("action run panicked", "panic", rec)
	})
	return r, nil
}

// AddSink registers a sink for run and lifecycle events.
func (r *Registry) AddSink(s EventSink) {
	if s == nil {
		return
	}
	r.sinksMu.Lock()
	r.sinks = append(r.sinks, s)
	r.sinksMu.Unlock()
}

func (r *Registry) publish(e Event) {
	if e.Time.IsZero() {
		e.Time = r.clock.Now().UTC()
	}
	r.sinksMu.RLock()
	sinks := r.sinks
	r.sinksMu.RUnlock()
	for _, s := range sinks {
		s.HandleEvent(e)
	}
}

// Load reads actions and scenes from the stores, seeds the standard
// scenes if enabled, and wires every trigger.
func (r *Registry) Load(ctx context.Context) error {
	scenes, err := r.sceneStore.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}
	actions, err := r.actionStore.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("loading actions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range scenes {
		if s == nil || s.ID == "" {
			r.logger.Warn("skipping stored scene without id")
			continue
		}
		r.scenes[s.ID] = s
	}
	if r.seed {
		r.seedStandardScenesLocked(ctx)
	}

	for _, a := range actions {
		if a == nil || a.ActionID == "" {
			r.logger.Warn("skipping stored action without id")
			continue
		}
		r.actions[a.ActionID] = a
		r.invocables[a.ActionID] = newInvocable(r, a)
	}

	for _, s := range r.scenes {
		r.wireSceneLocked(s)
	}
	for _, a := range r.actions {
		r.wireLocked(a)
	}

	r.logger.Info("automation registry loaded",
		"actions", len(r.actions),
		"scenes", len(r.scenes),
		"time_triggers", len(r.timeTriggers),
	)
	return nil
}

// ─── Actions ────────────────────────────────────────────────────────────────

// AddAction validates, persists and wires an action. An existing ID is
// handled as UpdateAction.
func (r *Registry) AddAction(ctx context.Context, a *Action) error {
	if a == nil || a.ActionID == "" {
		return ErrEmptyID
	}
	if err := ValidateAction(a); err != nil {
		r.logger.Warn("rejected action", "action_id", a.ActionID, "error", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.actions[a.ActionID]; ok {
		return r.updateActionLocked(ctx, existing, a)
	}
	return r.addActionLocked(ctx, a)
}

// UpdateAction replaces an action by deleting it and adding the new
// version. The two steps are not atomic: if the add fails the old action
// is already gone.
func (r *Registry) UpdateAction(ctx context.Context, a *Action) error {
	if a == nil || a.ActionID == "" {
		return ErrEmptyID
	}
	if err := ValidateAction(a); err != nil {
		r.logger.Warn("rejected action", "action_id", a.ActionID, "error", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.actions[a.ActionID]
	return r.updateActionLocked(ctx, existing, a)
}

func (r *Registry) updateActionLocked(ctx context.Context, existing, a *Action) error {
	if existing != nil {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = existing.CreatedAt
		}
		if err := r.deleteActionLocked(ctx, existing.ActionID); err != nil {
			return err
		}
	}
	return r.addActionLocked(ctx, a)
}

func (r *Registry) addActionLocked(ctx context.Context, a *Action) error {
	a = a.Clone()
	now := r.clock.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	if err := r.actionStore.Save(ctx, a.ActionID, a); err != nil {
		r.logger.Error("failed to persist action", "action_id", a.ActionID, "error", err)
		return fmt.Errorf("saving action %s: %w", a.ActionID, err)
	}

	r.actions[a.ActionID] = a
	r.invocables[a.ActionID] = newInvocable(r, a)
	r.wireLocked(a)

	r.logger.Info("action saved", "action_id", a.ActionID, "trigger", r.triggerInfoLocked(a))
	r.publish(Event{Type: EventActionSaved, ActionID: a.ActionID, ActionName: a.Name, TriggerType: a.TriggerType})
	return nil
}

// DeleteAction unwires and removes an action. Runs already in progress
// finish on their own.
func (r *Registry) DeleteAction(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteActionLocked(ctx, id)
}

func (r *Registry) deleteActionLocked(ctx context.Context, id string) error {
	a, ok := r.actions[id]
	if !ok {
		return ErrActionNotFound
	}

	r.unwireLocked(a)
	delete(r.actions, id)
	delete(r.invocables, id)

	if _, err := r.actionStore.DeleteByID(ctx, id); err != nil {
		r.logger.Error("failed to delete stored action", "action_id", id, "error", err)
		return fmt.Errorf("deleting action %s: %w", id, err)
	}

	r.logger.Info("action deleted", "action_id", id)
	r.publish(Event{Type: EventActionDeleted, ActionID: id, ActionName: a.Name, TriggerType: a.TriggerType})
	return nil
}

// GetAction returns a copy of the action.
func (r *Registry) GetAction(id string) (*Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	if !ok {
		return nil, ErrActionNotFound
	}
	return a.Clone(), nil
}

// GetActions returns copies of all actions sorted by name, then ID.
func (r *Registry) GetActions() []*Action {
	r.mu.RLock()
	out := make([]*Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ActionID < out[j].ActionID
	})
	return out
}

// Invocable returns the live invocable for an action.
func (r *Registry) Invocable(id string) (*Invocable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invocables[id]
	return inv, ok
}

// InvokeAction starts a run of the action. It returns false when the
// action is unknown, already running, or the pool refused the run.
func (r *Registry) InvokeAction(id string, payload any) bool {
	inv, ok := r.Invocable(id)
	if !ok {
		r.logger.Warn("invoked action not found", "action_id", id)
		return false
	}
	return inv.Invoke(payload)
}

// TriggerInfo describes what starts the action, e.g.
// "Kitchen Light - light" or "time trigger - daily at 07:00".
func (r *Registry) TriggerInfo(id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	if !ok {
		return "", ErrActionNotFound
	}
	return r.triggerInfoLocked(a), nil
}

// ─── Scenes ─────────────────────────────────────────────────────────────────

// AddScene persists a scene and registers the listeners named by its
// ActionIDs. An existing ID is handled as UpdateScene.
func (r *Registry) AddScene(ctx context.Context, s *Scene) error {
	return r.putScene(ctx, s)
}

// UpdateScene replaces a scene. The previous scene's listeners are
// cleared and only the new scene's ActionIDs are registered.
func (r *Registry) UpdateScene(ctx context.Context, s *Scene) error {
	return r.putScene(ctx, s)
}

func (r *Registry) putScene(ctx context.Context, s *Scene) error {
	if s == nil || s.ID == "" {
		return ErrEmptyID
	}
	if err := ValidateScene(s); err != nil {
		r.logger.Warn("rejected scene", "scene_id", s.ID, "error", err)
		return err
	}
	s = s.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.sceneStore.Save(ctx, s.ID, s); err != nil {
		r.logger.Error("failed to persist scene", "scene_id", s.ID, "error", err)
		return fmt.Errorf("saving scene %s: %w", s.ID, err)
	}

	if old, ok := r.scenes[s.ID]; ok {
		old.ClearListeners()
	}
	r.scenes[s.ID] = s
	r.wireSceneLocked(s)

	r.logger.Info("scene saved", "scene_id", s.ID, "listeners", s.ListenerCount())
	r.publish(Event{Type: EventSceneSaved, SceneID: s.ID})
	return nil
}

// DeleteScene clears the scene's listeners and removes it.
func (r *Registry) DeleteScene(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scenes[id]
	if !ok {
		return ErrSceneNotFound
	}
	s.ClearListeners()
	delete(r.scenes, id)

	if _, err := r.sceneStore.DeleteByID(ctx, id); err != nil {
		r.logger.Error("failed to delete stored scene", "scene_id", id, "error", err)
		return fmt.Errorf("deleting scene %s: %w", id, err)
	}

	r.logger.Info("scene deleted", "scene_id", id)
	r.publish(Event{Type: EventSceneDeleted, SceneID: id})
	return nil
}

// GetScene returns a copy of the scene.
func (r *Registry) GetScene(id string) (*Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenes[id]
	if !ok {
		return nil, ErrSceneNotFound
	}
	return s.Clone(), nil
}

// GetScenes returns copies of all scenes sorted by ID.
func (r *Registry) GetScenes() []*Scene {
	r.mu.RLock()
	out := make([]*Scene, 0, len(r.scenes))
	for _, s := range r.scenes {
		out = append(out, s.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SceneListenerCount returns how many actions the scene would start.
// Unknown scenes have none.
func (r *Registry) SceneListenerCount(id string) int {
	r.mu.RLock()
	s, ok := r.scenes[id]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.ListenerCount()
}

// ToggleScene fires every listener on the scene and returns how many ran.
func (r *Registry) ToggleScene(id string) (int, error) {
	r.mu.RLock()
	s, ok := r.scenes[id]
	r.mu.RUnlock()
	if !ok {
		return 0, ErrSceneNotFound
	}

	n := s.Toggle()
	r.logger.Info("scene toggled", "scene_id", id, "listeners", n)
	r.publish(Event{Type: EventSceneToggled, SceneID: id, Listeners: n})
	return n, nil
}

// ActivateScene marks the scene active, persists it and toggles it.
func (r *Registry) ActivateScene(ctx context.Context, id string) (*Scene, error) {
	s, err := r.setSceneActive(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if _, err := r.ToggleScene(id); err != nil {
		return nil, err
	}
	return s, nil
}

// DeactivateScene marks the scene inactive and persists it.
func (r *Registry) DeactivateScene(ctx context.Context, id string) (*Scene, error) {
	return r.setSceneActive(ctx, id, false)
}

func (r *Registry) setSceneActive(ctx context.Context, id string, active bool) (*Scene, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.scenes[id]
	if !ok {
		return nil, ErrSceneNotFound
	}
	prev := s.Active
	s.Active = active
	if err := r.sceneStore.Save(ctx, id, s); err != nil {
		s.Active = prev
		return nil, fmt.Errorf("saving scene %s: %w", id, err)
	}
	r.publish(Event{Type: EventSceneSaved, SceneID: id})
	return s.Clone(), nil
}

// ─── Modules ────────────────────────────────────────────────────────────────

// AddDevicesForModule re-registers the device triggers of every action
// whose trigger device belongs to the module.
func (r *Registry) AddDevicesForModule(moduleID string) int {
	if moduleID == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, a := range r.actions {
		if a.TriggerType != workflow.TriggerDevice {
			continue
		}
		dt, ok := a.Workflow.DeviceTrigger()
		if !ok {
			continue
		}
		d, ok := r.devices.Get(dt.DeviceID)
		if !ok || d.ModuleID != moduleID {
			continue
		}
		if r.wireDeviceLocked(a) {
			n++
		}
	}
	r.logger.Info("module triggers added", "module_id", moduleID, "actions", n)
	return n
}

// RemoveDeviceForModule removes every listener from the module's devices,
// including pending waits.
func (r *Registry) RemoveDeviceForModule(moduleID string) int {
	if moduleID == "" {
		return 0
	}
	devices := r.devices.ByModule(moduleID)
	for _, d := range devices {
		d.RemoveAllListeners()
	}
	r.logger.Info("module triggers removed", "module_id", moduleID, "devices", len(devices))
	return len(devices)
}

// ─── Shutdown ───────────────────────────────────────────────────────────────

// Shutdown stops every time trigger, interrupts waiting runs and drains
// the worker pool until ctx expires. Safe to call more than once.
func (r *Registry) Shutdown(ctx context.Context) error {
	var err error
	r.shutdown.Do(func() {
		r.cancel()

		r.mu.Lock()
		for id, t := range r.timeTriggers {
			t.Stop()
			delete(r.timeTriggers, id)
		}
		r.mu.Unlock()

		err = r.pool.Shutdown(ctx)
		r.logger.Info("automation registry stopped", "error", err)
	})
	return err
}
