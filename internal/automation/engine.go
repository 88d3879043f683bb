package automation

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-automation/internal/workflow"
)

// Invocable runs one action's workflow on the registry's worker pool and
// refuses to start while a previous run is still in progress.
//
// A refused trigger is dropped, not queued.
type Invocable struct {
	action *Action
	graph  *workflow.Graph
	busy   atomic.Bool
	r      *Registry
}

func newInvocable(r *Registry, a *Action) *Invocable {
	return &Invocable{action: a, graph: workflow.Compile(a.Workflow), r: r}
}

// ActionID returns the ID of the action this invocable runs.
func (inv *Invocable) ActionID() string {
	return inv.action.ActionID
}

// Busy reports whether a run is in progress.
func (inv *Invocable) Busy() bool {
	return inv.busy.Load()
}

// Invoke starts a run with payload as the trigger value. It returns false
// when the action is already running or the pool refused the work.
func (inv *Invocable) Invoke(payload any) bool {
	r := inv.r
	if !inv.busy.CompareAndSwap(false, true) {
		r.logger.Info("action invocation dropped",
			"action_id", inv.action.ActionID, "reason", ReasonBusy)
		r.publish(Event{
			Type:        EventActionDropped,
			ActionID:    inv.action.ActionID,
			ActionName:  inv.action.Name,
			TriggerType: inv.action.TriggerType,
			Reason:      ReasonBusy,
		})
		return false
	}

	runID := uuid.NewString()
	err := r.pool.TrySubmit(func() {
		defer inv.busy.Store(false)
		inv.run(runID, payload)
	})
	if err != nil {
		inv.busy.Store(false)
		r.logger.Warn("action invocation dropped",
			"action_id", inv.action.ActionID, "reason", err.Error())
		r.publish(Event{
			Type:        EventActionDropped,
			ActionID:    inv.action.ActionID,
			ActionName:  inv.action.Name,
			TriggerType: inv.action.TriggerType,
			Reason:      err.Error(),
		})
		return false
	}
	return true
}

// run walks the workflow on the current pool worker.
func (inv *Invocable) run(runID string, payload any) {
	r := inv.r
	a := inv.action
	started := r.clock.Now()

	r.logger.Debug("action run started", "action_id", a.ActionID, "run_id", runID)
	r.publish(Event{
		Type:        EventActionStarted,
		ActionID:    a.ActionID,
		ActionName:  a.Name,
		RunID:       runID,
		TriggerType: a.TriggerType,
	})

	res := r.interp.Interpret(r.ctx, workflow.Run{
		ActionID:     a.ActionID,
		Graph:        inv.graph,
		TriggerValue: payload,
		Env:          registryEnv{r: r},
	})

	elapsed := r.clock.Since(started)
	r.logger.Info("action run completed",
		"action_id", a.ActionID,
		"run_id", runID,
		"nodes", res.Nodes,
		"failures", res.Failures,
		"duration_ms", elapsed.Milliseconds(),
	)
	r.publish(Event{
		Type:        EventActionCompleted,
		ActionID:    a.ActionID,
		ActionName:  a.Name,
		RunID:       runID,
		TriggerType: a.TriggerType,
		Nodes:       res.Nodes,
		Failures:    res.Failures,
		Duration:    elapsed,
	})
}

// registryEnv resolves devices and nested actions for the interpreter.
type registryEnv struct {
	r *Registry
}

func (e registryEnv) Device(id string) (workflow.Device, bool) {
	d, ok := e.r.devices.Get(id)
	if !ok || d == nil {
		return nil, false
	}
	return d, true
}

func (e registryEnv) InvokeAction(id string, payload any) bool {
	return e.r.InvokeAction(id, payload)
}
