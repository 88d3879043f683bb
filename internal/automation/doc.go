// Package automation owns actions, scenes and the triggers that start
// actions.
//
// An Action is a workflow (see package workflow) plus a trigger type:
//
//   - manual: every scene gets a listener for the action, so toggling any
//     scene runs it
//   - device: a listener on the trigger device's event; parameterized
//     events ("stateChanged:brightness") pass their value to the run
//   - time: a schedule.Trigger firing daily, weekly, monthly or yearly
//
// Every action has one Invocable. Invoke is an atomic test-and-set on a
// busy flag followed by a submit to the worker pool; a trigger arriving
// while the action runs is dropped, never queued.
//
// # Architecture
//
//	scene toggle ─┐
//	device event ─┼─▶ Invocable.Invoke ─▶ workerpool ─▶ workflow.Interpret
//	time trigger ─┘         │                                │
//	                        └──── Event sinks ◀──────────────┘
//	                        (audit log, metrics, WebSocket)
//
// Registry persists through ActionStore and SceneStore before updating its
// maps, so a failed write leaves memory unchanged. UpdateAction is a
// delete followed by an add and is not atomic.
//
// # Usage
//
//	reg, err := automation.NewRegistry(automation.Deps{
//	    Actions: store.NewCollection[*automation.Action](s, store.KindAction),
//	    Scenes:  store.NewCollection[*automation.Scene](s, store.KindScene),
//	    Devices: devices,
//	    Pool:    workerpool.New(cfg.Automation.WorkerPoolSize),
//	    Logger:  log.Component("automation"),
//	})
//	if err := reg.Load(ctx); err != nil {
//	    return err
//	}
//	defer reg.Shutdown(shutdownCtx)
package automation
