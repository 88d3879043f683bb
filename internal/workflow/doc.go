// Package workflow holds the node graph behind an action and the
// interpreter that walks it.
//
// A workflow is a list of nodes joined by id references. Trigger nodes
// mark where a run starts, action nodes drive a device or start another
// action, condition nodes branch on a device property, wait nodes pause
// for a duration or a device event, and loop nodes repeat a body.
//
// Interpretation is synchronous and depth first on the caller's goroutine:
//
//	in := workflow.New(workflow.WithLogger(logger), workflow.WithClock(clock))
//	res := in.Interpret(ctx, workflow.Run{ActionID: id, Graph: workflow.Compile(wf), Env: env})
//
// Failures stay local. Missing devices and actions are logged and skipped,
// a failing node ends only its own branch, and a wait(trigger) that times
// out ends its branch without running nextNodes. A fired wait(trigger)
// runs its continuation on the goroutine that delivered the device event.
package workflow
