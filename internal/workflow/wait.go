package workflow

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/device"
)

// ListenerKey is the device listener key of a pending wait(trigger) node.
func ListenerKey(actionID, nodeID string) string {
	if actionID == "" {
		actionID = "action"
	}
	if nodeID == "" {
		nodeID = "node"
	}
	return fmt.Sprintf("%s-wait-%s", actionID, nodeID)
}

func (w *walker) wait(n *Node, depth int) ([]string, error) {
	cfg := n.WaitConfig
	if cfg == nil {
		return n.NextNodes, nil
	}
	switch cfg.Type {
	case WaitTime:
		return w.sleep(n, cfg)
	case WaitTrigger:
		return w.waitForEvent(n, cfg, depth)
	default:
		w.in.logger.Warn("unknown wait type",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "type", cfg.Type)
		return n.NextNodes, nil
	}
}

// sleep blocks the worker for waitTime seconds. Cancellation aborts the branch.
func (w *walker) sleep(n *Node, cfg *WaitConfig) ([]string, error) {
	if cfg.WaitTime <= 0 {
		return n.NextNodes, nil
	}

	timer := w.in.clock.NewTimer(time.Duration(cfg.WaitTime) * time.Second)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return n.NextNodes, nil
	case <-w.ctx.Done():
		return nil, errAborted
	}
}

// waitForEvent suspends the branch until the device fires the event or the
// timeout passes.
//
// A fired listener claims the wait, removes itself and walks nextNodes on
// the goroutine that delivered the event; this worker only waits for that
// walk to finish. A timeout claims the wait the same way, removes the
// listener and ends the branch without continuing. Whichever side claims
// first wins; later fires are ignored.
func (w *walker) waitForEvent(n *Node, cfg *WaitConfig, depth int) ([]string, error) {
	if cfg.DeviceID == "" || cfg.TriggerEvent == "" {
		return n.NextNodes, nil
	}
	d, ok := w.run.Env.Device(cfg.DeviceID)
	if !ok {
		w.in.logger.Warn("wait device not found",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "device_id", cfg.DeviceID)
		return n.NextNodes, nil
	}

	key := ListenerKey(w.run.ActionID, n.NodeID)
	event := cfg.TriggerEvent
	timeout := w.in.waitTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	var claimed atomic.Bool
	done := make(chan struct{})

	d.AddListener(device.Listener{
		Key:    key,
		Event:  event,
		Params: cfg.TriggerValues,
		Callback: func(any) {
			if !claimed.CompareAndSwap(false, true) {
				return
			}
			defer close(done)
			d.RemoveListener(key, event)
			w.in.logger.Debug("wait trigger fired",
				"action_id", w.run.ActionID, "node_id", n.NodeID, "event", event)
			w.walk(n.NextNodes, depth+1)
		},
	})
	d.TriggerCheckListener(event)

	timer := w.in.clock.NewTimer(timeout)
	defer timer.Stop()

	var abandon error
	select {
	case <-done:
		return nil, nil
	case <-timer.Chan():
	case <-w.ctx.Done():
		abandon = errAborted
	}

	if !claimed.CompareAndSwap(false, true) {
		// The event won the race; its continuation is already running.
		<-done
		return nil, nil
	}
	d.RemoveListener(key, event)
	if abandon == nil {
		w.in.logger.Info("wait trigger timed out",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "event", event, "timeout", timeout)
	}
	return nil, abandon
}
