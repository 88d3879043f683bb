package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/nerrad567/gray-logic-automation/internal/device"
)

// DefaultWaitTimeout bounds a wait(trigger) node that sets no timeout.
const DefaultWaitTimeout = 24 * time.Hour

// MaxDepth is how many nodes deep one branch may go before it is halted.
// Cyclic nextNodes would otherwise recurse until the stack overflows.
const MaxDepth = 10000

// Logger is the logging interface used by the interpreter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Device is the part of a device a workflow drives. *device.Device satisfies it.
type Device interface {
	InvokeCommand(name string, args ...any) error
	QueryProperty(name string, args ...any) (bool, error)
	AddListener(l device.Listener)
	RemoveListener(key, event string)
	TriggerCheckListener(event string)
}

// Env resolves the devices and actions a workflow refers to by id.
type Env interface {
	// Device returns the device with id.
	Device(id string) (Device, bool)

	// InvokeAction starts another action and reports whether it exists.
	// The target's own busy guard decides whether it actually runs.
	InvokeAction(id string, payload any) bool
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the interpreter's logger.
func WithLogger(l Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithClock sets the clock used for time waits and trigger timeouts.
func WithClock(c clockwork.Clock) Option {
	return func(in *Interpreter) {
		if c != nil {
			in.clock = c
		}
	}
}

// WithDefaultWaitTimeout overrides DefaultWaitTimeout. Non-positive values are ignored.
func WithDefaultWaitTimeout(d time.Duration) Option {
	return func(in *Interpreter) {
		if d > 0 {
			in.waitTimeout = d
		}
	}
}

// Interpreter walks workflow graphs. One Interpreter serves every action;
// it holds no per-run state and is safe for concurrent use.
type Interpreter struct {
	logger      Logger
	clock       clockwork.Clock
	waitTimeout time.Duration
}

// New creates an Interpreter.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		logger:      noopLogger{},
		clock:       clockwork.NewRealClock(),
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Clock returns the interpreter's clock.
func (in *Interpreter) Clock() clockwork.Clock {
	return in.clock
}

// Run is one invocation of an action's workflow.
type Run struct {
	ActionID     string
	Graph        *Graph
	TriggerValue any
	Env          Env
}

// Result summarizes a finished walk.
type Result struct {
	// Nodes is how many nodes were entered, including wait continuations.
	Nodes int
	// Failures is how many branches halted on a node error or panic.
	Failures int
}

// Interpret walks the run's graph from its start node, synchronously and
// depth first, on the calling goroutine. It returns once every branch has
// ended, including continuations of fired waits that ran elsewhere.
//
// Cancelling ctx interrupts waits and stops the walk before the next node.
func (in *Interpreter) Interpret(ctx context.Context, run Run) Result {
	w := &walker{in: in, ctx: ctx, run: run}

	if run.Graph == nil || run.Graph.Start() == nil {
		in.logger.Warn("workflow has no start node", "action_id", run.ActionID)
		return Result{}
	}
	if run.Env == nil {
		in.logger.Error("workflow run without environment", "action_id", run.ActionID)
		return Result{}
	}

	w.exec(run.Graph.Start(), 0)
	return Result{Nodes: int(w.nodes.Load()), Failures: int(w.failures.Load())}
}

// walker is the state of one Interpret call. Wait continuations use it
// from device goroutines, so counters are atomic.
type walker struct {
	in  *Interpreter
	ctx context.Context
	run Run

	nodes    atomic.Int64
	failures atomic.Int64
}

// walk executes the nodes named by ids in order, each at the given depth.
// Unknown ids are skipped.
func (w *walker) walk(ids []string, depth int) {
	for _, id := range ids {
		n, ok := w.run.Graph.Node(id)
		if !ok {
			w.in.logger.Warn("edge to unknown node skipped", "action_id", w.run.ActionID, "node_id", id)
			continue
		}
		w.exec(n, depth)
	}
}

// exec runs one node and then its successors. An error or panic in the
// node ends this branch only.
func (w *walker) exec(n *Node, depth int) {
	if w.ctx.Err() != nil {
		return
	}
	if depth >= MaxDepth {
		w.failures.Add(1)
		w.in.logger.Error("workflow branch halted",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "error", ErrTooDeep, "depth", depth)
		return
	}
	w.nodes.Add(1)

	next, err := w.step(n, depth)
	if err != nil {
		if errors.Is(err, errAborted) {
			w.in.logger.Info("workflow branch interrupted",
				"action_id", w.run.ActionID, "node_id", n.NodeID, "node_type", n.Type)
			return
		}
		w.failures.Add(1)
		w.in.logger.Error("workflow node failed",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "node_type", n.Type, "error", err)
		return
	}
	w.walk(next, depth+1)
}

// step runs a node's own behaviour and returns the ids to continue with.
func (w *walker) step(n *Node, depth int) (next []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	w.in.logger.Debug("workflow node",
		"action_id", w.run.ActionID, "node_id", n.NodeID, "node_type", n.Type)

	switch n.Type {
	case NodeTrigger:
		return n.NextNodes, nil
	case NodeAction:
		w.action(n)
		return n.NextNodes, nil
	case NodeCondition:
		return w.condition(n), nil
	case NodeWait:
		return w.wait(n, depth)
	case NodeLoop:
		return w.loop(n, depth)
	default:
		w.in.logger.Warn("unknown node type, passing through",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "node_type", n.Type)
		return n.NextNodes, nil
	}
}

func (w *walker) action(n *Node) {
	cfg := n.ActionConfig
	if cfg == nil {
		w.in.logger.Warn("action node has no config", "action_id", w.run.ActionID, "node_id", n.NodeID)
		return
	}

	switch cfg.Type {
	case ActionTargetDevice:
		w.deviceCommand(n, cfg)
	case ActionTargetAction:
		if cfg.Action == "" || !w.run.Env.InvokeAction(cfg.Action, nil) {
			w.in.logger.Warn("action not found for action node",
				"action_id", w.run.ActionID, "node_id", n.NodeID, "target", cfg.Action)
		}
	default:
		w.in.logger.Warn("unknown action node type",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "type", cfg.Type)
	}
}

func (w *walker) deviceCommand(n *Node, cfg *ActionConfig) {
	if cfg.DeviceID == "" {
		w.in.logger.Warn("device action has no device id", "action_id", w.run.ActionID, "node_id", n.NodeID)
		return
	}
	d, ok := w.run.Env.Device(cfg.DeviceID)
	if !ok {
		w.in.logger.Warn("device not found for action node",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "device_id", cfg.DeviceID)
		return
	}
	if cfg.Action == "" {
		return
	}
	if len(cfg.Values) > 2 {
		w.in.logger.Warn("device commands take at most 2 arguments",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "command", cfg.Action, "args", len(cfg.Values))
		return
	}

	if err := d.InvokeCommand(cfg.Action, cfg.Values...); err != nil {
		w.in.logger.Error("device command failed",
			"action_id", w.run.ActionID, "node_id", n.NodeID,
			"device_id", cfg.DeviceID, "command", cfg.Action, "error", err)
	}
}

// condition returns the branch to follow. The chosen list may be empty,
// which ends the branch.
func (w *walker) condition(n *Node) []string {
	if n.ConditionConfig == nil {
		w.in.logger.Warn("condition node has no config", "action_id", w.run.ActionID, "node_id", n.NodeID)
		return n.NextNodes
	}
	if w.evaluate(n.ConditionConfig) {
		return n.TrueNodes
	}
	return n.FalseNodes
}

// evaluate queries a device property. Every failure reads as false.
func (w *walker) evaluate(c *ConditionConfig) bool {
	if c == nil || c.DeviceID == "" || c.Property == "" {
		return false
	}
	d, ok := w.run.Env.Device(c.DeviceID)
	if !ok {
		w.in.logger.Debug("condition device not found", "action_id", w.run.ActionID, "device_id", c.DeviceID)
		return false
	}
	result, err := d.QueryProperty(c.Property, c.Values...)
	if err != nil {
		w.in.logger.Debug("condition evaluated false",
			"action_id", w.run.ActionID, "device_id", c.DeviceID, "property", c.Property, "error", err)
		return false
	}
	return result
}

func (w *walker) loop(n *Node, depth int) ([]string, error) {
	cfg := n.LoopConfig
	if cfg == nil || len(n.LoopNodes) == 0 {
		return n.NextNodes, nil
	}

	switch cfg.Type {
	case LoopFor:
		for i := 0; i < cfg.Count; i++ {
			if w.ctx.Err() != nil {
				return nil, errAborted
			}
			w.walk(n.LoopNodes, depth+1)
		}
	case LoopWhile:
		for i := 1; ; i++ {
			if cfg.MaxIterations > 0 && i > cfg.MaxIterations {
				w.in.logger.Info("while loop reached iteration cap",
					"action_id", w.run.ActionID, "node_id", n.NodeID, "max_iterations", cfg.MaxIterations)
				break
			}
			if w.ctx.Err() != nil {
				return nil, errAborted
			}
			if !w.evaluate(cfg.Condition) {
				break
			}
			w.walk(n.LoopNodes, depth+1)
		}
	default:
		w.in.logger.Warn("unknown loop type",
			"action_id", w.run.ActionID, "node_id", n.NodeID, "type", cfg.Type)
	}
	return n.NextNodes, nil
}
