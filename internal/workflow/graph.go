package workflow

import (
	"fmt"
)

// Config is the typed configuration of a node, selected by its type.
// It is one of TriggerConfig, ActionConfig, ConditionConfig, WaitConfig
// or LoopConfig (all by pointer), or nil.
type Config interface {
	nodeConfig()
}

func (*TriggerConfig) nodeConfig()   {}
func (*ActionConfig) nodeConfig()    {}
func (*ConditionConfig) nodeConfig() {}
func (*WaitConfig) nodeConfig()      {}
func (*LoopConfig) nodeConfig()      {}

// Config returns the config matching the node's type. Configs present for
// other types are ignored. Nil when the matching config is absent or the
// type is unknown.
func (n *Node) Config() Config {
	switch n.Type {
	case NodeTrigger:
		if n.TriggerConfig != nil {
			return n.TriggerConfig
		}
	case NodeAction:
		if n.ActionConfig != nil {
			return n.ActionConfig
		}
	case NodeCondition:
		if n.ConditionConfig != nil {
			return n.ConditionConfig
		}
	case NodeWait:
		if n.WaitConfig != nil {
			return n.WaitConfig
		}
	case NodeLoop:
		if n.LoopConfig != nil {
			return n.LoopConfig
		}
	}
	return nil
}

// Known reports whether the node type is one the interpreter dispatches on.
func (t NodeType) Known() bool {
	switch t {
	case NodeTrigger, NodeAction, NodeCondition, NodeWait, NodeLoop:
		return true
	}
	return false
}

// Graph is a workflow indexed for interpretation. It is read-only once built.
type Graph struct {
	nodes []*Node
	byID  map[string]*Node
	start *Node
}

// Compile indexes a workflow. Duplicate ids keep the first node.
// A workflow without nodes compiles to a graph with no start node.
func Compile(w Workflow) *Graph {
	g := &Graph{
		nodes: make([]*Node, 0, len(w.Nodes)),
		byID:  make(map[string]*Node, len(w.Nodes)),
	}
	for i := range w.Nodes {
		n := w.Nodes[i]
		if _, dup := g.byID[n.NodeID]; dup {
			continue
		}
		g.nodes = append(g.nodes, &n)
		g.byID[n.NodeID] = &n
	}
	g.start = g.resolveStart(w.StartNodeID)
	return g
}

// resolveStart picks the explicit start node, then the first trigger node,
// then the first node.
func (g *Graph) resolveStart(startID string) *Node {
	if startID != "" {
		if n, ok := g.byID[startID]; ok {
			return n
		}
	}
	for _, n := range g.nodes {
		if n.Type == NodeTrigger {
			return n
		}
	}
	if len(g.nodes) > 0 {
		return g.nodes[0]
	}
	return nil
}

// Start returns the entry node, or nil for an empty workflow.
func (g *Graph) Start() *Node {
	return g.start
}

// Node returns the node with id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Len returns the number of distinct nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// TriggerNode returns the first trigger node, preferring the start node.
func (g *Graph) TriggerNode() *Node {
	if g.start != nil && g.start.Type == NodeTrigger {
		return g.start
	}
	for _, n := range g.nodes {
		if n.Type == NodeTrigger {
			return n
		}
	}
	return nil
}

// DeviceTrigger returns the device trigger of the workflow's trigger node.
func (w Workflow) DeviceTrigger() (*DeviceTrigger, bool) {
	n := Compile(w).TriggerNode()
	if n == nil || n.TriggerConfig == nil || n.TriggerConfig.Device == nil {
		return nil, false
	}
	return n.TriggerConfig.Device, true
}

// TimeTrigger returns the time trigger of the workflow's trigger node.
func (w Workflow) TimeTrigger() (*TimeTrigger, bool) {
	n := Compile(w).TriggerNode()
	if n == nil || n.TriggerConfig == nil || n.TriggerConfig.Time == nil {
		return nil, false
	}
	return n.TriggerConfig.Time, true
}

// Check reports structural problems: no nodes, duplicate ids, edges
// pointing nowhere and cycles. The interpreter tolerates all of these;
// Check exists so editors can warn before saving.
func (w Workflow) Check() []error {
	if len(w.Nodes) == 0 {
		return []error{ErrEmptyWorkflow}
	}

	var errs []error
	seen := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if seen[n.NodeID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNode, n.NodeID))
		}
		seen[n.NodeID] = true
	}

	for _, n := range w.Nodes {
		if n.Type.Known() && n.Type != NodeTrigger && n.Config() == nil {
			errs = append(errs, fmt.Errorf("%w: %s node %s", ErrMissingConfig, n.Type, n.NodeID))
		}
		for _, edges := range [][]string{n.NextNodes, n.TrueNodes, n.FalseNodes, n.LoopNodes} {
			for _, id := range edges {
				if !seen[id] {
					errs = append(errs, fmt.Errorf("node %s: edge to unknown node %s", n.NodeID, id))
				}
			}
		}
	}
	return append(errs, w.cycles()...)
}

// cycles finds back edges with a depth-first search. Each one closes a
// loop the walker would follow until it reaches MaxDepth.
func (w Workflow) cycles() []error {
	const (
		unvisited = iota
		onPath
		done
	)

	byID := make(map[string]*Node, len(w.Nodes))
	for i := range w.Nodes {
		if _, dup := byID[w.Nodes[i].NodeID]; !dup {
			byID[w.Nodes[i].NodeID] = &w.Nodes[i]
		}
	}

	var errs []error
	state := make(map[string]int, len(byID))
	var visit func(n *Node)
	visit = func(n *Node) {
		state[n.NodeID] = onPath
		for _, edges := range [][]string{n.NextNodes, n.TrueNodes, n.FalseNodes, n.LoopNodes} {
			for _, id := range edges {
				next, ok := byID[id]
				if !ok {
					continue
				}
				switch state[id] {
				case onPath:
					errs = append(errs, fmt.Errorf("%w: node %s leads back to %s", ErrCycle, n.NodeID, id))
				case unvisited:
					visit(next)
				}
			}
		}
		state[n.NodeID] = done
	}

	for i := range w.Nodes {
		if state[w.Nodes[i].NodeID] == unvisited {
			visit(byID[w.Nodes[i].NodeID])
		}
	}
	return errs
}
