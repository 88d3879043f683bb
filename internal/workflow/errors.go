package workflow

import "errors"

// Domain errors for workflow loading.
var (
	// ErrEmptyWorkflow is returned when a workflow has no nodes.
	ErrEmptyWorkflow = errors.New("workflow: no nodes")

	// ErrDuplicateNode is returned when two nodes share an id.
	ErrDuplicateNode = errors.New("workflow: duplicate node id")

	// ErrMissingConfig is returned when a node lacks the config its type needs.
	ErrMissingConfig = errors.New("workflow: missing node config")

	// ErrCycle is reported by Check for edges that lead back to a node
	// already on the path.
	ErrCycle = errors.New("workflow: cycle")

	// ErrTooDeep halts a branch that passes MaxDepth nodes.
	ErrTooDeep = errors.New("workflow: maximum depth exceeded")
)

// errAborted ends a branch whose wait was interrupted by shutdown.
var errAborted = errors.New("workflow: branch aborted")
