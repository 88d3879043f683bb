package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrActionNotFound) {
//	    // handle not found case
//	}
var (
	// ErrActionNotFound is returned when an action ID does not exist.
	ErrActionNotFound = errors.New("action: not found")

	// ErrInvalidAction is returned when action validation fails.
	ErrInvalidAction = errors.New("action: invalid")

	// ErrSceneNotFound is returned when a scene ID does not exist.
	ErrSceneNotFound = errors.New("scene: not found")

	// ErrInvalidScene is returned when scene validation fails.
	ErrInvalidScene = errors.New("scene: invalid")

	// ErrEmptyID is returned when an action or scene has no ID.
	ErrEmptyID = errors.New("automation: empty id")
)
