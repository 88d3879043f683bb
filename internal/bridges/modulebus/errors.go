package modulebus

import "errors"

var (
	// ErrNoModule is returned when a device without a module id is asked
	// to execute a command.
	ErrNoModule = errors.New("modulebus: device has no module")

	// ErrModuleOffline is returned for commands to a module reported offline.
	ErrModuleOffline = errors.New("modulebus: module offline")

	// ErrUnknownDevice is returned for state reports about unregistered devices.
	ErrUnknownDevice = errors.New("modulebus: unknown device")

	// ErrModuleMismatch is returned when a state report arrives on another
	// module's topic.
	ErrModuleMismatch = errors.New("modulebus: device belongs to another module")

	// ErrInvalidPayload is returned for messages that are not valid JSON.
	ErrInvalidPayload = errors.New("modulebus: invalid payload")
)
