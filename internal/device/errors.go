package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrCommandNotFound) {
//	    // unsupported name/arity for this kind
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidKind is returned for a device type with no catalog.
	ErrInvalidKind = errors.New("device: invalid type")

	// ErrCommandNotFound is returned when a kind has no command with the given name and arity.
	ErrCommandNotFound = errors.New("device: command not found")

	// ErrPropertyNotFound is returned when a kind has no property with the given name and arity.
	ErrPropertyNotFound = errors.New("device: property not found")

	// ErrTooManyArgs is returned for commands with more than two or properties with more than one argument.
	ErrTooManyArgs = errors.New("device: too many arguments")

	// ErrInvalidArgument is returned when an argument cannot be converted to the expected type.
	ErrInvalidArgument = errors.New("device: invalid argument")
)
