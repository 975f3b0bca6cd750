package core

import "errors"

// Sentinel errors shared by the renderer backends. Protocol violations are
// reported through the Logger by the caller; data validation failures are
// returned to the caller of the protocol operation.
var (
	// ErrStackUnderflow is returned when popping the last scope of a stack
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrTooManySamples is returned when a motion block receives more writes than declared times
	ErrTooManySamples = errors.New("too many motion samples")

	// ErrMissingVariable is returned when a primitive lacks a variable required for conversion
	ErrMissingVariable = errors.New("missing primitive variable")

	// ErrTopologyMismatch is returned when motion samples do not share topology
	ErrTopologyMismatch = errors.New("primitive topology mismatch")

	// ErrUnsupportedPrimitive is returned for primitive types a backend cannot convert
	ErrUnsupportedPrimitive = errors.New("unsupported primitive type")

	// ErrUnknownModel is returned when a model name has no registered factory
	ErrUnknownModel = errors.New("unknown model")

	// ErrInvalidValue is returned when a parameter has the wrong type
	ErrInvalidValue = errors.New("invalid value")
)
