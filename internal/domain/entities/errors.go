package entities

import (
	"errors"
	"fmt"
)

// ErrMissingRequiredParameter is wrapped by configuration errors for
// required parameters that have no resolution path
var ErrMissingRequiredParameter = errors.New("missing required parameter")

// ErrOddRuntimeParameters is returned for a key/value list with a dangling key
var ErrOddRuntimeParameters = errors.New("runtime parameters must be key/value pairs")

// ErrNotFound is returned when a stored record does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidName is returned for target or exploit names that cannot be
// used as a file name
var ErrInvalidName = errors.New("invalid name")

// ErrInterrupted is returned when the operator interrupts a run
var ErrInterrupted = errors.New("run interrupted")

// ConfigurationError means an exploit cannot be built from its descriptor.
// It is fatal to that exploit only.
type ConfigurationError struct {
	Exploit   string
	Parameter string
	Err       error
}

func (e *ConfigurationError) Error() string {
	if e.Parameter != "" {
		return fmt.Sprintf("exploit %s: parameter %s: %v", e.Exploit, e.Parameter, e.Err)
	}
	return fmt.Sprintf("exploit %s: %v", e.Exploit, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
