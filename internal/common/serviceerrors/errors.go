// Package serviceerrors contains generic error types shared by the
// producer and consumer services.
package serviceerrors

import (
	"fmt"
)

// ErrInvalidArgument represents an invalid configuration or call argument.
type ErrInvalidArgument struct {
	// Name of the argument
	Name string
	// Value provided
	Value interface{}
	// Optional message included with the error message
	Message string
}

func (err *ErrInvalidArgument) Error() (s string) {
	s = fmt.Sprintf("value %v of %s is invalid", err.Value, err.Name)
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ErrNotFound is returned whenever some resource isn't found.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrNotFound struct {
	Type    string // Resource type, e.g., "run" or "stf file"
	Value   string // Resource key, e.g., a file id
	Message string // An optional message to include in the error message
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q could not be found", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q could not be found", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	}
	return s
}
