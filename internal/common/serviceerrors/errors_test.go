package serviceerrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrInvalidArgument(t *testing.T) {
	err := &ErrInvalidArgument{Name: "sampling.fraction", Value: 1.5}
	assert.Equal(t, "value 1.5 of sampling.fraction is invalid", err.Error())

	err.Message = "must be between 0.0 and 1.0"
	assert.Equal(t, "value 1.5 of sampling.fraction is invalid; must be between 0.0 and 1.0", err.Error())
}

func TestErrNotFound(t *testing.T) {
	err := &ErrNotFound{Value: "100123"}
	assert.Equal(t, `resource "100123" could not be found`, err.Error())

	err.Type = "run"
	assert.Equal(t, `resource "100123" of type "run" could not be found`, err.Error())

	err.Message = "was it ever registered?"
	assert.Equal(t, `resource "100123" of type "run" could not be found; was it ever registered?`, err.Error())
}
