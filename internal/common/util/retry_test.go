package util

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRetryUntilSuccess(t *testing.T) {
	attempts := 0
	onErrorCalls := 0
	RetryUntilSuccess(
		context.Background(),
		func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		},
		func(err error) { onErrorCalls++ },
	)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, onErrorCalls)
}

func TestRetryUntilSuccessStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	RetryUntilSuccess(
		ctx,
		func() error {
			attempts++
			if attempts == 5 {
				cancel()
			}
			return errors.New("always failing")
		},
		func(err error) {},
	)
	assert.Equal(t, 5, attempts)
}
