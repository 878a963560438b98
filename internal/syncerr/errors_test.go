package syncerr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err       error
		name      string
		kind      Kind
		retryable bool
	}{
		{name: "network", err: Network(io.ErrUnexpectedEOF), kind: KindNetwork, retryable: true},
		{name: "wrapped network", err: fmt.Errorf("push: %w", Network(io.EOF)), kind: KindNetwork, retryable: true},
		{name: "validation", err: Validation("c1", "missing %s", "entity_id"), kind: KindValidation},
		{name: "auth", err: AuthExpired(errors.New("401")), kind: KindAuth},
		{name: "plain error", err: errors.New("boom"), kind: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("sync: %w", Validation("c1", "bad payload"))

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, Network(io.EOF), io.EOF)
	assert.Equal(t, "validation: change c1: bad payload", errors.Unwrap(err).Error())
	assert.False(t, IsRetryable(nil))
}

func TestUnreachable(t *testing.T) {
	err := fmt.Errorf("push: %w", Unreachable(io.EOF))

	assert.ErrorIs(t, err, ErrUnreachable)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, IsRetryable(err))
	assert.NotErrorIs(t, Network(io.EOF), ErrUnreachable)
}
