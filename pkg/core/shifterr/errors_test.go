package shifterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := Wrap(StorageFailure, "startShift", errors.New("connection refused"), "failed to upload evidence")
	assert.Equal(t, "startShift: failed to upload evidence: connection refused", err.Error())

	err = New(Validation, "", "location name is required")
	assert.Equal(t, "location name is required", err.Error())
}

func TestError_IsMatchesKind(t *testing.T) {
	err := New(NotFound, "endShift", "no open shift with id %s", "abc")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))

	wrapped := fmt.Errorf("checkout command: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, NotFound, KindOf(wrapped))
}

func TestError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(StorageFailure, "endShift", cause, "failed to update record")

	assert.True(t, errors.Is(err, cause))
	assert.True(t, Is(err, StorageFailure))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestUserFacing(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected bool
	}{
		{Validation, true},
		{NotFound, true},
		{InvalidState, true},
		{InvariantViolation, false},
		{StorageFailure, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, UserFacing(New(tt.kind, "op", "msg")))
		})
	}
}
