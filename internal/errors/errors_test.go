package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	cause := stderrors.New("boom")

	assert.Equal(t, ErrCodeNotFound, CodeOf(NotFound("workflow", "wo-1")))
	assert.Equal(t, ErrCodeInvalidInput, CodeOf(InvalidInput("comment", "required")))
	assert.Equal(t, ErrCodeConflict, CodeOf(fmt.Errorf("outer: %w", Conflict("stale"))))
	assert.Equal(t, ErrCodeInternal, CodeOf(cause))
	assert.True(t, Is(Wrap(cause, ErrCodeForbidden, "nope"), ErrCodeForbidden))
	assert.False(t, Is(nil, ErrCodeInternal))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "failed to save")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INTERNAL: failed to save: boom", err.Error())
}

func TestErrorStrings(t *testing.T) {
	assert.Equal(t, "INVALID_INPUT: comment: required", InvalidInput("comment", "required").Error())
	assert.Equal(t, "NOT_FOUND: workflow not found: wo-1", NotFound("workflow", "wo-1").Error())

	err := InvalidInput("comment", "required")
	err.Err = stderrors.New("blank")
	assert.Equal(t, "INVALID_INPUT: comment: required: blank", err.Error())
}

func TestWithReason(t *testing.T) {
	err := New(ErrCodeConflict, "step is not pending").WithReason("invalid_step_state")
	appErr, ok := As(fmt.Errorf("wrapped: %w", err))
	assert.True(t, ok)
	assert.Equal(t, "invalid_step_state", appErr.Reason)
}
