package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine and definition providers. Every
// failed command wraps exactly one of them.
var (
	ErrUnknownTemplate         = errors.New("workflow: unknown template")
	ErrInvalidTemplate         = errors.New("workflow: invalid step templates")
	ErrUnknownStep             = errors.New("workflow: unknown step")
	ErrInvalidStepState        = errors.New("workflow: step is not pending")
	ErrUnauthorizedActor       = errors.New("workflow: actor is not authorized")
	ErrMissingRejectionComment = errors.New("workflow: rejection comment is required")
	ErrRequiredStepSkipAttempt = errors.New("workflow: required step cannot be skipped")
)

// CommandError describes a rejected command. It unwraps to its sentinel.
type CommandError struct {
	Command string
	StepID  string
	Detail  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := e.Err.Error()
	if e.StepID != "" {
		msg = fmt.Sprintf("%s (command=%s step=%s)", msg, e.Command, e.StepID)
	} else {
		msg = fmt.Sprintf("%s (command=%s)", msg, e.Command)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

func commandError(command, stepID string, err error, detail string) error {
	return &CommandError{Command: command, StepID: stepID, Detail: detail, Err: err}
}

// Reason returns a short machine-readable name for a workflow sentinel, or
// the empty string when err wraps none of them.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownTemplate):
		return "unknown_template"
	case errors.Is(err, ErrInvalidTemplate):
		return "invalid_template"
	case errors.Is(err, ErrUnknownStep):
		return "unknown_step"
	case errors.Is(err, ErrInvalidStepState):
		return "invalid_step_state"
	case errors.Is(err, ErrUnauthorizedActor):
		return "unauthorized_actor"
	case errors.Is(err, ErrMissingRejectionComment):
		return "missing_rejection_comment"
	case errors.Is(err, ErrRequiredStepSkipAttempt):
		return "required_step_skip_attempt"
	}
	return ""
}
