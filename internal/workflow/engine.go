package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Command names, used in errors, logs and metrics.
const (
	CommandApprove = "approve"
	CommandReject  = "reject"
	CommandSkip    = "skip"
	CommandReset   = "reset"
)

// Engine applies approval commands to step lists. It holds no workflow state:
// every command takes the current steps and returns a new list, leaving the
// input untouched whether or not the command succeeds.
//
// The engine does no locking. Callers serialize writes to one workflow.
type Engine struct {
	authorizer Authorizer
	now        func() time.Time
	newID      func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used to stamp resolved steps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the step id generator used by Instantiate.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine creates an engine that authorizes actors with authorizer.
func NewEngine(authorizer Authorizer, opts ...Option) *Engine {
	e := &Engine{
		authorizer: authorizer,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Instantiate builds the initial step list for a workflow from its templates.
// Every step starts pending with no approver, timestamp or comment. Templates
// that fail ValidateTemplates are refused.
func (e *Engine) Instantiate(templates []StepTemplate) ([]Step, error) {
	if err := ValidateTemplates(templates); err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(templates))
	for _, t := range templates {
		steps = append(steps, Step{
			ID:           e.newID(),
			Name:         t.Name,
			Description:  t.Description,
			ApproverRole: t.ApproverRole.Normalize(),
			Status:       StepPending,
			IsRequired:   t.IsRequired,
			Order:        t.Order,
		})
	}
	return steps, nil
}

// Approve marks a pending step approved on behalf of actor. comment is optional.
func (e *Engine) Approve(steps []Step, stepID string, actor Actor, comment string) (Result, error) {
	return e.resolve(CommandApprove, steps, stepID, actor, func(s *Step) error {
		s.Status = StepApproved
		s.Comments = comment
		return nil
	})
}

// Reject marks a pending step rejected. comment is mandatory and stored as given.
func (e *Engine) Reject(steps []Step, stepID string, actor Actor, comment string) (Result, error) {
	return e.resolve(CommandReject, steps, stepID, actor, func(s *Step) error {
		if strings.TrimSpace(comment) == "" {
			return ErrMissingRejectionComment
		}
		s.Status = StepRejected
		s.Comments = comment
		return nil
	})
}

// Skip marks a pending optional step skipped.
func (e *Engine) Skip(steps []Step, stepID string, actor Actor) (Result, error) {
	return e.resolve(CommandSkip, steps, stepID, actor, func(s *Step) error {
		if s.IsRequired {
			return ErrRequiredStepSkipAttempt
		}
		s.Status = StepSkipped
		s.Comments = ""
		return nil
	})
}

// Reset returns every step to its just-instantiated shape. The actor must be
// able to act on at least one step of the workflow.
func (e *Engine) Reset(steps []Step, actor Actor) (Result, error) {
	if !e.canActOnAny(steps, actor) {
		return Result{}, commandError(CommandReset, "", ErrUnauthorizedActor,
			"role "+string(actor.Role)+" has no approval authority in this workflow")
	}
	if !hasRequired(steps) {
		return Result{}, commandError(CommandReset, "", ErrInvalidTemplate, "workflow has no required step")
	}

	next := CloneSteps(steps)
	for i := range next {
		next[i].Status = StepPending
		next[i].ApproverID = ""
		next[i].ApproverName = ""
		next[i].ApprovedAt = nil
		next[i].Comments = ""
	}
	return Result{Steps: next, Status: StatusOf(next)}, nil
}

// resolve runs the checks shared by approve, reject and skip, then applies
// transition to a copy of the target step and stamps the actor.
func (e *Engine) resolve(command string, steps []Step, stepID string, actor Actor, transition func(*Step) error) (Result, error) {
	idx := indexOf(steps, stepID)
	if idx < 0 {
		return Result{}, commandError(command, stepID, ErrUnknownStep, "")
	}
	current := steps[idx]
	if current.Status != StepPending {
		return Result{}, commandError(command, stepID, ErrInvalidStepState, "status is "+string(current.Status))
	}
	if !e.authorizer.CanAct(current.ApproverRole, actor.Role) {
		return Result{}, commandError(command, stepID, ErrUnauthorizedActor,
			"role "+string(actor.Role)+" cannot act on a "+string(current.ApproverRole)+" step")
	}

	next := CloneSteps(steps)
	target := &next[idx]
	if err := transition(target); err != nil {
		return Result{}, commandError(command, stepID, err, "")
	}
	now := e.now()
	target.ApprovedAt = &now
	target.ApproverID = actor.ID
	target.ApproverName = actor.Name

	return Result{Steps: next, Status: StatusOf(next)}, nil
}

func (e *Engine) canActOnAny(steps []Step, actor Actor) bool {
	for _, s := range steps {
		if e.authorizer.CanAct(s.ApproverRole, actor.Role) {
			return true
		}
	}
	return false
}

func indexOf(steps []Step, stepID string) int {
	for i := range steps {
		if steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

func hasRequired(steps []Step) bool {
	for _, s := range steps {
		if s.IsRequired {
			return true
		}
	}
	return false
}
