package service

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/pesio-ai/be-wo-approvals/internal/auth"
	"github.com/pesio-ai/be-wo-approvals/internal/client"
	"github.com/pesio-ai/be-wo-approvals/internal/errors"
	"github.com/pesio-ai/be-wo-approvals/internal/logger"
	"github.com/pesio-ai/be-wo-approvals/internal/metrics"
	"github.com/pesio-ai/be-wo-approvals/internal/repository"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

// WorkflowStore persists workflows. Implemented by repository.WorkflowRepository
// and repository.MemoryRepository.
type WorkflowStore interface {
	Create(ctx context.Context, wf *repository.Workflow) error
	Get(ctx context.Context, workOrderID string) (*repository.Workflow, error)
	Save(ctx context.Context, workOrderID string, steps []workflow.Step, status workflow.Status, expectedVersion int) (int, error)
}

// EventPublisher delivers workflow events. Publishing never fails a command.
type EventPublisher interface {
	Publish(ctx context.Context, event client.WorkflowEvent)
}

// Recorder counts command outcomes.
type Recorder interface {
	CommandCompleted(command, outcome string)
	WorkflowOutcome(status string)
}

// RoleLister reports the roles known to the authorizer.
type RoleLister interface {
	Roles() []workflow.Role
}

// ApprovalService runs approval commands against stored workflows: load,
// apply through the engine, save once, then notify.
type ApprovalService struct {
	store       WorkflowStore
	definitions workflow.DefinitionProvider
	engine      *workflow.Engine
	roles       RoleLister
	publisher   EventPublisher
	recorder    Recorder
	log         *logger.Logger
}

// NewApprovalService creates a new ApprovalService. publisher and recorder
// may be nil.
func NewApprovalService(
	store WorkflowStore,
	definitions workflow.DefinitionProvider,
	engine *workflow.Engine,
	roles RoleLister,
	publisher EventPublisher,
	recorder Recorder,
	log *logger.Logger,
) *ApprovalService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ApprovalService{
		store:       store,
		definitions: definitions,
		engine:      engine,
		roles:       roles,
		publisher:   publisher,
		recorder:    recorder,
		log:         log,
	}
}

// WorkflowView is a workflow with its derived queries.
type WorkflowView struct {
	WorkOrderID string
	Category    string
	Status      workflow.Status
	Steps       []workflow.Step
	CurrentStep *workflow.Step
	Progress    int
	Version     int
}

// CommandRequest addresses one step of a workflow. ExpectedVersion 0 means
// the version just loaded.
type CommandRequest struct {
	WorkOrderID     string
	StepID          string
	Comment         string
	ExpectedVersion int
}

// ── Workflow lifecycle ────────────────────────────────────────────────────────

// StartWorkflow instantiates the category's definition for a work order.
func (s *ApprovalService) StartWorkflow(ctx context.Context, workOrderID, category string, actor workflow.Actor) (*WorkflowView, error) {
	if err := auth.RequireActor(actor); err != nil {
		return nil, err
	}
	workOrderID = strings.TrimSpace(workOrderID)
	if workOrderID == "" {
		return nil, errors.InvalidInput("work_order_id", "work order id is required")
	}
	if strings.TrimSpace(category) == "" {
		return nil, errors.InvalidInput("category", "category is required")
	}

	templates, err := s.definitions.Resolve(ctx, category)
	if err != nil {
		return nil, mapEngineError(err)
	}

	steps, err := s.engine.Instantiate(templates)
	if err != nil {
		return nil, mapEngineError(err)
	}
	wf := &repository.Workflow{
		WorkOrderID: workOrderID,
		Category:    workflow.NormalizeCategory(category),
		Status:      workflow.StatusOf(steps),
		Steps:       steps,
	}
	if err := s.store.Create(ctx, wf); err != nil {
		return nil, err
	}

	view := newView(wf)
	s.publish(ctx, client.EventWorkflowStarted, view, nil, actor, "")

	s.log.Info().
		Str("work_order_id", wf.WorkOrderID).
		Str("category", wf.Category).
		Str("actor_id", actor.ID).
		Int("steps", len(steps)).
		Msg("Approval workflow started")

	return view, nil
}

// GetWorkflow returns the stored workflow with status, current step and
// progress.
func (s *ApprovalService) GetWorkflow(ctx context.Context, workOrderID string) (*WorkflowView, error) {
	if strings.TrimSpace(workOrderID) == "" {
		return nil, errors.InvalidInput("work_order_id", "work order id is required")
	}
	wf, err := s.store.Get(ctx, workOrderID)
	if err != nil {
		return nil, err
	}
	return newView(wf), nil
}

// ── Commands ──────────────────────────────────────────────────────────────────

// Approve approves one pending step.
func (s *ApprovalService) Approve(ctx context.Context, req CommandRequest, actor workflow.Actor) (*WorkflowView, error) {
	return s.runStep(ctx, workflow.CommandApprove, req, actor, func(steps []workflow.Step) (workflow.Result, error) {
		return s.engine.Approve(steps, req.StepID, actor, req.Comment)
	})
}

// Reject rejects one pending step. A comment is required.
func (s *ApprovalService) Reject(ctx context.Context, req CommandRequest, actor workflow.Actor) (*WorkflowView, error) {
	return s.runStep(ctx, workflow.CommandReject, req, actor, func(steps []workflow.Step) (workflow.Result, error) {
		return s.engine.Reject(steps, req.StepID, actor, req.Comment)
	})
}

// Skip skips one pending optional step.
func (s *ApprovalService) Skip(ctx context.Context, req CommandRequest, actor workflow.Actor) (*WorkflowView, error) {
	return s.runStep(ctx, workflow.CommandSkip, req, actor, func(steps []workflow.Step) (workflow.Result, error) {
		return s.engine.Skip(steps, req.StepID, actor)
	})
}

// Reset returns every step of the workflow to pending.
func (s *ApprovalService) Reset(ctx context.Context, workOrderID string, expectedVersion int, actor workflow.Actor) (*WorkflowView, error) {
	req := CommandRequest{WorkOrderID: workOrderID, ExpectedVersion: expectedVersion}
	return s.run(ctx, workflow.CommandReset, req, actor, func(steps []workflow.Step) (workflow.Result, error) {
		return s.engine.Reset(steps, actor)
	})
}

func (s *ApprovalService) runStep(
	ctx context.Context,
	command string,
	req CommandRequest,
	actor workflow.Actor,
	apply func([]workflow.Step) (workflow.Result, error),
) (*WorkflowView, error) {
	if strings.TrimSpace(req.StepID) == "" {
		err := errors.InvalidInput("step_id", "step id is required")
		s.recordFailure(command, req, actor, err)
		return nil, err
	}
	return s.run(ctx, command, req, actor, apply)
}

// run loads the workflow, applies the command and saves the result once.
func (s *ApprovalService) run(
	ctx context.Context,
	command string,
	req CommandRequest,
	actor workflow.Actor,
	apply func([]workflow.Step) (workflow.Result, error),
) (*WorkflowView, error) {
	view, err := s.execute(ctx, command, req, actor, apply)
	if err != nil {
		s.recordFailure(command, req, actor, err)
		return nil, err
	}
	s.recorder.CommandCompleted(command, metrics.OutcomeSuccess)
	return view, nil
}

func (s *ApprovalService) execute(
	ctx context.Context,
	command string,
	req CommandRequest,
	actor workflow.Actor,
	apply func([]workflow.Step) (workflow.Result, error),
) (*WorkflowView, error) {
	if err := auth.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.WorkOrderID) == "" {
		return nil, errors.InvalidInput("work_order_id", "work order id is required")
	}
	if req.ExpectedVersion < 0 {
		return nil, errors.InvalidInput("expected_version", "expected version cannot be negative")
	}

	wf, err := s.store.Get(ctx, req.WorkOrderID)
	if err != nil {
		return nil, err
	}
	expected := wf.Version
	if req.ExpectedVersion != 0 {
		if req.ExpectedVersion != wf.Version {
			return nil, errors.Conflict("workflow has been modified since it was read").WithReason("stale_version")
		}
		expected = req.ExpectedVersion
	}

	result, err := apply(wf.Steps)
	if err != nil {
		return nil, mapEngineError(err)
	}

	version, err := s.store.Save(ctx, wf.WorkOrderID, result.Steps, result.Status, expected)
	if err != nil {
		return nil, err
	}

	previous := wf.Status
	wf.Steps = result.Steps
	wf.Status = result.Status
	wf.Version = version
	view := newView(wf)

	var step *workflow.Step
	eventType := client.EventWorkflowReset
	if command != workflow.CommandReset {
		step = findStep(view.Steps, req.StepID)
		eventType = stepEventType(command)
	}
	s.publish(ctx, eventType, view, step, actor, req.Comment)

	if view.Status != previous {
		switch view.Status {
		case workflow.StatusApproved:
			s.publish(ctx, client.EventWorkflowApproved, view, nil, actor, "")
			s.recorder.WorkflowOutcome(string(view.Status))
		case workflow.StatusRejected:
			s.publish(ctx, client.EventWorkflowRejected, view, nil, actor, "")
			s.recorder.WorkflowOutcome(string(view.Status))
		}
	}

	s.log.Info().
		Str("command", command).
		Str("work_order_id", view.WorkOrderID).
		Str("step_id", req.StepID).
		Str("actor_id", actor.ID).
		Str("status", string(view.Status)).
		Int("version", view.Version).
		Msg("Approval command applied")

	return view, nil
}

func (s *ApprovalService) recordFailure(command string, req CommandRequest, actor workflow.Actor, err error) {
	code := errors.CodeOf(err)
	s.recorder.CommandCompleted(command, strings.ToLower(string(code)))

	event := s.log.Warn()
	if code == errors.ErrCodeInternal {
		event = s.log.Error()
	}
	event.Err(err).
		Str("command", command).
		Str("work_order_id", req.WorkOrderID).
		Str("step_id", req.StepID).
		Str("actor_id", actor.ID).
		Str("code", string(code)).
		Msg("Approval command refused")
}

// ── Discovery ─────────────────────────────────────────────────────────────────

// ListRoles returns the roles the authorizer knows.
func (s *ApprovalService) ListRoles() []workflow.Role {
	if s.roles == nil {
		return nil
	}
	return s.roles.Roles()
}

// ListCategories returns the available workflow definitions when the
// definition source can enumerate them.
func (s *ApprovalService) ListCategories(ctx context.Context) ([]workflow.Definition, error) {
	lister, ok := s.definitions.(workflow.DefinitionLister)
	if !ok {
		return nil, nil
	}
	defs, err := lister.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflow definitions")
	}
	return defs, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// mapEngineError classifies an engine failure. The sentinel stays reachable
// through errors.Is.
func mapEngineError(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}

	var code errors.ErrorCode
	switch {
	case stderrors.Is(err, workflow.ErrUnknownTemplate), stderrors.Is(err, workflow.ErrUnknownStep):
		code = errors.ErrCodeNotFound
	case stderrors.Is(err, workflow.ErrInvalidStepState):
		code = errors.ErrCodeConflict
	case stderrors.Is(err, workflow.ErrUnauthorizedActor):
		code = errors.ErrCodeForbidden
	case stderrors.Is(err, workflow.ErrMissingRejectionComment), stderrors.Is(err, workflow.ErrRequiredStepSkipAttempt):
		code = errors.ErrCodeInvalidInput
	case stderrors.Is(err, workflow.ErrInvalidTemplate):
		return errors.Wrap(err, errors.ErrCodeInternal, "workflow definition is malformed").WithReason(workflow.Reason(err))
	default:
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to resolve workflow definition")
	}

	appErr := errors.Wrap(err, code, "approval command refused").WithReason(workflow.Reason(err))
	if code == errors.ErrCodeInvalidInput {
		appErr.Field = "comment"
		if stderrors.Is(err, workflow.ErrRequiredStepSkipAttempt) {
			appErr.Field = "step_id"
		}
	}
	return appErr
}

func newView(wf *repository.Workflow) *WorkflowView {
	view := &WorkflowView{
		WorkOrderID: wf.WorkOrderID,
		Category:    wf.Category,
		Status:      workflow.StatusOf(wf.Steps),
		Steps:       workflow.CloneSteps(wf.Steps),
		Progress:    workflow.ProgressPercentage(wf.Steps),
		Version:     wf.Version,
	}
	if current, ok := workflow.CurrentStep(wf.Steps); ok {
		view.CurrentStep = &current
	}
	return view
}

func (s *ApprovalService) publish(ctx context.Context, eventType string, view *WorkflowView, step *workflow.Step, actor workflow.Actor, comment string) {
	event := client.WorkflowEvent{
		EventType:   eventType,
		WorkOrderID: view.WorkOrderID,
		Category:    view.Category,
		Status:      string(view.Status),
		Progress:    view.Progress,
		ActorID:     actor.ID,
		ActorRole:   string(actor.Role),
		Version:     view.Version,
	}
	if step != nil {
		event.StepID = step.ID
		event.StepName = step.Name
		event.StepStatus = string(step.Status)
		event.Comment = comment
	}
	s.publisher.Publish(ctx, event)
}

func stepEventType(command string) string {
	switch command {
	case workflow.CommandReject:
		return client.EventStepRejected
	case workflow.CommandSkip:
		return client.EventStepSkipped
	default:
		return client.EventStepApproved
	}
}

func findStep(steps []workflow.Step, id string) *workflow.Step {
	for i := range steps {
		if steps[i].ID == id {
			return &steps[i]
		}
	}
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, client.WorkflowEvent) {}

type nopRecorder struct{}

func (nopRecorder) CommandCompleted(string, string) {}
func (nopRecorder) WorkflowOutcome(string) {}
