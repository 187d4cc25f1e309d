package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

func newTestEngine() *Engine {
	n := 0
	return NewEngine(NewStepAuthorizer(nil),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("step-%d", n)
		}),
	)
}

var (
	supervisor = Actor{ID: "u-sup", Name: "Sam Supervisor", Role: RoleSupervisor}
	manager    = Actor{ID: "u-mgr", Name: "Morgan Manager", Role: RoleManager}
	admin      = Actor{ID: "u-adm", Name: "Alex Admin", Role: RoleAdmin}
	technician = Actor{ID: "u-tech", Name: "Taylor Tech", Role: RoleTechnician}
)

func mustInstantiate(e *Engine, templates []StepTemplate) []Step {
	steps, err := e.Instantiate(templates)
	if err != nil {
		panic(err)
	}
	return steps
}

// threeRequired returns supervisor, manager and admin gated required steps.
func threeRequired(e *Engine) []Step {
	return mustInstantiate(e, []StepTemplate{
		{Order: 1, Name: "Supervisor Review", ApproverRole: RoleSupervisor, IsRequired: true},
		{Order: 2, Name: "Manager Approval", ApproverRole: RoleManager, IsRequired: true},
		{Order: 3, Name: "Admin Sign-off", ApproverRole: RoleAdmin, IsRequired: true},
	})
}

func withOptionalThird(e *Engine) []Step {
	return mustInstantiate(e, []StepTemplate{
		{Order: 1, Name: "Supervisor Review", ApproverRole: RoleSupervisor, IsRequired: true},
		{Order: 2, Name: "Manager Approval", ApproverRole: RoleManager, IsRequired: true},
		{Order: 3, Name: "Quality Check", ApproverRole: RoleSupervisor, IsRequired: false},
	})
}

func TestInstantiate(t *testing.T) {
	e := newTestEngine()
	steps, err := e.Instantiate([]StepTemplate{
		{Order: 1, Name: "Review", Description: "desc", ApproverRole: "Supervisor", IsRequired: true},
	})
	require.NoError(t, err)

	require.Len(t, steps, 1)
	assert.Equal(t, Step{
		ID:           "step-1",
		Name:         "Review",
		Description:  "desc",
		ApproverRole: RoleSupervisor,
		Status:       StepPending,
		IsRequired:   true,
		Order:        1,
	}, steps[0])
}

func TestInstantiateRefusesMalformedTemplates(t *testing.T) {
	review := StepTemplate{Order: 1, Name: "Review", ApproverRole: RoleSupervisor, IsRequired: true}
	optional := StepTemplate{Order: 2, Name: "Quality Check", ApproverRole: RoleSupervisor}

	tests := []struct {
		name      string
		templates []StepTemplate
		want      string
	}{
		{"empty", nil, "at least one step"},
		{"duplicate order", []StepTemplate{review, review}, "duplicate step order 1"},
		{"no required step", []StepTemplate{optional}, "must be required"},
		{"zero order", []StepTemplate{{Name: "Review", ApproverRole: RoleAdmin, IsRequired: true}}, "non-positive order"},
		{"no role", []StepTemplate{{Order: 1, Name: "Review", IsRequired: true}}, "no approver role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			steps, err := e.Instantiate(tt.templates)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
			assert.Contains(t, err.Error(), tt.want)
			assert.Nil(t, steps)
			assert.Equal(t, "invalid_template", Reason(err))
		})
	}
}

func TestScenarioA_AllRequiredApproved(t *testing.T) {
	e := newTestEngine()
	steps := threeRequired(e)

	res, err := e.Approve(steps, "step-1", supervisor, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, res.Status)

	res, err = e.Approve(res.Steps, "step-2", manager, "looks fine")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, res.Status)

	res, err = e.Approve(res.Steps, "step-3", admin, "")
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, res.Status)
	assert.Equal(t, 100, ProgressPercentage(res.Steps))
	assert.True(t, IsComplete(res.Steps))
	_, ok := CurrentStep(res.Steps)
	assert.False(t, ok)

	step2 := res.Steps[1]
	assert.Equal(t, StepApproved, step2.Status)
	assert.Equal(t, "u-mgr", step2.ApproverID)
	assert.Equal(t, "Morgan Manager", step2.ApproverName)
	assert.Equal(t, "looks fine", step2.Comments)
	require.NotNil(t, step2.ApprovedAt)
	assert.Equal(t, fixedNow, *step2.ApprovedAt)
}

func TestScenarioB_RejectionLeavesSiblingsActionable(t *testing.T) {
	e := newTestEngine()
	steps := threeRequired(e)

	res, err := e.Approve(steps, "step-1", supervisor, "")
	require.NoError(t, err)

	res, err = e.Reject(res.Steps, "step-2", manager, "over budget")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, "over budget", res.Steps[1].Comments)
	assert.True(t, IsRejected(res.Steps))

	// Step 3 is still pending and may be acted on; the aggregate stays rejected.
	assert.Equal(t, StepPending, res.Steps[2].Status)
	res, err = e.Approve(res.Steps, "step-3", admin, "")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
}

func TestScenarioC_RejectWithoutComment(t *testing.T) {
	e := newTestEngine()
	steps := threeRequired(e)
	before := CloneSteps(steps)

	for _, comment := range []string{"", "   ", "\t\n"} {
		_, err := e.Reject(steps, "step-2", manager, comment)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingRejectionComment)
	}
	assert.Equal(t, before, steps)
}

func TestScenarioD_SkipOptionalStep(t *testing.T) {
	e := newTestEngine()
	steps := withOptionalThird(e)

	res, err := e.Skip(steps, "step-3", supervisor)
	require.NoError(t, err)
	assert.Equal(t, StepSkipped, res.Steps[2].Status)
	assert.Equal(t, "u-sup", res.Steps[2].ApproverID)
	require.NotNil(t, res.Steps[2].ApprovedAt)
	assert.Equal(t, StatusPendingApproval, res.Status)

	res, err = e.Approve(res.Steps, "step-1", supervisor, "")
	require.NoError(t, err)
	res, err = e.Approve(res.Steps, "step-2", manager, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, res.Status)
	assert.Equal(t, 100, ProgressPercentage(res.Steps))
}

func TestScenarioE_TechnicianCannotApproveSupervisorStep(t *testing.T) {
	e := newTestEngine()
	steps := threeRequired(e)

	_, err := e.Approve(steps, "step-1", technician, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorizedActor)
	assert.Equal(t, "unauthorized_actor", Reason(err))
}

func TestScenarioF_SkipRequiredStep(t *testing.T) {
	e := newTestEngine()
	steps := threeRequired(e)

	_, err := e.Skip(steps, "step-1", supervisor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequiredStepSkipAttempt)
}

func TestSkipTwiceFailsAndKeepsFirstResult(t *testing.T) {
	e := newTestEngine()
	steps := withOptionalThird(e)

	first, err := e.Skip(steps, "step-3", supervisor)
	require.NoError(t, err)
	snapshot := CloneSteps(first.Steps)

	_, err = e.Skip(first.Steps, "step-3", supervisor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStepState)
	assert.Equal(t, snapshot, first.Steps)
}

func TestCommandsOnResolvedStepFail(t *testing.T) {
	e := newTestEngine()
	res, err := e.Approve(withOptionalThird(e), "step-1", supervisor, "")
	require.NoError(t, err)

	_, err = e.Approve(res.Steps, "step-1", supervisor, "")
	assert.ErrorIs(t, err, ErrInvalidStepState)
	_, err = e.Reject(res.Steps, "step-1", supervisor, "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidStepState)
}

func TestUnknownStep(t *testing.T) {
	e := newTestEngine()
	steps := threeRequired(e)

	tests := []struct {
		name string
		run  func() error
	}{
		{"approve", func() error { _, err := e.Approve(steps, "nope", admin, ""); return err }},
		{"reject", func() error { _, err := e.Reject(steps, "nope", admin, "x"); return err }},
		{"skip", func() error { _, err := e.Skip(steps, "nope", admin); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			assert.ErrorIs(t, err, ErrUnknownStep)
			var cmdErr *CommandError
			require.ErrorAs(t, err, &cmdErr)
			assert.Equal(t, tt.name, cmdErr.Command)
			assert.Equal(t, "nope", cmdErr.StepID)
		})
	}
}

func TestCheckOrder(t *testing.T) {
	e := newTestEngine()
	steps := withOptionalThird(e)

	// State is checked before authorization.
	res, err := e.Approve(steps, "step-1", supervisor, "")
	require.NoError(t, err)
	_, err = e.Approve(res.Steps, "step-1", technician, "")
	assert.ErrorIs(t, err, ErrInvalidStepState)

	// Authorization is checked before the comment requirement.
	_, err = e.Reject(steps, "step-2", technician, "")
	assert.ErrorIs(t, err, ErrUnauthorizedActor)

	// Authorization is checked before the required-step rule.
	_, err = e.Skip(steps, "step-2", technician)
	assert.ErrorIs(t, err, ErrUnauthorizedActor)
}

func TestCommandsDoNotMutateInput(t *testing.T) {
	e := newTestEngine()
	steps := withOptionalThird(e)
	before := CloneSteps(steps)

	res, err := e.Approve(steps, "step-1", supervisor, "ok")
	require.NoError(t, err)
	_, err = e.Skip(res.Steps, "step-3", supervisor)
	require.NoError(t, err)

	assert.Equal(t, before, steps)
	assert.Equal(t, StepApproved, res.Steps[0].Status)
	assert.Equal(t, StepPending, res.Steps[2].Status)
}

func TestRejectStoresCommentVerbatim(t *testing.T) {
	e := newTestEngine()
	res, err := e.Reject(threeRequired(e), "step-1", supervisor, "  missing parts list \n")
	require.NoError(t, err)
	assert.Equal(t, "  missing parts list \n", res.Steps[0].Comments)
}

func TestReset(t *testing.T) {
	e := newTestEngine()
	steps := withOptionalThird(e)
	pristine := CloneSteps(steps)

	res, err := e.Approve(steps, "step-1", supervisor, "ok")
	require.NoError(t, err)
	res, err = e.Reject(res.Steps, "step-2", manager, "no")
	require.NoError(t, err)
	res, err = e.Skip(res.Steps, "step-3", supervisor)
	require.NoError(t, err)

	reset, err := e.Reset(res.Steps, manager)
	require.NoError(t, err)
	assert.Equal(t, pristine, reset.Steps)
	assert.Equal(t, StatusPendingApproval, reset.Status)
	assert.Equal(t, 0, ProgressPercentage(reset.Steps))

	again, err := e.Reset(reset.Steps, manager)
	require.NoError(t, err)
	assert.Equal(t, reset.Steps, again.Steps)
}

func TestResetClearsStrayMetadata(t *testing.T) {
	e := newTestEngine()
	steps := threeRequired(e)
	steps[0].ApproverID = "ghost"
	steps[0].Comments = "left over"

	res, err := e.Reset(steps, supervisor)
	require.NoError(t, err)
	assert.Empty(t, res.Steps[0].ApproverID)
	assert.Empty(t, res.Steps[0].Comments)
	assert.Equal(t, "ghost", steps[0].ApproverID)
}

func TestResetRefusesWorkflowWithoutRequiredStep(t *testing.T) {
	e := newTestEngine()
	steps := []Step{
		{ID: "step-1", Order: 1, Name: "Quality Check", ApproverRole: RoleSupervisor, Status: StepSkipped},
	}

	_, err := e.Reset(steps, supervisor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTemplate)
	assert.Equal(t, StepSkipped, steps[0].Status)
}

func TestResetRequiresAuthority(t *testing.T) {
	e := newTestEngine()
	steps := threeRequired(e)

	_, err := e.Reset(steps, technician)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorizedActor)

	_, err = e.Reset(steps, Actor{ID: "x", Role: "contractor"})
	assert.ErrorIs(t, err, ErrUnauthorizedActor)

	// A finance user has no authority over supervisor/manager/admin steps.
	_, err = e.Reset(steps, Actor{ID: "f", Role: RoleFinance})
	assert.ErrorIs(t, err, ErrUnauthorizedActor)
}

func TestRejectedOverridesRegardlessOfOrder(t *testing.T) {
	e := newTestEngine()
	steps := threeRequired(e)

	// Reject the last step first, then approve the others.
	res, err := e.Reject(steps, "step-3", admin, "not needed")
	require.NoError(t, err)
	res, err = e.Approve(res.Steps, "step-1", supervisor, "")
	require.NoError(t, err)
	res, err = e.Approve(res.Steps, "step-2", manager, "")
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, 67, ProgressPercentage(res.Steps))
}

func TestRejectingOptionalStepDoesNotRejectWorkflow(t *testing.T) {
	e := newTestEngine()
	res, err := e.Reject(withOptionalThird(e), "step-3", supervisor, "not applicable")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, res.Status)
}
