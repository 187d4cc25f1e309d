package handler

import (
	"time"

	"github.com/pesio-ai/be-wo-approvals/internal/service"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

// Wire types shared by the HTTP and gRPC transports. HTTP encodes them as JSON;
// gRPC maps them to approvals.v1 messages.

// StartWorkflowRequest starts a workflow for a work order.
type StartWorkflowRequest struct {
	WorkOrderID string `json:"work_order_id"`
	Category    string `json:"category"`
}

// GetWorkflowRequest addresses a workflow by work order.
type GetWorkflowRequest struct {
	WorkOrderID string `json:"work_order_id"`
}

// StepCommandRequest approves, rejects or skips one step. ExpectedVersion 0
// skips the version check.
type StepCommandRequest struct {
	WorkOrderID     string `json:"work_order_id"`
	StepID          string `json:"step_id"`
	Comment         string `json:"comment"`
	ExpectedVersion int    `json:"expected_version"`
}

// ResetRequest resets a workflow.
type ResetRequest struct {
	WorkOrderID     string `json:"work_order_id"`
	ExpectedVersion int    `json:"expected_version"`
}

// StepResponse is one approval step with its badge.
type StepResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	ApproverRole string         `json:"approver_role"`
	ApproverID   string         `json:"approver_id,omitempty"`
	ApproverName string         `json:"approver_name,omitempty"`
	Status       string         `json:"status"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty"`
	Comments     string         `json:"comments,omitempty"`
	IsRequired   bool           `json:"is_required"`
	Order        int            `json:"order"`
	Badge        workflow.Badge `json:"badge"`
}

// WorkflowResponse is a workflow with its derived status, current step and
// progress.
type WorkflowResponse struct {
	WorkOrderID string         `json:"work_order_id"`
	Category    string         `json:"category"`
	Status      string         `json:"status"`
	Badge       workflow.Badge `json:"badge"`
	Progress    int            `json:"progress"`
	Version     int            `json:"version"`
	CurrentStep *StepResponse  `json:"current_step"`
	Steps       []StepResponse `json:"steps"`
}

// ErrorResponse is the body of every HTTP error.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func toStepResponse(s workflow.Step) StepResponse {
	return StepResponse{
		ID:           s.ID,
		Name:         s.Name,
		Description:  s.Description,
		ApproverRole: string(s.ApproverRole),
		ApproverID:   s.ApproverID,
		ApproverName: s.ApproverName,
		Status:       string(s.Status),
		ApprovedAt:   s.ApprovedAt,
		Comments:     s.Comments,
		IsRequired:   s.IsRequired,
		Order:        s.Order,
		Badge:        s.Status.Badge(),
	}
}

func toWorkflowResponse(v *service.WorkflowView) WorkflowResponse {
	resp := WorkflowResponse{
		WorkOrderID: v.WorkOrderID,
		Category:    v.Category,
		Status:      string(v.Status),
		Badge:       v.Status.Badge(),
		Progress:    v.Progress,
		Version:     v.Version,
		Steps:       make([]StepResponse, 0, len(v.Steps)),
	}
	for _, s := range v.Steps {
		resp.Steps = append(resp.Steps, toStepResponse(s))
	}
	if v.CurrentStep != nil {
		current := toStepResponse(*v.CurrentStep)
		resp.CurrentStep = &current
	}
	return resp
}
