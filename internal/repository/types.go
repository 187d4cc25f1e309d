package repository

import (
	"time"

	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

// ── Domain records for persisted workflows ───────────────────────────────────

// Workflow is a work order's approval workflow as stored. Status is always the
// value derived from Steps at the time they were saved.
type Workflow struct {
	WorkOrderID string
	Category    string
	Status      workflow.Status
	Version     int // optimistic concurrency token, starts at 1
	Steps       []workflow.Step
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func cloneWorkflow(wf *Workflow) *Workflow {
	out := *wf
	out.Steps = workflow.CloneSteps(wf.Steps)
	return &out
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
