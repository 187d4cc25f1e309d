// Package workflow implements the work-order approval state machine and the
// pure queries that derive aggregate status and progress from a step list.
package workflow

import (
	"strings"
	"time"
)

// ── Domain types for the approval workflow ───────────────────────────────────

// Role is an actor or approver role name. Roles are compared in lower case.
type Role string

const (
	RoleTechnician    Role = "technician"
	RoleSupervisor    Role = "supervisor"
	RoleManager       Role = "manager"
	RoleSafetyOfficer Role = "safety_officer"
	RoleFinance       Role = "finance"
	RoleAdmin         Role = "admin"
)

// Normalize returns the canonical form of r.
func (r Role) Normalize() Role {
	return Role(strings.ToLower(strings.TrimSpace(string(r))))
}

// StepStatus is the state of a single approval step.
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
	StepSkipped  StepStatus = "skipped"
)

// IsTerminal reports whether no command other than a workflow reset can move
// a step out of s.
func (s StepStatus) IsTerminal() bool {
	return s == StepApproved || s == StepRejected || s == StepSkipped
}

// Status is the aggregate status of a workflow, derived from its steps.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// Actor is the identity acting on a workflow, as resolved by the auth layer.
type Actor struct {
	ID   string
	Name string
	Role Role
}

// Step is one ordered unit of sign-off within a workflow.
type Step struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	ApproverRole Role       `json:"approver_role"`
	ApproverID   string     `json:"approver_id,omitempty"`
	ApproverName string     `json:"approver_name,omitempty"`
	Status       StepStatus `json:"status"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	Comments     string     `json:"comments,omitempty"`
	IsRequired   bool       `json:"is_required"`
	Order        int        `json:"order"`
}

// StepTemplate is the static shape of a step inside a workflow definition.
type StepTemplate struct {
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description"`
	ApproverRole Role   `json:"approver_role" yaml:"approver_role"`
	IsRequired   bool   `json:"is_required" yaml:"required"`
	Order        int    `json:"order" yaml:"order"`
}

// Result is the outcome of a successful command.
type Result struct {
	Steps  []Step
	Status Status
}

// CloneSteps returns a deep copy of steps. Engine output never shares a
// backing array or timestamp with its input.
func CloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		if s.ApprovedAt != nil {
			t := *s.ApprovedAt
			s.ApprovedAt = &t
		}
		out[i] = s
	}
	return out
}
