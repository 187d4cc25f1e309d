package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pesio-ai/be-wo-approvals/internal/errors"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

// MemoryRepository is an in-process workflow store with the same contract as
// WorkflowRepository. Safe for concurrent use. Intended for development and
// tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
	now       func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		workflows: make(map[string]*Workflow),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of wf and sets its version and timestamps.
func (r *MemoryRepository) Create(_ context.Context, wf *Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workflows[wf.WorkOrderID]; exists {
		return errors.Conflict(fmt.Sprintf("workflow already exists for work order %s", wf.WorkOrderID)).
			WithReason("workflow_exists")
	}

	now := r.now()
	wf.Version = 1
	wf.CreatedAt = now
	wf.UpdatedAt = now

	stored := cloneWorkflow(wf)
	sort.SliceStable(stored.Steps, func(i, j int) bool { return stored.Steps[i].Order < stored.Steps[j].Order })
	r.workflows[wf.WorkOrderID] = stored
	return nil
}

// Get returns a copy of the stored workflow.
func (r *MemoryRepository) Get(_ context.Context, workOrderID string) (*Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wf, ok := r.workflows[workOrderID]
	if !ok {
		return nil, errors.NotFound("workflow", workOrderID)
	}
	return cloneWorkflow(wf), nil
}

// Save replaces step states and status when expectedVersion is current.
func (r *MemoryRepository) Save(
	_ context.Context,
	workOrderID string,
	steps []workflow.Step,
	status workflow.Status,
	expectedVersion int,
) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wf, ok := r.workflows[workOrderID]
	if !ok {
		return 0, errors.NotFound("workflow", workOrderID)
	}
	if wf.Version != expectedVersion {
		return 0, errors.Conflict(fmt.Sprintf("workflow %s was modified concurrently (expected version %d, found %d)",
			workOrderID, expectedVersion, wf.Version)).WithReason("stale_version")
	}

	byID := make(map[string]workflow.Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}
	next := workflow.CloneSteps(wf.Steps)
	for i, old := range next {
		s, ok := byID[old.ID]
		if !ok {
			continue
		}
		next[i].Status = s.Status
		next[i].ApproverID = s.ApproverID
		next[i].ApproverName = s.ApproverName
		next[i].ApprovedAt = s.ApprovedAt
		next[i].Comments = s.Comments
		delete(byID, old.ID)
	}
	for id := range byID {
		return 0, errors.NotFound("approval_step", id)
	}

	wf.Steps = workflow.CloneSteps(next)
	wf.Status = status
	wf.Version++
	wf.UpdatedAt = r.now()
	return wf.Version, nil
}
