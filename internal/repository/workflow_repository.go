package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pesio-ai/be-wo-approvals/internal/database"
	"github.com/pesio-ai/be-wo-approvals/internal/errors"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

const pgUniqueViolation = "23505"

// WorkflowRepository persists workflows and their steps in Postgres.
// A workflow and its steps are always written in one transaction.
type WorkflowRepository struct {
	db database.TxRunner
}

// NewWorkflowRepository creates a new WorkflowRepository.
func NewWorkflowRepository(db database.TxRunner) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Create inserts a workflow and its initial steps. wf.Version is set to 1 and
// timestamps are filled from the database.
func (r *WorkflowRepository) Create(ctx context.Context, wf *Workflow) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO work_order_workflows (work_order_id, category, status, version)
			VALUES ($1, $2, $3, 1)
			RETURNING version, created_at, updated_at
		`

		err := tx.QueryRow(ctx, query, wf.WorkOrderID, wf.Category, string(wf.Status)).
			Scan(&wf.Version, &wf.CreatedAt, &wf.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return errors.Conflict(fmt.Sprintf("workflow already exists for work order %s", wf.WorkOrderID)).
					WithReason("workflow_exists")
			}
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create workflow")
		}

		return insertSteps(ctx, tx, wf.WorkOrderID, wf.Steps)
	})
}

// Get returns the workflow for a work order with steps in ascending order.
func (r *WorkflowRepository) Get(ctx context.Context, workOrderID string) (*Workflow, error) {
	query := `
		SELECT work_order_id, category, status, version, created_at, updated_at
		FROM work_order_workflows
		WHERE work_order_id = $1
	`

	wf := &Workflow{}
	err := r.db.QueryRow(ctx, query, workOrderID).Scan(
		&wf.WorkOrderID,
		&wf.Category,
		&wf.Status,
		&wf.Version,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("workflow", workOrderID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get workflow")
	}

	steps, err := selectSteps(ctx, r.db, workOrderID)
	if err != nil {
		return nil, err
	}
	wf.Steps = steps
	return wf, nil
}

// Save stores the result of a command: the new step states and the status
// derived from them. The workflow's version must still equal expectedVersion;
// otherwise another writer won and Save fails with a conflict. Returns the
// new version.
func (r *WorkflowRepository) Save(
	ctx context.Context,
	workOrderID string,
	steps []workflow.Step,
	status workflow.Status,
	expectedVersion int,
) (int, error) {
	var newVersion int
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE work_order_workflows
			SET status     = $2,
			    version    = version + 1,
			    updated_at = NOW()
			WHERE work_order_id = $1
			  AND version = $3
			RETURNING version
		`

		err := tx.QueryRow(ctx, query, workOrderID, string(status), expectedVersion).Scan(&newVersion)
		if err == pgx.ErrNoRows {
			return r.saveMiss(ctx, tx, workOrderID, expectedVersion)
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to update workflow")
		}

		return updateSteps(ctx, tx, workOrderID, steps)
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// saveMiss tells a missing workflow apart from a stale version.
func (r *WorkflowRepository) saveMiss(ctx context.Context, tx pgx.Tx, workOrderID string, expectedVersion int) error {
	var current int
	err := tx.QueryRow(ctx, `SELECT version FROM work_order_workflows WHERE work_order_id = $1`, workOrderID).Scan(&current)
	if err == pgx.ErrNoRows {
		return errors.NotFound("workflow", workOrderID)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to read workflow version")
	}
	return errors.Conflict(fmt.Sprintf("workflow %s was modified concurrently (expected version %d, found %d)",
		workOrderID, expectedVersion, current)).WithReason("stale_version")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
