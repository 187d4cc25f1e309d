package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-wo-approvals/internal/database"
	"github.com/pesio-ai/be-wo-approvals/internal/errors"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

// Step rows are created with their workflow and afterwards only updated;
// steps are never deleted.

const stepColumns = `
	id, step_order, name, description, approver_role, is_required,
	status, approver_id, approver_name, approved_at, comments
`

func insertSteps(ctx context.Context, tx pgx.Tx, workOrderID string, steps []workflow.Step) error {
	query := `
		INSERT INTO work_order_approval_steps
		    (id, work_order_id, step_order, name, description,
		     approver_role, is_required, status,
		     approver_id, approver_name, approved_at, comments)
		VALUES ($1, $2, $3, $4, $5,
		        $6, $7, $8,
		        $9, $10, $11, $12)
	`

	batch := &pgx.Batch{}
	for _, s := range steps {
		batch.Queue(query,
			s.ID,
			workOrderID,
			s.Order,
			s.Name,
			s.Description,
			string(s.ApproverRole),
			s.IsRequired,
			string(s.Status),
			nullString(s.ApproverID),
			nullString(s.ApproverName),
			s.ApprovedAt,
			nullString(s.Comments),
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range steps {
		if _, err := results.Exec(); err != nil {
			if isUniqueViolation(err) {
				return errors.Conflict("duplicate step id or order").WithReason("duplicate_step")
			}
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create approval step")
		}
	}
	return nil
}

func updateSteps(ctx context.Context, tx pgx.Tx, workOrderID string, steps []workflow.Step) error {
	query := `
		UPDATE work_order_approval_steps
		SET status        = $3,
		    approver_id   = $4,
		    approver_name = $5,
		    approved_at   = $6,
		    comments      = $7,
		    updated_at    = NOW()
		WHERE id = $1 AND work_order_id = $2
	`

	batch := &pgx.Batch{}
	for _, s := range steps {
		batch.Queue(query,
			s.ID,
			workOrderID,
			string(s.Status),
			nullString(s.ApproverID),
			nullString(s.ApproverName),
			s.ApprovedAt,
			nullString(s.Comments),
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for _, s := range steps {
		tag, err := results.Exec()
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to update approval step")
		}
		if tag.RowsAffected() == 0 {
			return errors.NotFound("approval_step", s.ID)
		}
	}
	return nil
}

func selectSteps(ctx context.Context, q database.Querier, workOrderID string) ([]workflow.Step, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM work_order_approval_steps
		WHERE work_order_id = $1
		ORDER BY step_order ASC
	`, stepColumns)

	rows, err := q.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get approval steps")
	}
	defer rows.Close()

	var steps []workflow.Step
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan approval step")
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read approval steps")
	}
	return steps, nil
}

// ── scan helper ───────────────────────────────────────────────────────────────

type stepScanner interface {
	Scan(dest ...any) error
}

func scanStep(row stepScanner) (workflow.Step, error) {
	var s workflow.Step
	var approverID, approverName, comments *string
	err := row.Scan(
		&s.ID,
		&s.Order,
		&s.Name,
		&s.Description,
		&s.ApproverRole,
		&s.IsRequired,
		&s.Status,
		&approverID,
		&approverName,
		&s.ApprovedAt,
		&comments,
	)
	if err != nil {
		return workflow.Step{}, err
	}
	s.ApproverID = derefString(approverID)
	s.ApproverName = derefString(approverName)
	s.Comments = derefString(comments)
	return s, nil
}
