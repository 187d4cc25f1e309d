package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-wo-approvals/internal/database"
	"github.com/pesio-ai/be-wo-approvals/internal/errors"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

// DefinitionRepository serves workflow definitions stored in
// workflow_definitions. It is read-only; rows are managed out of band.
type DefinitionRepository struct {
	db database.Querier
}

var (
	_ workflow.DefinitionProvider = (*DefinitionRepository)(nil)
	_ workflow.DefinitionLister   = (*DefinitionRepository)(nil)
)

// NewDefinitionRepository creates a new DefinitionRepository.
func NewDefinitionRepository(db database.Querier) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

// Resolve returns the ordered step templates of the active definition for
// category. Missing or inactive definitions fail with ErrUnknownTemplate.
func (r *DefinitionRepository) Resolve(ctx context.Context, category string) ([]workflow.StepTemplate, error) {
	query := `
		SELECT category, display_name, steps
		FROM workflow_definitions
		WHERE category = $1 AND is_active = TRUE
	`

	def, err := r.scanDefinition(r.db.QueryRow(ctx, query, workflow.NormalizeCategory(category)))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %q", workflow.ErrUnknownTemplate, category)
	}
	if err != nil {
		return nil, err
	}
	return workflow.SortedTemplates(def.Steps), nil
}

// List returns all active definitions ordered by category.
func (r *DefinitionRepository) List(ctx context.Context) ([]workflow.Definition, error) {
	query := `
		SELECT category, display_name, steps
		FROM workflow_definitions
		WHERE is_active = TRUE
		ORDER BY category ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflow definitions")
	}
	defer rows.Close()

	var defs []workflow.Definition
	for rows.Next() {
		def, err := r.scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		def.Steps = workflow.SortedTemplates(def.Steps)
		defs = append(defs, *def)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read workflow definitions")
	}
	return defs, nil
}

// ── scan helper ──────────────────────────────────────────────────────────────

type definitionScanner interface {
	Scan(dest ...any) error
}

// scanDefinition decodes a row and validates the stored steps so a broken
// row never seeds a workflow.
func (r *DefinitionRepository) scanDefinition(row definitionScanner) (*workflow.Definition, error) {
	def := &workflow.Definition{}
	var stepsJSON []byte

	if err := row.Scan(&def.Category, &def.DisplayName, &stepsJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan workflow definition")
	}

	if err := json.Unmarshal(stepsJSON, &def.Steps); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal definition steps")
	}
	if err := workflow.ValidateDefinition(*def); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "stored workflow definition is invalid")
	}
	return def, nil
}
