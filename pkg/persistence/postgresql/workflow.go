package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
			id
		  , user_id
		  , name
		  , nodes
		  , edges
		  , is_active
		  , created_at
		  , updated_at
		  , deployed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *WorkflowRepository) List(ctx context.Context, userID string) ([]*models.Workflow, error) {
	query := `SELECT` + workflowColumns + `
		FROM workflows
		WHERE deleted_at IS NULL AND ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, persistence.NewRecordError("List", "workflow", "", fmt.Errorf("failed to query workflows: %w", err))
	}

	defer closeRows(r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.NewRecordError("List", "workflow", "", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError("List", "workflow", "", fmt.Errorf("error iterating workflows: %w", err))
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL
	`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "workflow", id, err)
	}

	return workflow, nil
}

// Save upserts a workflow. Saving a soft deleted id restores it.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	if workflow.UpdatedAt.IsZero() {
		workflow.UpdatedAt = now
	}

	nodes, err := json.Marshal(orEmpty(workflow.Nodes))
	if err != nil {
		return persistence.NewRecordError("Save", "workflow", workflow.ID, fmt.Errorf("failed to marshal nodes: %w", err))
	}

	edges, err := json.Marshal(orEmpty(workflow.Edges))
	if err != nil {
		return persistence.NewRecordError("Save", "workflow", workflow.ID, fmt.Errorf("failed to marshal edges: %w", err))
	}

	query := `
		INSERT INTO workflows (id, user_id, name, nodes, edges, is_active, created_at, updated_at, deployed_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at,
			deployed_at = EXCLUDED.deployed_at,
			deleted_at = NULL
	`

	var deployedAt sql.NullTime
	if workflow.DeployedAt != nil {
		deployedAt = sql.NullTime{Time: *workflow.DeployedAt, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.UserID,
		workflow.Name,
		string(nodes),
		string(edges),
		workflow.IsActive,
		workflow.CreatedAt,
		workflow.UpdatedAt,
		deployedAt,
	)
	if err != nil {
		return persistence.NewRecordError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

// Delete soft deletes a workflow by setting deleted_at timestamp.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE workflows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return persistence.NewRecordError("Delete", "workflow", id, err)
	}

	return nil
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow   models.Workflow
		nodes      []byte
		edges      []byte
		deployedAt sql.NullTime
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.UserID,
		&workflow.Name,
		&nodes,
		&edges,
		&workflow.IsActive,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&deployedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodes, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(edges, &workflow.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	if deployedAt.Valid {
		t := deployedAt.Time.UTC()
		workflow.DeployedAt = &t
	}

	workflow.CreatedAt = workflow.CreatedAt.UTC()
	workflow.UpdatedAt = workflow.UpdatedAt.UTC()

	return &workflow, nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
