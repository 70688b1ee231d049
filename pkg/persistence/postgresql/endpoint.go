package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
)

type EndpointRepository struct {
	db *sql.DB
}

func (r *EndpointRepository) Save(ctx context.Context, endpoint *models.Endpoint) error {
	if endpoint.CreatedAt.IsZero() {
		endpoint.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO endpoints (id, user_id, url, endpoint_type, metadata, is_active, workflow_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			url = EXCLUDED.url,
			endpoint_type = EXCLUDED.endpoint_type,
			metadata = EXCLUDED.metadata,
			is_active = EXCLUDED.is_active,
			workflow_id = EXCLUDED.workflow_id
	`

	_, err := r.db.ExecContext(ctx, query,
		endpoint.ID,
		endpoint.UserID,
		endpoint.URL,
		endpoint.EndpointType,
		nullableJSON(endpoint.Metadata),
		endpoint.IsActive,
		endpoint.WorkflowID,
		endpoint.CreatedAt,
	)
	if err != nil {
		return persistence.NewRecordError("Save", "endpoint", endpoint.ID, err)
	}

	return nil
}

func (r *EndpointRepository) GetByID(ctx context.Context, id string) (*models.Endpoint, error) {
	query := `
		SELECT id, user_id, url, endpoint_type, metadata, is_active, workflow_id, created_at
		FROM endpoints
		WHERE id = $1
	`

	var (
		endpoint models.Endpoint
		metadata []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&endpoint.ID,
		&endpoint.UserID,
		&endpoint.URL,
		&endpoint.EndpointType,
		&metadata,
		&endpoint.IsActive,
		&endpoint.WorkflowID,
		&endpoint.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByID", "endpoint", id, persistence.ErrEndpointNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "endpoint", id, err)
	}

	endpoint.Metadata = metadata
	endpoint.CreatedAt = endpoint.CreatedAt.UTC()

	return &endpoint, nil
}

func (r *EndpointRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM endpoints WHERE workflow_id = $1`, workflowID); err != nil {
		return persistence.NewRecordError("DeleteByWorkflow", "endpoint", "", err)
	}

	return nil
}
