package workflow

import (
	"context"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/google/uuid"
)

type Repository struct {
	persistence persistence.Persistence
}

func NewRepository(persistence persistence.Persistence) *Repository {
	return &Repository{
		persistence: persistence,
	}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (r *Repository) FetchAll(ctx context.Context, userID string) ([]*models.Workflow, error) {
	workflows, err := r.persistence.Workflows().List(ctx, userID)
	if err != nil {
		return make([]*models.Workflow, 0), err
	}

	return workflows, nil
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.persistence.Workflows().GetByID(ctx, id)
}

func (r *Repository) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow.ID == "" {
		workflow.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now
	workflow.IsActive = false
	workflow.DeployedAt = nil

	if err := r.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// Update replaces the canvas of an existing workflow. A deployed workflow keeps
// running its previous subscriptions until it is deployed again.
func (r *Repository) Update(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	existing, err := r.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.ID = id
	workflow.CreatedAt = existing.CreatedAt
	workflow.IsActive = existing.IsActive
	workflow.DeployedAt = existing.DeployedAt
	workflow.UpdatedAt = time.Now().UTC()

	if err := r.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.persistence.Workflows().GetByID(ctx, id); err != nil {
		return err
	}

	return r.persistence.Workflows().Delete(ctx, id)
}
