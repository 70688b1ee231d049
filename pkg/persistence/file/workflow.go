package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	store *store
}

// List returns workflows newest first.
func (wr *WorkflowRepository) List(_ context.Context, userID string) ([]*models.Workflow, error) {
	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	workflows, err := scan(wr.store, func(w *models.Workflow) bool {
		return userID == "" || w.UserID == userID
	})
	if err != nil {
		return nil, persistence.NewRecordError("List", "workflow", "", err)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	var workflow models.Workflow

	found, err := wr.store.read(id, &workflow)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "workflow", id, err)
	}

	if !found {
		return nil, persistence.NewRecordError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// Save saves a workflow to the file system.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	if workflow.UpdatedAt.IsZero() {
		workflow.UpdatedAt = now
	}

	if err := wr.store.write(workflow.ID, workflow); err != nil {
		return persistence.NewRecordError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow file. Deleting a missing workflow is not an error.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	if err := wr.store.remove(id); err != nil {
		return persistence.NewRecordError("Delete", "workflow", id, err)
	}

	return nil
}
