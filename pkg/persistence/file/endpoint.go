package file

import (
	"context"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
)

type EndpointRepository struct {
	store *store
}

func (er *EndpointRepository) Save(_ context.Context, endpoint *models.Endpoint) error {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	if endpoint.CreatedAt.IsZero() {
		endpoint.CreatedAt = time.Now().UTC()
	}

	if err := er.store.write(endpoint.ID, endpoint); err != nil {
		return persistence.NewRecordError("Save", "endpoint", endpoint.ID, err)
	}

	return nil
}

func (er *EndpointRepository) GetByID(_ context.Context, id string) (*models.Endpoint, error) {
	er.store.mu.RLock()
	defer er.store.mu.RUnlock()

	var endpoint models.Endpoint

	found, err := er.store.read(id, &endpoint)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "endpoint", id, err)
	}

	if !found {
		return nil, persistence.NewRecordError("GetByID", "endpoint", id, persistence.ErrEndpointNotFound)
	}

	return &endpoint, nil
}

func (er *EndpointRepository) DeleteByWorkflow(_ context.Context, workflowID string) error {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	endpoints, err := scan(er.store, func(e *models.Endpoint) bool {
		return e.WorkflowID == workflowID
	})
	if err != nil {
		return persistence.NewRecordError("DeleteByWorkflow", "endpoint", "", err)
	}

	for _, e := range endpoints {
		if err := er.store.remove(e.ID); err != nil {
			return persistence.NewRecordError("DeleteByWorkflow", "endpoint", e.ID, err)
		}
	}

	return nil
}
