package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

type EndpointRepository struct {
	client *goredis.Client
	keys   keyspace
}

func (r *EndpointRepository) Save(ctx context.Context, endpoint *models.Endpoint) error {
	if endpoint.CreatedAt.IsZero() {
		endpoint.CreatedAt = time.Now().UTC()
	}

	body, err := json.Marshal(endpoint)
	if err != nil {
		return persistence.NewRecordError("Save", "endpoint", endpoint.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.keys.endpoint(endpoint.ID), body, 0)
		pipe.SAdd(ctx, r.keys.workflowEndpoints(endpoint.WorkflowID), endpoint.ID)

		return nil
	})
	if err != nil {
		return persistence.NewRecordError("Save", "endpoint", endpoint.ID, err)
	}

	return nil
}

func (r *EndpointRepository) GetByID(ctx context.Context, id string) (*models.Endpoint, error) {
	var endpoint models.Endpoint

	found, err := getJSON(ctx, r.client, r.keys.endpoint(id), &endpoint)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "endpoint", id, err)
	}

	if !found {
		return nil, persistence.NewRecordError("GetByID", "endpoint", id, persistence.ErrEndpointNotFound)
	}

	return &endpoint, nil
}

func (r *EndpointRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	ids, err := r.client.SMembers(ctx, r.keys.workflowEndpoints(workflowID)).Result()
	if err != nil {
		return persistence.NewRecordError("DeleteByWorkflow", "endpoint", "", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, r.keys.endpoint(id))
		}

		pipe.Del(ctx, r.keys.workflowEndpoints(workflowID))

		return nil
	})
	if err != nil {
		return persistence.NewRecordError("DeleteByWorkflow", "endpoint", "", err)
	}

	return nil
}
