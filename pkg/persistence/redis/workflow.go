package redis

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

type WorkflowRepository struct {
	client *goredis.Client
	keys   keyspace
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	if workflow.UpdatedAt.IsZero() {
		workflow.UpdatedAt = now
	}

	body, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewRecordError("Save", "workflow", workflow.ID, err)
	}

	var previous models.Workflow

	found, err := getJSON(ctx, r.client, r.keys.workflow(workflow.ID), &previous)
	if err != nil {
		return persistence.NewRecordError("Save", "workflow", workflow.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if found && previous.UserID != workflow.UserID {
			pipe.SRem(ctx, r.keys.userWorkflows(previous.UserID), workflow.ID)
		}

		pipe.Set(ctx, r.keys.workflow(workflow.ID), body, 0)
		pipe.SAdd(ctx, r.keys.workflows(), workflow.ID)
		pipe.SAdd(ctx, r.keys.userWorkflows(workflow.UserID), workflow.ID)

		return nil
	})
	if err != nil {
		return persistence.NewRecordError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := getJSON(ctx, r.client, r.keys.workflow(id), &workflow)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "workflow", id, err)
	}

	if !found {
		return nil, persistence.NewRecordError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, userID string) ([]*models.Workflow, error) {
	set := r.keys.workflows()
	if userID != "" {
		set = r.keys.userWorkflows(userID)
	}

	workflows, err := loadAll[models.Workflow](ctx, r.client, set, r.keys.workflow)
	if err != nil {
		return nil, persistence.NewRecordError("List", "workflow", "", err)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	var previous models.Workflow

	found, err := getJSON(ctx, r.client, r.keys.workflow(id), &previous)
	if err != nil {
		return persistence.NewRecordError("Delete", "workflow", id, err)
	}

	if !found {
		return nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.keys.workflow(id))
		pipe.SRem(ctx, r.keys.workflows(), id)
		pipe.SRem(ctx, r.keys.userWorkflows(previous.UserID), id)

		return nil
	})
	if err != nil {
		return persistence.NewRecordError("Delete", "workflow", id, err)
	}

	return nil
}
