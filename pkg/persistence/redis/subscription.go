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

type SubscriptionRepository struct {
	client *goredis.Client
	keys   keyspace
}

func (r *SubscriptionRepository) Save(ctx context.Context, subscription *models.Subscription) error {
	now := time.Now().UTC()
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = now
	}

	subscription.UpdatedAt = now

	body, err := json.Marshal(subscription)
	if err != nil {
		return persistence.NewRecordError("Save", "subscription", subscription.ID, err)
	}

	var previous models.Subscription

	found, err := getJSON(ctx, r.client, r.keys.subscription(subscription.ID), &previous)
	if err != nil {
		return persistence.NewRecordError("Save", "subscription", subscription.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if found {
			r.unindex(ctx, pipe, &previous)
		}

		pipe.Set(ctx, r.keys.subscription(subscription.ID), body, 0)
		pipe.SAdd(ctx, r.keys.workflowSubs(subscription.WorkflowID), subscription.ID)

		if subscription.IsEnabled {
			pipe.SAdd(ctx, r.keys.enabled(), subscription.ID)
			pipe.SAdd(ctx, r.keys.eventType(subscription.EventType), subscription.ID)
		}

		return nil
	})
	if err != nil {
		return persistence.NewRecordError("Save", "subscription", subscription.ID, err)
	}

	return nil
}

func (r *SubscriptionRepository) unindex(ctx context.Context, pipe goredis.Pipeliner, s *models.Subscription) {
	pipe.SRem(ctx, r.keys.enabled(), s.ID)
	pipe.SRem(ctx, r.keys.eventType(s.EventType), s.ID)
	pipe.SRem(ctx, r.keys.workflowSubs(s.WorkflowID), s.ID)
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	var subscription models.Subscription

	found, err := getJSON(ctx, r.client, r.keys.subscription(id), &subscription)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "subscription", id, err)
	}

	if !found {
		return nil, persistence.NewRecordError("GetByID", "subscription", id, persistence.ErrSubscriptionNotFound)
	}

	return &subscription, nil
}

func (r *SubscriptionRepository) ListEnabled(ctx context.Context) ([]*models.Subscription, error) {
	return r.list(ctx, "ListEnabled", r.keys.enabled())
}

func (r *SubscriptionRepository) ListByEventType(ctx context.Context, eventType string) ([]*models.Subscription, error) {
	return r.list(ctx, "ListByEventType", r.keys.eventType(eventType))
}

func (r *SubscriptionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Subscription, error) {
	return r.list(ctx, "ListByWorkflow", r.keys.workflowSubs(workflowID))
}

func (r *SubscriptionRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	subscriptions, err := loadAll[models.Subscription](ctx, r.client, r.keys.workflowSubs(workflowID), r.keys.subscription)
	if err != nil {
		return persistence.NewRecordError("DeleteByWorkflow", "subscription", "", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, s := range subscriptions {
			r.unindex(ctx, pipe, s)
			pipe.Del(ctx, r.keys.subscription(s.ID))
		}

		pipe.Del(ctx, r.keys.workflowSubs(workflowID))

		return nil
	})
	if err != nil {
		return persistence.NewRecordError("DeleteByWorkflow", "subscription", "", err)
	}

	return nil
}

func (r *SubscriptionRepository) list(ctx context.Context, op, set string) ([]*models.Subscription, error) {
	subscriptions, err := loadAll[models.Subscription](ctx, r.client, set, r.keys.subscription)
	if err != nil {
		return nil, persistence.NewRecordError(op, "subscription", "", err)
	}

	sort.SliceStable(subscriptions, func(i, j int) bool {
		if subscriptions[i].CreatedAt.Equal(subscriptions[j].CreatedAt) {
			return subscriptions[i].ID < subscriptions[j].ID
		}

		return subscriptions[i].CreatedAt.Before(subscriptions[j].CreatedAt)
	})

	return subscriptions, nil
}
