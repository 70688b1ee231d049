package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
)

type SubscriptionRepository struct {
	store *store
}

func (sr *SubscriptionRepository) Save(_ context.Context, subscription *models.Subscription) error {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	now := time.Now().UTC()
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = now
	}

	subscription.UpdatedAt = now

	if err := sr.store.write(subscription.ID, subscription); err != nil {
		return persistence.NewRecordError("Save", "subscription", subscription.ID, err)
	}

	return nil
}

func (sr *SubscriptionRepository) GetByID(_ context.Context, id string) (*models.Subscription, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	var subscription models.Subscription

	found, err := sr.store.read(id, &subscription)
	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "subscription", id, err)
	}

	if !found {
		return nil, persistence.NewRecordError("GetByID", "subscription", id, persistence.ErrSubscriptionNotFound)
	}

	return &subscription, nil
}

func (sr *SubscriptionRepository) ListEnabled(_ context.Context) ([]*models.Subscription, error) {
	return sr.list("ListEnabled", func(s *models.Subscription) bool {
		return s.IsEnabled
	})
}

func (sr *SubscriptionRepository) ListByEventType(_ context.Context, eventType string) ([]*models.Subscription, error) {
	return sr.list("ListByEventType", func(s *models.Subscription) bool {
		return s.IsEnabled && s.EventType == eventType
	})
}

func (sr *SubscriptionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Subscription, error) {
	return sr.list("ListByWorkflow", func(s *models.Subscription) bool {
		return s.WorkflowID == workflowID
	})
}

func (sr *SubscriptionRepository) DeleteByWorkflow(_ context.Context, workflowID string) error {
	sr.store.mu.Lock()
	defer sr.store.mu.Unlock()

	subscriptions, err := scan(sr.store, func(s *models.Subscription) bool {
		return s.WorkflowID == workflowID
	})
	if err != nil {
		return persistence.NewRecordError("DeleteByWorkflow", "subscription", "", err)
	}

	for _, s := range subscriptions {
		if err := sr.store.remove(s.ID); err != nil {
			return persistence.NewRecordError("DeleteByWorkflow", "subscription", s.ID, err)
		}
	}

	return nil
}

// list returns matching subscriptions oldest first so evaluation order is stable.
func (sr *SubscriptionRepository) list(op string, keep func(*models.Subscription) bool) ([]*models.Subscription, error) {
	sr.store.mu.RLock()
	defer sr.store.mu.RUnlock()

	subscriptions, err := scan(sr.store, keep)
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
