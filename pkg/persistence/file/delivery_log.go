package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/google/uuid"
)

type DeliveryLogRepository struct {
	store *store
}

func (dr *DeliveryLogRepository) Insert(_ context.Context, log *models.DeliveryLog) error {
	dr.store.mu.Lock()
	defer dr.store.mu.Unlock()

	if log.ID == "" {
		log.ID = uuid.NewString()
	}

	if log.DeliveredAt.IsZero() {
		log.DeliveredAt = time.Now().UTC()
	}

	if err := dr.store.write(log.ID, log); err != nil {
		return persistence.NewRecordError("Insert", "delivery_log", log.ID, err)
	}

	return nil
}

func (dr *DeliveryLogRepository) ListBySubscription(_ context.Context, subscriptionID string, limit int) ([]*models.DeliveryLog, error) {
	dr.store.mu.RLock()
	defer dr.store.mu.RUnlock()

	logs, err := scan(dr.store, func(l *models.DeliveryLog) bool {
		return l.SubscriptionID == subscriptionID
	})
	if err != nil {
		return nil, persistence.NewRecordError("ListBySubscription", "delivery_log", subscriptionID, err)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].DeliveredAt.After(logs[j].DeliveredAt)
	})

	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	return logs, nil
}
