package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

type DeliveryLogRepository struct {
	client *goredis.Client
	keys   keyspace
}

// Insert pushes the log onto the subscription's list and trims it to MaxDeliveryLogs.
func (r *DeliveryLogRepository) Insert(ctx context.Context, log *models.DeliveryLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}

	if log.DeliveredAt.IsZero() {
		log.DeliveredAt = time.Now().UTC()
	}

	body, err := json.Marshal(log)
	if err != nil {
		return persistence.NewRecordError("Insert", "delivery_log", log.ID, err)
	}

	key := r.keys.deliveries(log.SubscriptionID)

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, key, body)
		pipe.LTrim(ctx, key, 0, MaxDeliveryLogs-1)

		return nil
	})
	if err != nil {
		return persistence.NewRecordError("Insert", "delivery_log", log.ID, err)
	}

	return nil
}

func (r *DeliveryLogRepository) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*models.DeliveryLog, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	values, err := r.client.LRange(ctx, r.keys.deliveries(subscriptionID), 0, stop).Result()
	if err != nil {
		return nil, persistence.NewRecordError("ListBySubscription", "delivery_log", subscriptionID, err)
	}

	logs := make([]*models.DeliveryLog, 0, len(values))

	for _, value := range values {
		var log models.DeliveryLog
		if err := json.Unmarshal([]byte(value), &log); err != nil {
			return nil, persistence.NewRecordError("ListBySubscription", "delivery_log", subscriptionID,
				fmt.Errorf("failed to unmarshal delivery log: %w", err))
		}

		logs = append(logs, &log)
	}

	return logs, nil
}
