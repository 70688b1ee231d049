package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/google/uuid"
)

type DeliveryLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *DeliveryLogRepository) Insert(ctx context.Context, log *models.DeliveryLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}

	if log.DeliveredAt.IsZero() {
		log.DeliveredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO delivery_logs (id, subscription_id, endpoint_id, event_type, payload, status_code, error, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.SubscriptionID,
		log.EndpointID,
		log.EventType,
		nullableJSON(log.Payload),
		log.StatusCode,
		log.Error,
		log.DeliveredAt,
	)
	if err != nil {
		return persistence.NewRecordError("Insert", "delivery_log", log.ID, err)
	}

	return nil
}

func (r *DeliveryLogRepository) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*models.DeliveryLog, error) {
	query := `
		SELECT id, subscription_id, endpoint_id, event_type, payload, status_code, error, delivered_at
		FROM delivery_logs
		WHERE subscription_id = $1
		ORDER BY delivered_at DESC
		LIMIT NULLIF($2, 0)
	`

	rows, err := r.db.QueryContext(ctx, query, subscriptionID, max(limit, 0))
	if err != nil {
		return nil, persistence.NewRecordError("ListBySubscription", "delivery_log", subscriptionID, err)
	}

	defer closeRows(r.logger, rows)

	logs := make([]*models.DeliveryLog, 0)

	for rows.Next() {
		var (
			log     models.DeliveryLog
			payload []byte
		)

		err := rows.Scan(
			&log.ID,
			&log.SubscriptionID,
			&log.EndpointID,
			&log.EventType,
			&payload,
			&log.StatusCode,
			&log.Error,
			&log.DeliveredAt,
		)
		if err != nil {
			return nil, persistence.NewRecordError("ListBySubscription", "delivery_log", subscriptionID,
				fmt.Errorf("failed to scan delivery log: %w", err))
		}

		log.Payload = payload
		log.DeliveredAt = log.DeliveredAt.UTC()
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError("ListBySubscription", "delivery_log", subscriptionID, err)
	}

	return logs, nil
}
