package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
)

type SubscriptionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const subscriptionSelect = `
		SELECT
			id
		  , user_id
		  , endpoint_id
		  , event_type
		  , conditions
		  , is_enabled
		  , workflow_id
		  , created_at
		  , updated_at
		FROM subscriptions
`

func (r *SubscriptionRepository) Save(ctx context.Context, subscription *models.Subscription) error {
	now := time.Now().UTC()
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = now
	}

	subscription.UpdatedAt = now

	query := `
		INSERT INTO subscriptions (id, user_id, endpoint_id, event_type, conditions, is_enabled, workflow_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			endpoint_id = EXCLUDED.endpoint_id,
			event_type = EXCLUDED.event_type,
			conditions = EXCLUDED.conditions,
			is_enabled = EXCLUDED.is_enabled,
			workflow_id = EXCLUDED.workflow_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		subscription.ID,
		subscription.UserID,
		subscription.EndpointID,
		subscription.EventType,
		nullableJSON(subscription.Conditions),
		subscription.IsEnabled,
		subscription.WorkflowID,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRecordError("Save", "subscription", subscription.ID, err)
	}

	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*models.Subscription, error) {
	subscription, err := scanSubscription(r.db.QueryRowContext(ctx, subscriptionSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("GetByID", "subscription", id, persistence.ErrSubscriptionNotFound)
		}

		return nil, persistence.NewRecordError("GetByID", "subscription", id, err)
	}

	return subscription, nil
}

func (r *SubscriptionRepository) ListEnabled(ctx context.Context) ([]*models.Subscription, error) {
	return r.query(ctx, "ListEnabled", `WHERE is_enabled`)
}

func (r *SubscriptionRepository) ListByEventType(ctx context.Context, eventType string) ([]*models.Subscription, error) {
	return r.query(ctx, "ListByEventType", `WHERE is_enabled AND event_type = $1`, eventType)
}

func (r *SubscriptionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Subscription, error) {
	return r.query(ctx, "ListByWorkflow", `WHERE workflow_id = $1`, workflowID)
}

func (r *SubscriptionRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE workflow_id = $1`, workflowID); err != nil {
		return persistence.NewRecordError("DeleteByWorkflow", "subscription", "", err)
	}

	return nil
}

func (r *SubscriptionRepository) query(ctx context.Context, op, where string, args ...any) ([]*models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, subscriptionSelect+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, persistence.NewRecordError(op, "subscription", "", fmt.Errorf("failed to query subscriptions: %w", err))
	}

	defer closeRows(r.logger, rows)

	subscriptions := make([]*models.Subscription, 0)

	for rows.Next() {
		subscription, err := scanSubscription(rows)
		if err != nil {
			return nil, persistence.NewRecordError(op, "subscription", "", fmt.Errorf("failed to scan subscription: %w", err))
		}

		subscriptions = append(subscriptions, subscription)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRecordError(op, "subscription", "", err)
	}

	return subscriptions, nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		subscription models.Subscription
		conditions   []byte
	)

	err := row.Scan(
		&subscription.ID,
		&subscription.UserID,
		&subscription.EndpointID,
		&subscription.EventType,
		&conditions,
		&subscription.IsEnabled,
		&subscription.WorkflowID,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	subscription.Conditions = conditions
	subscription.CreatedAt = subscription.CreatedAt.UTC()
	subscription.UpdatedAt = subscription.UpdatedAt.UTC()

	return &subscription, nil
}
