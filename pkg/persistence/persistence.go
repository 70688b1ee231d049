// Package persistence stores workflows and the subscriptions and endpoints
// materialized from them.
package persistence

import (
	"context"

	"github.com/dukex/flowhook/pkg/models"
)

type Persistence interface {
	Workflows() WorkflowRepository
	Subscriptions() SubscriptionRepository
	Endpoints() EndpointRepository
	DeliveryLogs() DeliveryLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// List returns every workflow owned by userID, or all workflows when userID is empty.
	List(ctx context.Context, userID string) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

type SubscriptionRepository interface {
	Save(ctx context.Context, subscription *models.Subscription) error
	GetByID(ctx context.Context, id string) (*models.Subscription, error)
	ListEnabled(ctx context.Context) ([]*models.Subscription, error)
	ListByEventType(ctx context.Context, eventType string) ([]*models.Subscription, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Subscription, error)
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}

type EndpointRepository interface {
	Save(ctx context.Context, endpoint *models.Endpoint) error
	GetByID(ctx context.Context, id string) (*models.Endpoint, error)
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}

type DeliveryLogRepository interface {
	Insert(ctx context.Context, log *models.DeliveryLog) error
	// ListBySubscription returns the most recent logs first, at most limit entries.
	ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*models.DeliveryLog, error)
}
