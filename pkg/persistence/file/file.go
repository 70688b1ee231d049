// Package file provides file-based persistence for workflows, subscriptions,
// endpoints and delivery logs. Each record is one JSON file under
// <root>/<kind>/<id>.json.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/flowhook/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root             string
	workflowRepo     *WorkflowRepository
	subscriptionRepo *SubscriptionRepository
	endpointRepo     *EndpointRepository
	deliveryLogRepo  *DeliveryLogRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:             cleanRoot,
		workflowRepo:     &WorkflowRepository{store: newStore(cleanRoot, "workflows")},
		subscriptionRepo: &SubscriptionRepository{store: newStore(cleanRoot, "subscriptions")},
		endpointRepo:     &EndpointRepository{store: newStore(cleanRoot, "endpoints")},
		deliveryLogRepo:  &DeliveryLogRepository{store: newStore(cleanRoot, "delivery_logs")},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) Subscriptions() persistence.SubscriptionRepository {
	return fp.subscriptionRepo
}

func (fp *Persistence) Endpoints() persistence.EndpointRepository {
	return fp.endpointRepo
}

func (fp *Persistence) DeliveryLogs() persistence.DeliveryLogRepository {
	return fp.deliveryLogRepo
}
