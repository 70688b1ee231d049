package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/google/uuid"
)

// Materialized holds the records produced for one deployment.
type Materialized struct {
	Endpoints     []*models.Endpoint
	Subscriptions []*models.Subscription
}

// Materialize lowers compiled paths into one endpoint per destination node and
// one enabled subscription per path.
func Materialize(workflowID, userID string, paths []models.CompiledPath, now time.Time) (*Materialized, error) {
	out := &Materialized{
		Endpoints:     []*models.Endpoint{},
		Subscriptions: []*models.Subscription{},
	}
	endpoints := make(map[string]*models.Endpoint)

	for _, path := range paths {
		endpoint, ok := endpoints[path.DestinationNodeID]
		if !ok {
			metadata, err := json.Marshal(path.DestinationConfig)
			if err != nil {
				return nil, fmt.Errorf("failed to encode config of destination %s: %w", path.DestinationNodeID, err)
			}

			endpoint = &models.Endpoint{
				ID:           uuid.NewString(),
				UserID:       userID,
				URL:          destinationURL(path.DestinationConfig),
				EndpointType: path.DestinationType,
				Metadata:     metadata,
				IsActive:     true,
				WorkflowID:   workflowID,
				CreatedAt:    now,
			}
			endpoints[path.DestinationNodeID] = endpoint
			out.Endpoints = append(out.Endpoints, endpoint)
		}

		conditions, err := json.Marshal(path.Conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to encode conditions of trigger %s: %w", path.TriggerNodeID, err)
		}

		out.Subscriptions = append(out.Subscriptions, &models.Subscription{
			ID:         uuid.NewString(),
			UserID:     userID,
			EndpointID: endpoint.ID,
			EventType:  path.EventType,
			Conditions: conditions,
			IsEnabled:  true,
			WorkflowID: workflowID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	return out, nil
}

func destinationURL(config map[string]any) string {
	for _, key := range []string{"url", "webhook_url"} {
		if s, ok := config[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}

	return ""
}
