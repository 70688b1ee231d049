package web

import (
	"encoding/json"

	"github.com/dukex/flowhook/pkg/models"
)

// CreateWorkflowRequest is the body of POST /workflows.
type CreateWorkflowRequest struct {
	UserID string         `json:"user_id" validate:"required"`
	Name   string         `json:"name"    validate:"required,min=3"`
	Nodes  []*models.Node `json:"nodes"   validate:"dive"`
	Edges  []*models.Edge `json:"edges"   validate:"dive"`
}

// UpdateWorkflowRequest replaces a workflow's name and canvas.
type UpdateWorkflowRequest struct {
	Name  string         `json:"name"  validate:"required,min=3"`
	Nodes []*models.Node `json:"nodes" validate:"dive"`
	Edges []*models.Edge `json:"edges" validate:"dive"`
}

// TestPathRequest is the body of POST /test-path.
type TestPathRequest struct {
	EventType  string          `json:"event_type" validate:"required"`
	Conditions json.RawMessage `json:"conditions,omitempty"`
	Overrides  map[string]any  `json:"overrides,omitempty"`
}

// EventTypesResponse lists what the editor can subscribe to.
type EventTypesResponse struct {
	EventTypes       []string `json:"event_types"`
	TriggerNodeTypes []string `json:"trigger_node_types"`
}
