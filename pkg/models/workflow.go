package models

import "time"

// Graph is the node/edge structure drawn in the workflow editor.
type Graph struct {
	Nodes []*Node `json:"nodes" validate:"dive"`
	Edges []*Edge `json:"edges" validate:"dive"`
}

// Workflow is a saved canvas. Deploying it materializes subscriptions.
type Workflow struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"                validate:"required"`
	Name       string     `json:"name"                   validate:"required,min=3"`
	Nodes      []*Node    `json:"nodes"                  validate:"dive"`
	Edges      []*Edge    `json:"edges"                  validate:"dive"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeployedAt *time.Time `json:"deployed_at,omitempty"`
}

// Graph returns the workflow's nodes and edges.
func (w *Workflow) Graph() *Graph {
	return &Graph{Nodes: w.Nodes, Edges: w.Edges}
}

// CompiledPath is one resolved trigger -> destination route with its accumulated conditions.
type CompiledPath struct {
	TriggerNodeID     string         `json:"trigger_node_id"`
	EventType         string         `json:"event_type"`
	Conditions        map[string]any `json:"conditions"`
	DestinationNodeID string         `json:"destination_node_id"`
	DestinationType   string         `json:"destination_type"`
	DestinationConfig map[string]any `json:"destination_config"`
}
