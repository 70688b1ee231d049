// Package testutil provides test data builders for workflow graphs and events.
package testutil

import (
	"github.com/dukex/flowhook/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a destination node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:       uuid.NewString(),
		Type:     "dest_webhook",
		Category: models.NodeCategoryDestination,
		Label:    "Test Node",
		Config:   map[string]any{"url": "https://hooks.example.com/test"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithTrigger configures the node as a trigger of the given editor type.
func WithTrigger(triggerType string, config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = triggerType
		n.Category = models.NodeCategoryTrigger
		n.Config = config
	}
}

// WithCondition configures the node as a condition_if on field/operator/value.
func WithCondition(field, operator string, value any) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = models.NodeTypeConditionIf
		n.Category = models.NodeCategoryCondition
		n.Config = map[string]any{"field": field, "operator": operator, "value": value}
	}
}

// WithDestination configures the node as a destination of the given editor type.
func WithDestination(destType string, config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Type = destType
		n.Category = models.NodeCategoryDestination
		n.Config = config
	}
}

func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

func WithLabel(label string) func(*models.Node) {
	return func(n *models.Node) {
		n.Label = label
	}
}

func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// Connect builds an edge from source to target, optionally on a handle.
func Connect(source, target string, handle ...string) *models.Edge {
	edge := &models.Edge{ID: source + "-" + target, Source: source, Target: target}
	if len(handle) > 0 {
		edge.SourceHandle = handle[0]
		edge.ID += "-" + handle[0]
	}

	return edge
}

// CreateTestWorkflow creates a workflow with one FT trigger wired to one webhook.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	trigger := CreateTestNode(WithID("trigger-1"), WithTrigger("trigger_ft_transfer", map[string]any{
		"addresses": "0xabc",
	}))
	dest := CreateTestNode(WithID("dest-1"))

	wf := &models.Workflow{
		ID:     uuid.NewString(),
		UserID: "user-1",
		Name:   "Test Workflow",
		Nodes:  []*models.Node{trigger, dest},
		Edges:  []*models.Edge{Connect(trigger.ID, dest.ID)},
	}

	for _, override := range overrides {
		override(wf)
	}

	return wf
}
