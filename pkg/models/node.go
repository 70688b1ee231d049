// Package models defines core node-based workflow models for the subscription compiler
package models

import "strings"

// NodeCategory represents the category of a canvas node.
type NodeCategory string

const (
	NodeCategoryTrigger     NodeCategory = "trigger"     // Chain event or schedule that starts a path
	NodeCategoryCondition   NodeCategory = "condition"   // Field comparison (if / filter)
	NodeCategoryDestination NodeCategory = "destination" // Webhook, Slack, Discord, Telegram, Email
)

// Node type prefixes and built-in condition node types used by the editor.
const (
	TriggerTypePrefix     = "trigger_"
	DestinationTypePrefix = "dest_"

	NodeTypeConditionIf     = "condition_if"
	NodeTypeConditionFilter = "condition_filter"
)

// Handles carried by edges leaving a binary condition node.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Node is a node instance in a workflow canvas.
type Node struct {
	ID       string         `json:"id"                 validate:"required"`
	Type     string         `json:"type"               validate:"required"`
	Category NodeCategory   `json:"category,omitempty" validate:"omitempty,oneof=trigger condition destination"`
	Label    string         `json:"label,omitempty"`
	Config   map[string]any `json:"config"`
}

// Edge connects two nodes; SourceHandle distinguishes the branches of a condition node.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"                 validate:"required"`
	Target       string `json:"target"                 validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// ResolvedCategory returns the explicit category, or the one implied by the type prefix.
func (n *Node) ResolvedCategory() NodeCategory {
	if n.Category != "" {
		return n.Category
	}

	return CategoryOfType(n.Type)
}

// DisplayName is the label when present, the node type otherwise.
func (n *Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}

	return n.Type
}

// CategoryOfType derives a category from an editor node type.
func CategoryOfType(nodeType string) NodeCategory {
	switch {
	case strings.HasPrefix(nodeType, TriggerTypePrefix):
		return NodeCategoryTrigger
	case strings.HasPrefix(nodeType, "condition_"):
		return NodeCategoryCondition
	case strings.HasPrefix(nodeType, DestinationTypePrefix):
		return NodeCategoryDestination
	default:
		return ""
	}
}
