package models

import (
	"encoding/json"
	"time"
)

// Subscription binds one endpoint to one event type under a conditions blob.
// Conditions stay opaque JSON; each matcher decodes the keys it understands.
type Subscription struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	EndpointID string          `json:"endpoint_id"               validate:"required"`
	EventType  string          `json:"event_type"                validate:"required"`
	Conditions json.RawMessage `json:"conditions,omitempty"`
	IsEnabled  bool            `json:"is_enabled"`
	WorkflowID string          `json:"workflow_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Endpoint is a delivery target. Metadata keeps the destination config as authored.
type Endpoint struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	URL          string          `json:"url,omitempty"`
	EndpointType string          `json:"endpoint_type"         validate:"required,oneof=webhook slack discord telegram email"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	IsActive     bool            `json:"is_active"`
	WorkflowID   string          `json:"workflow_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DeliveryLog records one delivery attempt.
type DeliveryLog struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id,omitempty"`
	EndpointID     string          `json:"endpoint_id,omitempty"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	StatusCode     int             `json:"status_code"`
	Error          string          `json:"error,omitempty"`
	DeliveredAt    time.Time       `json:"delivered_at"`
}
