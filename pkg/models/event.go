// Package models defines the chain payloads, subscriptions and workflow graph shared by the router.
package models

import "time"

// Event is a single indexed chain activity routed through the event bus.
type Event struct {
	Type      string    `json:"type"`
	Height    uint64    `json:"height"`
	Timestamp time.Time `json:"timestamp"`
	Data      Payload   `json:"data"`
}

// MatchResult is a matcher verdict plus the normalized projection of the payload.
// EventData feeds both the generic condition evaluator and destination templates.
type MatchResult struct {
	Matched   bool           `json:"matched"`
	EventData map[string]any `json:"event_data,omitempty"`
}
