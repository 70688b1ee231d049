package matcher

import (
	"encoding/json"

	"github.com/dukex/flowhook/pkg/models"
)

type stakingEventConditions struct {
	EventTypes flexStringSlice `json:"event_types"`
	Subtypes   flexStringSlice `json:"subtypes"`
	NodeID     string          `json:"node_id"`
	MinAmount  flexFloat64     `json:"min_amount"`
}

// StakingEventMatcher matches staking events by type, node and amount.
// "subtypes" is the editor's name for "event_types"; both are honoured.
type StakingEventMatcher struct{}

func (m *StakingEventMatcher) EventType() string { return models.EventTypeStakingEvent }

func (m *StakingEventMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	se, ok := data.(*models.StakingEvent)
	if !ok || se == nil {
		return models.MatchResult{}
	}

	var cond stakingEventConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	types := append(append([]string{}, cond.EventTypes...), cond.Subtypes...)
	if len(types) > 0 && !containsFold(types, se.EventType) {
		return models.MatchResult{}
	}

	if cond.NodeID != "" && cond.NodeID != se.NodeID {
		return models.MatchResult{}
	}

	if cond.MinAmount.set && !cond.MinAmount.atLeast(se.Amount) {
		return models.MatchResult{}
	}

	return models.MatchResult{
		Matched: true,
		EventData: map[string]any{
			"event_type":   se.EventType,
			"node_id":      se.NodeID,
			"delegator_id": se.DelegatorID,
			"amount":       se.Amount,
			"tx_id":        se.TransactionID,
			"block_height": se.BlockHeight,
		},
	}
}
