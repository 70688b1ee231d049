package matcher

import (
	"encoding/json"

	"github.com/dukex/flowhook/pkg/models"
)

type contractEventConditions struct {
	ContractAddress string          `json:"contract_address"`
	EventNames      flexStringSlice `json:"event_names"`
}

// ContractEventMatcher matches events by emitting contract and event name.
// An event name filter accepts either the short name or the full event type.
type ContractEventMatcher struct{}

func (m *ContractEventMatcher) EventType() string { return models.EventTypeContractEvent }

func (m *ContractEventMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	evt, ok := data.(*models.ContractEvent)
	if !ok || evt == nil {
		return models.MatchResult{}
	}

	var cond contractEventConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	if cond.ContractAddress != "" && !matchContractIdentity(cond.ContractAddress, evt.ContractAddress, evt.ContractName) {
		return models.MatchResult{}
	}

	if len(cond.EventNames) > 0 && !containsFold(cond.EventNames, evt.EventName) && !containsFold(cond.EventNames, evt.Type) {
		return models.MatchResult{}
	}

	return models.MatchResult{
		Matched: true,
		EventData: map[string]any{
			"event_type":       evt.Type,
			"contract_address": evt.ContractAddress,
			"contract_name":    evt.ContractName,
			"event_name":       evt.EventName,
			"fields":           string(evt.Values),
			"tx_id":            evt.TransactionID,
			"block_height":     evt.BlockHeight,
		},
	}
}
