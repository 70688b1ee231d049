package matcher

import (
	"encoding/json"
	"strings"

	"github.com/dukex/flowhook/pkg/models"
)

type accountKeyChangeConditions struct {
	Addresses flexStringSlice `json:"addresses"`
}

// AccountKeyChangeMatcher matches KeyAdded / KeyRevoked events. For these
// events ContractAddress carries the account whose keys changed.
type AccountKeyChangeMatcher struct{}

func (m *AccountKeyChangeMatcher) EventType() string { return models.EventTypeAccountKeyChange }

func (m *AccountKeyChangeMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	evt, ok := data.(*models.ContractEvent)
	if !ok || evt == nil || !isKeyChange(evt.EventName) {
		return models.MatchResult{}
	}

	var cond accountKeyChangeConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	if len(cond.Addresses) > 0 && !containsAddress(cond.Addresses, evt.ContractAddress) {
		return models.MatchResult{}
	}

	return models.MatchResult{
		Matched: true,
		EventData: map[string]any{
			"address":      evt.ContractAddress,
			"event_name":   evt.EventName,
			"tx_id":        evt.TransactionID,
			"block_height": evt.BlockHeight,
		},
	}
}

func isKeyChange(eventName string) bool {
	return strings.Contains(eventName, "KeyAdded") || strings.Contains(eventName, "KeyRevoked")
}
