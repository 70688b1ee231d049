package matcher

import (
	"encoding/json"

	"github.com/dukex/flowhook/pkg/models"
)

type evmTransactionConditions struct {
	From     string      `json:"from"`
	To       string      `json:"to"`
	MinValue flexFloat64 `json:"min_value"`
}

type EVMTransactionMatcher struct{}

func (m *EVMTransactionMatcher) EventType() string { return models.EventTypeEVMTransaction }

func (m *EVMTransactionMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	etx, ok := data.(*models.EVMTransaction)
	if !ok || etx == nil {
		return models.MatchResult{}
	}

	var cond evmTransactionConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	if cond.From != "" && !sameAddress(cond.From, etx.FromAddress) {
		return models.MatchResult{}
	}

	if cond.To != "" && !sameAddress(cond.To, etx.ToAddress) {
		return models.MatchResult{}
	}

	if cond.MinValue.set && !cond.MinValue.atLeast(etx.Value) {
		return models.MatchResult{}
	}

	return models.MatchResult{
		Matched: true,
		EventData: map[string]any{
			"evm_hash":     etx.EVMHash,
			"from_address": etx.FromAddress,
			"to_address":   etx.ToAddress,
			"value":        etx.Value,
			"gas_used":     etx.GasUsed,
			"tx_id":        etx.TransactionID,
			"block_height": etx.BlockHeight,
		},
	}
}
