package matcher

import (
	"encoding/json"

	"github.com/dukex/flowhook/pkg/models"
)

type ftTransferConditions struct {
	Addresses     flexStringSlice `json:"addresses"`
	Direction     string          `json:"direction"`
	TokenContract string          `json:"token_contract"`
	MinAmount     flexFloat64     `json:"min_amount"`
}

// FTTransferMatcher matches fungible token transfers.
type FTTransferMatcher struct{}

func (m *FTTransferMatcher) EventType() string { return models.EventTypeFTTransfer }

func (m *FTTransferMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	tt, ok := data.(*models.TokenTransfer)
	if !ok || tt == nil || tt.IsNFT {
		return models.MatchResult{}
	}

	var cond ftTransferConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	return matchFTTransfer(tt, cond)
}

// LargeTransferMatcher is the FT matcher with a mandatory min_amount.
type LargeTransferMatcher struct{}

func (m *LargeTransferMatcher) EventType() string { return models.EventTypeLargeTransfer }

func (m *LargeTransferMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	tt, ok := data.(*models.TokenTransfer)
	if !ok || tt == nil || tt.IsNFT {
		return models.MatchResult{}
	}

	var cond ftTransferConditions
	if !decodeConditions(conditions, &cond) || !cond.MinAmount.set {
		return models.MatchResult{}
	}

	return matchFTTransfer(tt, cond)
}

func matchFTTransfer(tt *models.TokenTransfer, cond ftTransferConditions) models.MatchResult {
	if cond.TokenContract != "" && !matchContractIdentity(cond.TokenContract, tt.TokenContractAddress, tt.ContractName) {
		return models.MatchResult{}
	}

	if cond.MinAmount.set && !cond.MinAmount.atLeast(tt.Amount) {
		return models.MatchResult{}
	}

	if len(cond.Addresses) > 0 && !matchDirection(cond.Addresses, parseDirection(cond.Direction), tt.FromAddress, tt.ToAddress) {
		return models.MatchResult{}
	}

	return models.MatchResult{
		Matched: true,
		EventData: map[string]any{
			"from_address":           tt.FromAddress,
			"to_address":             tt.ToAddress,
			"amount":                 tt.Amount,
			"token_contract_address": tt.TokenContractAddress,
			"contract_name":          tt.ContractName,
			"tx_id":                  tt.TransactionID,
			"block_height":           tt.BlockHeight,
		},
	}
}
