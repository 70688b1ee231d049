package matcher

import (
	"encoding/json"
	"strings"

	"github.com/dukex/flowhook/pkg/models"
)

type nftTransferConditions struct {
	Addresses  flexStringSlice `json:"addresses"`
	Direction  string          `json:"direction"`
	Collection string          `json:"collection"`
	TokenIDs   flexStringSlice `json:"token_ids"`
}

type NFTTransferMatcher struct{}

func (m *NFTTransferMatcher) EventType() string { return models.EventTypeNFTTransfer }

func (m *NFTTransferMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	tt, ok := data.(*models.TokenTransfer)
	if !ok || tt == nil || !tt.IsNFT {
		return models.MatchResult{}
	}

	var cond nftTransferConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	if cond.Collection != "" && !matchContractIdentity(cond.Collection, tt.TokenContractAddress, tt.ContractName) {
		return models.MatchResult{}
	}

	if len(cond.TokenIDs) > 0 && !containsTokenID(cond.TokenIDs, tt.TokenID) {
		return models.MatchResult{}
	}

	if len(cond.Addresses) > 0 && !matchDirection(cond.Addresses, parseDirection(cond.Direction), tt.FromAddress, tt.ToAddress) {
		return models.MatchResult{}
	}

	return models.MatchResult{
		Matched: true,
		EventData: map[string]any{
			"from_address":       tt.FromAddress,
			"to_address":         tt.ToAddress,
			"nft_id":             tt.TokenID,
			"collection_address": tt.TokenContractAddress,
			"collection_name":    tt.ContractName,
			"tx_id":              tt.TransactionID,
			"block_height":       tt.BlockHeight,
		},
	}
}

func containsTokenID(ids []string, tokenID string) bool {
	tokenID = strings.TrimSpace(tokenID)
	for _, id := range ids {
		if id == tokenID {
			return true
		}
	}

	return false
}
