package matcher

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dukex/flowhook/pkg/models"
)

const defiSwap = "Swap"

type defiSwapConditions struct {
	PairID    string          `json:"pair_id"`
	MinAmount flexFloat64     `json:"min_amount"`
	Addresses flexStringSlice `json:"addresses"`
}

// DefiSwapMatcher matches swaps. min_amount is compared with the largest of the
// four legs; addresses filter on the maker.
type DefiSwapMatcher struct{}

func (m *DefiSwapMatcher) EventType() string { return models.EventTypeDefiSwap }

func (m *DefiSwapMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	de, ok := data.(*models.DefiEvent)
	if !ok || de == nil || !strings.EqualFold(de.EventType, defiSwap) {
		return models.MatchResult{}
	}

	var cond defiSwapConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	if cond.PairID != "" && cond.PairID != de.PairID {
		return models.MatchResult{}
	}

	if cond.MinAmount.set {
		largest, ok := largestLeg(de)
		if !ok || !cond.MinAmount.valid || largest < cond.MinAmount.value {
			return models.MatchResult{}
		}
	}

	if len(cond.Addresses) > 0 && !containsAddress(cond.Addresses, de.Maker) {
		return models.MatchResult{}
	}

	return models.MatchResult{Matched: true, EventData: defiEventData(de)}
}

// largestLeg returns the maximum of the legs that parse; ok is false when none do.
func largestLeg(de *models.DefiEvent) (float64, bool) {
	var (
		largest float64
		found   bool
	)

	for _, leg := range []string{de.Asset0In, de.Asset0Out, de.Asset1In, de.Asset1Out} {
		v, err := strconv.ParseFloat(strings.TrimSpace(leg), 64)
		if err != nil {
			continue
		}

		if !found || v > largest {
			largest, found = v, true
		}
	}

	return largest, found
}

type defiLiquidityConditions struct {
	PairID    string `json:"pair_id"`
	EventType string `json:"event_type"`
}

// DefiLiquidityMatcher matches every non-swap pair event (Add, Remove).
type DefiLiquidityMatcher struct{}

func (m *DefiLiquidityMatcher) EventType() string { return models.EventTypeDefiLiquidity }

func (m *DefiLiquidityMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	de, ok := data.(*models.DefiEvent)
	if !ok || de == nil || strings.EqualFold(de.EventType, defiSwap) {
		return models.MatchResult{}
	}

	var cond defiLiquidityConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	if cond.PairID != "" && cond.PairID != de.PairID {
		return models.MatchResult{}
	}

	if cond.EventType != "" && !strings.EqualFold(cond.EventType, de.EventType) {
		return models.MatchResult{}
	}

	return models.MatchResult{Matched: true, EventData: defiEventData(de)}
}

func defiEventData(de *models.DefiEvent) map[string]any {
	return map[string]any{
		"pair_id":      de.PairID,
		"event_type":   de.EventType,
		"maker":        de.Maker,
		"asset0_in":    de.Asset0In,
		"asset0_out":   de.Asset0Out,
		"asset1_in":    de.Asset1In,
		"asset1_out":   de.Asset1Out,
		"price_native": de.PriceNative,
		"tx_id":        de.TransactionID,
		"block_height": de.BlockHeight,
	}
}
