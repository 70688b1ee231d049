// Package pathtest runs a single trigger path against mock event data so a
// workflow author can check conditions before deploying.
package pathtest

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/spf13/cast"
)

const (
	StatusPass = "pass"
	StatusFail = "fail"
)

const (
	mockTxID   = "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2"
	mockHeight = uint64(100000000)
	flowToken  = "1654653399040a61"
	mockPeer   = "18eb4ee6b3c026d2"
)

// Result is the outcome of one path test.
type Result struct {
	TriggerStatus string                    `json:"trigger_status"`
	TriggerError  string                    `json:"trigger_error,omitempty"`
	EventData     map[string]any            `json:"event_data,omitempty"`
	Conditions    []matcher.ConditionResult `json:"conditions,omitempty"`
}

// BuildMockEventData returns the default flat data for eventType with
// overrides applied on top.
func BuildMockEventData(eventType string, overrides map[string]any) map[string]any {
	data := defaults(eventType)
	maps.Copy(data, overrides)

	return data
}

func defaults(eventType string) map[string]any {
	switch eventType {
	case models.EventTypeFTTransfer, models.EventTypeLargeTransfer:
		return map[string]any{
			"from_address":           flowToken,
			"to_address":             mockPeer,
			"amount":                 "100.0",
			"token_contract_address": flowToken,
			"contract_name":          "FlowToken",
			"tx_id":                  mockTxID,
			"block_height":           mockHeight,
		}
	case models.EventTypeNFTTransfer:
		return map[string]any{
			"from_address":       flowToken,
			"to_address":         mockPeer,
			"nft_id":             "1",
			"collection_address": "0b2a3299cc857e29",
			"collection_name":    "TopShot",
			"tx_id":              mockTxID,
			"block_height":       mockHeight,
		}
	case models.EventTypeContractEvent:
		return map[string]any{
			"event_type":       "A.1654653399040a61.FlowToken.TokensDeposited",
			"contract_address": flowToken,
			"contract_name":    "FlowToken",
			"event_name":       "TokensDeposited",
			"fields":           `{"amount":"100.0"}`,
			"tx_id":            mockTxID,
			"block_height":     mockHeight,
		}
	case models.EventTypeAddressActivity:
		return map[string]any{
			"tx_id":        mockTxID,
			"block_height": mockHeight,
			"proposer":     flowToken,
			"payer":        flowToken,
			"authorizers":  []string{flowToken},
		}
	case models.EventTypeStakingEvent:
		return map[string]any{
			"event_type":   "DelegatorRewardsPaid",
			"node_id":      "node-001",
			"delegator_id": 1,
			"amount":       "500.0",
			"tx_id":        mockTxID,
			"block_height": mockHeight,
		}
	case models.EventTypeEVMTransaction:
		return map[string]any{
			"evm_hash":     "0xabcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890",
			"from_address": "0x1234567890abcdef1234567890abcdef12345678",
			"to_address":   "0xabcdef1234567890abcdef1234567890abcdef12",
			"value":        "1000000000000000000",
			"gas_used":     uint64(21000),
			"tx_id":        mockTxID,
		}
	case models.EventTypeAccountKeyChange:
		return map[string]any{
			"address":      flowToken,
			"event_name":   "KeyAdded",
			"tx_id":        mockTxID,
			"block_height": mockHeight,
		}
	case models.EventTypeDefiSwap:
		return map[string]any{
			"pair_id":      "pair-001",
			"event_type":   "Swap",
			"maker":        flowToken,
			"asset0_in":    "100.0",
			"asset0_out":   "0.0",
			"asset1_in":    "0.0",
			"asset1_out":   "50.0",
			"price_native": "0.5",
			"tx_id":        mockTxID,
			"block_height": mockHeight,
		}
	case models.EventTypeDefiLiquidity:
		return map[string]any{
			"pair_id":      "pair-001",
			"event_type":   "Add",
			"maker":        flowToken,
			"asset0_in":    "100.0",
			"asset0_out":   "0.0",
			"asset1_in":    "100.0",
			"asset1_out":   "0.0",
			"price_native": "1.0",
			"tx_id":        mockTxID,
			"block_height": mockHeight,
		}
	case models.EventTypeBalanceCheck:
		return map[string]any{
			"address":     flowToken,
			"balance":     "100.00000000",
			"balance_raw": uint64(10_000_000_000),
			"token":       "FLOW",
		}
	case models.EventTypeSchedule:
		return map[string]any{
			"cron":     "0 9 * * *",
			"timezone": matcher.DefaultTimezone,
			"fired_at": "2024-01-01T09:00:00Z",
		}
	default:
		return map[string]any{
			"tx_id":        mockTxID,
			"block_height": mockHeight,
		}
	}
}

// BuildPayload converts flat mock data into the payload the matcher of
// eventType expects. It returns nil for event types without a payload shape.
func BuildPayload(eventType string, data map[string]any) models.Payload {
	switch eventType {
	case models.EventTypeFTTransfer, models.EventTypeLargeTransfer:
		return &models.TokenTransfer{
			FromAddress:          cast.ToString(data["from_address"]),
			ToAddress:            cast.ToString(data["to_address"]),
			Amount:               cast.ToString(data["amount"]),
			TokenContractAddress: cast.ToString(data["token_contract_address"]),
			ContractName:         cast.ToString(data["contract_name"]),
			TransactionID:        cast.ToString(data["tx_id"]),
			BlockHeight:          cast.ToUint64(data["block_height"]),
		}
	case models.EventTypeNFTTransfer:
		return &models.TokenTransfer{
			FromAddress:          cast.ToString(data["from_address"]),
			ToAddress:            cast.ToString(data["to_address"]),
			TokenID:              cast.ToString(data["nft_id"]),
			TokenContractAddress: cast.ToString(data["collection_address"]),
			ContractName:         cast.ToString(data["collection_name"]),
			TransactionID:        cast.ToString(data["tx_id"]),
			BlockHeight:          cast.ToUint64(data["block_height"]),
			IsNFT:                true,
		}
	case models.EventTypeContractEvent:
		return &models.ContractEvent{
			Type:            cast.ToString(data["event_type"]),
			ContractAddress: cast.ToString(data["contract_address"]),
			ContractName:    cast.ToString(data["contract_name"]),
			EventName:       cast.ToString(data["event_name"]),
			Values:          rawJSON(data["fields"]),
			TransactionID:   cast.ToString(data["tx_id"]),
			BlockHeight:     cast.ToUint64(data["block_height"]),
		}
	case models.EventTypeAddressActivity:
		return &models.Transaction{
			ID:              cast.ToString(data["tx_id"]),
			BlockHeight:     cast.ToUint64(data["block_height"]),
			ProposerAddress: cast.ToString(data["proposer"]),
			PayerAddress:    cast.ToString(data["payer"]),
			Authorizers:     cast.ToStringSlice(data["authorizers"]),
		}
	case models.EventTypeStakingEvent:
		return &models.StakingEvent{
			EventType:     cast.ToString(data["event_type"]),
			NodeID:        cast.ToString(data["node_id"]),
			DelegatorID:   cast.ToInt(data["delegator_id"]),
			Amount:        cast.ToString(data["amount"]),
			TransactionID: cast.ToString(data["tx_id"]),
			BlockHeight:   cast.ToUint64(data["block_height"]),
		}
	case models.EventTypeEVMTransaction:
		return &models.EVMTransaction{
			EVMHash:       cast.ToString(data["evm_hash"]),
			FromAddress:   cast.ToString(data["from_address"]),
			ToAddress:     cast.ToString(data["to_address"]),
			Value:         cast.ToString(data["value"]),
			GasUsed:       cast.ToUint64(data["gas_used"]),
			TransactionID: cast.ToString(data["tx_id"]),
		}
	case models.EventTypeAccountKeyChange:
		return &models.ContractEvent{
			ContractAddress: cast.ToString(data["address"]),
			EventName:       cast.ToString(data["event_name"]),
			TransactionID:   cast.ToString(data["tx_id"]),
			BlockHeight:     cast.ToUint64(data["block_height"]),
		}
	case models.EventTypeDefiSwap, models.EventTypeDefiLiquidity:
		return &models.DefiEvent{
			PairID:        cast.ToString(data["pair_id"]),
			EventType:     cast.ToString(data["event_type"]),
			Maker:         cast.ToString(data["maker"]),
			Asset0In:      cast.ToString(data["asset0_in"]),
			Asset0Out:     cast.ToString(data["asset0_out"]),
			Asset1In:      cast.ToString(data["asset1_in"]),
			Asset1Out:     cast.ToString(data["asset1_out"]),
			PriceNative:   cast.ToString(data["price_native"]),
			TransactionID: cast.ToString(data["tx_id"]),
			BlockHeight:   cast.ToUint64(data["block_height"]),
		}
	case models.EventTypeBalanceCheck, models.EventTypeSchedule:
		return models.ScalarPayload(maps.Clone(data))
	default:
		return nil
	}
}

func rawJSON(v any) json.RawMessage {
	s := cast.ToString(v)
	if s == "" || !json.Valid([]byte(s)) {
		return nil
	}

	return json.RawMessage(s)
}

// Run builds mock data for eventType, runs the typed matcher and then reports
// every generic condition individually.
func Run(reg *matcher.Registry, eventType string, conditions json.RawMessage, overrides map[string]any) Result {
	m := reg.Get(eventType)
	if m == nil {
		return Result{
			TriggerStatus: StatusFail,
			TriggerError:  fmt.Sprintf("no matcher registered for event type %q", eventType),
		}
	}

	data := BuildMockEventData(eventType, overrides)

	payload := BuildPayload(eventType, data)
	if payload == nil {
		return Result{
			TriggerStatus: StatusFail,
			TriggerError:  fmt.Sprintf("unsupported event type for mock payload: %q", eventType),
		}
	}

	match := m.Match(payload, conditions)
	if !match.Matched {
		return Result{
			TriggerStatus: StatusFail,
			TriggerError:  "trigger conditions did not match mock data",
			EventData:     data,
		}
	}

	var generic map[string]any
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &generic); err != nil {
			return Result{TriggerStatus: StatusPass, EventData: match.EventData}
		}
	}

	results, passed := matcher.EvaluateConditionsDetailed(generic, match.EventData)

	status := StatusPass
	if !passed {
		status = StatusFail
	}

	return Result{
		TriggerStatus: status,
		EventData:     match.EventData,
		Conditions:    results,
	}
}
