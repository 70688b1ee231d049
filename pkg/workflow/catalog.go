// Package workflow lowers editor canvases (trigger, condition and destination
// nodes joined by edges) into compiled subscription paths.
package workflow

import (
	"sort"

	"github.com/dukex/flowhook/pkg/models"
)

var triggerEventTypes = map[string]string{
	"trigger_ft_transfer":        models.EventTypeFTTransfer,
	"trigger_large_transfer":     models.EventTypeLargeTransfer,
	"trigger_nft_transfer":       models.EventTypeNFTTransfer,
	"trigger_address_activity":   models.EventTypeAddressActivity,
	"trigger_contract_event":     models.EventTypeContractEvent,
	"trigger_staking_event":      models.EventTypeStakingEvent,
	"trigger_defi_swap":          models.EventTypeDefiSwap,
	"trigger_defi_liquidity":     models.EventTypeDefiLiquidity,
	"trigger_account_key_change": models.EventTypeAccountKeyChange,
	"trigger_evm_transaction":    models.EventTypeEVMTransaction,
	"trigger_balance_check":      models.EventTypeBalanceCheck,
	"trigger_schedule":           models.EventTypeSchedule,
	"trigger_account_created":    models.EventTypeAccountCreated,
	"trigger_transaction_sealed": models.EventTypeTransactionSealed,
	"trigger_block_sealed":       models.EventTypeBlockSealed,
}

// Event types the editor offers before the router can match them. Triggers of
// these types do not compile.
var pendingEventTypes = map[string]bool{
	models.EventTypeAccountCreated:    true,
	models.EventTypeTransactionSealed: true,
	models.EventTypeBlockSealed:       true,
}

var destinationTypes = map[string]string{
	"dest_webhook":  "webhook",
	"dest_slack":    "slack",
	"dest_discord":  "discord",
	"dest_telegram": "telegram",
	"dest_email":    "email",
}

// EventTypeForTrigger maps an editor trigger node type to the event type it subscribes to.
func EventTypeForTrigger(nodeType string) (string, bool) {
	eventType, ok := triggerEventTypes[nodeType]

	return eventType, ok
}

// IsPendingEventType reports whether eventType is offered by the editor but
// not yet routed.
func IsPendingEventType(eventType string) bool {
	return pendingEventTypes[eventType]
}

// DestinationTypeFor maps an editor destination node type to an endpoint type.
func DestinationTypeFor(nodeType string) (string, bool) {
	t, ok := destinationTypes[nodeType]

	return t, ok
}

// TriggerNodeTypes lists the trigger node types the editor may offer.
func TriggerNodeTypes() []string {
	types := make([]string, 0, len(triggerEventTypes))
	for t := range triggerEventTypes {
		types = append(types, t)
	}

	sort.Strings(types)

	return types
}
