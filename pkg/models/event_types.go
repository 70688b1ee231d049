package models

// Event types routed by the bus and bound by subscriptions.
const (
	EventTypeFTTransfer       = "ft.transfer"
	EventTypeLargeTransfer    = "ft.large_transfer"
	EventTypeNFTTransfer      = "nft.transfer"
	EventTypeAddressActivity  = "address.activity"
	EventTypeContractEvent    = "contract.event"
	EventTypeStakingEvent     = "staking.event"
	EventTypeDefiSwap         = "defi.swap"
	EventTypeDefiLiquidity    = "defi.liquidity"
	EventTypeAccountKeyChange = "account.key_change"
	EventTypeEVMTransaction   = "evm.transaction"
	EventTypeBalanceCheck     = "balance.check"
	EventTypeSchedule         = "schedule"

	// Trigger types offered by the editor without a matcher yet.
	EventTypeAccountCreated    = "account.created"
	EventTypeTransactionSealed = "transaction.sealed"
	EventTypeBlockSealed       = "block.sealed"
)

// SupportedEventTypes lists every event type a subscription may bind to.
var SupportedEventTypes = []string{
	EventTypeFTTransfer,
	EventTypeLargeTransfer,
	EventTypeNFTTransfer,
	EventTypeAddressActivity,
	EventTypeContractEvent,
	EventTypeStakingEvent,
	EventTypeDefiSwap,
	EventTypeDefiLiquidity,
	EventTypeAccountKeyChange,
	EventTypeEVMTransaction,
	EventTypeBalanceCheck,
	EventTypeSchedule,
	EventTypeAccountCreated,
	EventTypeTransactionSealed,
	EventTypeBlockSealed,
}

// IsSupportedEventType reports whether eventType is part of the catalogue.
func IsSupportedEventType(eventType string) bool {
	for _, et := range SupportedEventTypes {
		if et == eventType {
			return true
		}
	}

	return false
}
