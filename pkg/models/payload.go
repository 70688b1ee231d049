package models

import (
	"encoding/json"
	"time"
)

// PayloadKind names the concrete variant carried by Event.Data.
type PayloadKind string

const (
	PayloadKindTokenTransfer  PayloadKind = "token_transfer"
	PayloadKindTransaction    PayloadKind = "transaction"
	PayloadKindContractEvent  PayloadKind = "contract_event"
	PayloadKindStakingEvent   PayloadKind = "staking_event"
	PayloadKindDefiEvent      PayloadKind = "defi_event"
	PayloadKindEVMTransaction PayloadKind = "evm_transaction"
	PayloadKindScalar         PayloadKind = "scalar"
)

// Payload is the closed set of event data shapes. The unexported marker keeps
// the set sealed to this package.
type Payload interface {
	PayloadKind() PayloadKind
	isPayload()
}

// TokenTransfer is a fungible or non-fungible token movement.
type TokenTransfer struct {
	TransactionID        string    `json:"transaction_id"`
	BlockHeight          uint64    `json:"block_height"`
	TokenContractAddress string    `json:"token_contract_address"`
	ContractName         string    `json:"contract_name"`
	FromAddress          string    `json:"from_address"`
	ToAddress            string    `json:"to_address"`
	Amount               string    `json:"amount"`
	TokenID              string    `json:"token_id,omitempty"`
	IsNFT                bool      `json:"is_nft"`
	Timestamp            time.Time `json:"timestamp"`
}

// Transaction is a sealed chain transaction with its signer roles.
type Transaction struct {
	ID              string   `json:"id"`
	BlockHeight     uint64   `json:"block_height"`
	ProposerAddress string   `json:"proposer_address"`
	PayerAddress    string   `json:"payer_address"`
	Authorizers     []string `json:"authorizers"`
	Status          string   `json:"status"`
	IsEVM           bool     `json:"is_evm"`
	GasUsed         uint64   `json:"gas_used"`
}

// ContractEvent is an event emitted by a contract. For account key events
// ContractAddress holds the account whose keys changed.
type ContractEvent struct {
	TransactionID   string          `json:"transaction_id"`
	BlockHeight     uint64          `json:"block_height"`
	Type            string          `json:"type"`
	EventIndex      int             `json:"event_index"`
	ContractAddress string          `json:"contract_address"`
	ContractName    string          `json:"contract_name"`
	EventName       string          `json:"event_name"`
	Values          json.RawMessage `json:"values,omitempty"`
}

// StakingEvent is a staking or delegation event of a node.
type StakingEvent struct {
	TransactionID string `json:"transaction_id"`
	BlockHeight   uint64 `json:"block_height"`
	EventType     string `json:"event_type"`
	NodeID        string `json:"node_id"`
	DelegatorID   int    `json:"delegator_id"`
	Amount        string `json:"amount"`
}

// DefiEvent is a swap or liquidity change on a trading pair.
type DefiEvent struct {
	TransactionID string `json:"transaction_id"`
	BlockHeight   uint64 `json:"block_height"`
	PairID        string `json:"pair_id"`
	EventType     string `json:"event_type"` // Swap, Add, Remove
	Maker         string `json:"maker"`
	Asset0In      string `json:"asset0_in"`
	Asset0Out     string `json:"asset0_out"`
	Asset1In      string `json:"asset1_in"`
	Asset1Out     string `json:"asset1_out"`
	PriceNative   string `json:"price_native"`
}

// EVMTransaction is a transaction executed by the EVM environment.
type EVMTransaction struct {
	TransactionID string `json:"transaction_id"`
	BlockHeight   uint64 `json:"block_height"`
	EVMHash       string `json:"evm_hash"`
	FromAddress   string `json:"from_address"`
	ToAddress     string `json:"to_address"`
	Value         string `json:"value"`
	Data          string `json:"data,omitempty"`
	GasUsed       uint64 `json:"gas_used"`
}

// ScalarPayload is an untyped map used by schedule and balance check events.
type ScalarPayload map[string]any

func (*TokenTransfer) PayloadKind() PayloadKind  { return PayloadKindTokenTransfer }
func (*Transaction) PayloadKind() PayloadKind    { return PayloadKindTransaction }
func (*ContractEvent) PayloadKind() PayloadKind  { return PayloadKindContractEvent }
func (*StakingEvent) PayloadKind() PayloadKind   { return PayloadKindStakingEvent }
func (*DefiEvent) PayloadKind() PayloadKind      { return PayloadKindDefiEvent }
func (*EVMTransaction) PayloadKind() PayloadKind { return PayloadKindEVMTransaction }
func (ScalarPayload) PayloadKind() PayloadKind   { return PayloadKindScalar }

func (*TokenTransfer) isPayload()  {}
func (*Transaction) isPayload()    {}
func (*ContractEvent) isPayload()  {}
func (*StakingEvent) isPayload()   {}
func (*DefiEvent) isPayload()      {}
func (*EVMTransaction) isPayload() {}
func (ScalarPayload) isPayload()   {}

// NewPayload returns an empty payload of the given kind, ready to be unmarshalled into.
func NewPayload(kind PayloadKind) (Payload, bool) {
	switch kind {
	case PayloadKindTokenTransfer:
		return &TokenTransfer{}, true
	case PayloadKindTransaction:
		return &Transaction{}, true
	case PayloadKindContractEvent:
		return &ContractEvent{}, true
	case PayloadKindStakingEvent:
		return &StakingEvent{}, true
	case PayloadKindDefiEvent:
		return &DefiEvent{}, true
	case PayloadKindEVMTransaction:
		return &EVMTransaction{}, true
	case PayloadKindScalar:
		return ScalarPayload{}, true
	default:
		return nil, false
	}
}
