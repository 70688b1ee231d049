package pathtest_test

import (
	"encoding/json"
	"testing"

	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/pathtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMockEventData_Overrides(t *testing.T) {
	t.Parallel()

	data := pathtest.BuildMockEventData(models.EventTypeFTTransfer, map[string]any{"amount": "5000.0", "memo": "x"})

	assert.Equal(t, "5000.0", data["amount"])
	assert.Equal(t, "x", data["memo"])
	assert.Equal(t, "FlowToken", data["contract_name"])

	fresh := pathtest.BuildMockEventData(models.EventTypeFTTransfer, nil)
	assert.Equal(t, "100.0", fresh["amount"])
}

func TestBuildMockEventData_UnknownType(t *testing.T) {
	t.Parallel()

	data := pathtest.BuildMockEventData("block.sealed", nil)

	assert.Len(t, data, 2)
	assert.Contains(t, data, "tx_id")
	assert.Contains(t, data, "block_height")
}

func TestBuildPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		eventType string
		kind      models.PayloadKind
	}{
		{models.EventTypeFTTransfer, models.PayloadKindTokenTransfer},
		{models.EventTypeLargeTransfer, models.PayloadKindTokenTransfer},
		{models.EventTypeNFTTransfer, models.PayloadKindTokenTransfer},
		{models.EventTypeContractEvent, models.PayloadKindContractEvent},
		{models.EventTypeAccountKeyChange, models.PayloadKindContractEvent},
		{models.EventTypeAddressActivity, models.PayloadKindTransaction},
		{models.EventTypeStakingEvent, models.PayloadKindStakingEvent},
		{models.EventTypeEVMTransaction, models.PayloadKindEVMTransaction},
		{models.EventTypeDefiSwap, models.PayloadKindDefiEvent},
		{models.EventTypeDefiLiquidity, models.PayloadKindDefiEvent},
		{models.EventTypeBalanceCheck, models.PayloadKindScalar},
		{models.EventTypeSchedule, models.PayloadKindScalar},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			t.Parallel()

			payload := pathtest.BuildPayload(tt.eventType, pathtest.BuildMockEventData(tt.eventType, nil))
			require.NotNil(t, payload)
			assert.Equal(t, tt.kind, payload.PayloadKind())
		})
	}

	assert.Nil(t, pathtest.BuildPayload(models.EventTypeBlockSealed, nil))
}

func TestBuildPayload_JSONOverrides(t *testing.T) {
	t.Parallel()

	var overrides map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"authorizers": ["0xabc", "def"], "block_height": 42}`), &overrides))

	payload := pathtest.BuildPayload(models.EventTypeAddressActivity, pathtest.BuildMockEventData(models.EventTypeAddressActivity, overrides))

	tx, ok := payload.(*models.Transaction)
	require.True(t, ok)
	assert.Equal(t, []string{"0xabc", "def"}, tx.Authorizers)
	assert.Equal(t, uint64(42), tx.BlockHeight)
}

func TestRun(t *testing.T) {
	t.Parallel()

	reg := matcher.NewDefaultRegistry()

	tests := []struct {
		name       string
		eventType  string
		conditions string
		overrides  map[string]any
		status     string
		errorText  string
		conditionN int
	}{
		{
			name:      "defaults match without conditions",
			eventType: models.EventTypeFTTransfer,
			status:    pathtest.StatusPass,
		},
		{
			name:       "trigger filter rejects mock data",
			eventType:  models.EventTypeFTTransfer,
			conditions: `{"min_amount": 500}`,
			status:     pathtest.StatusFail,
			errorText:  "trigger conditions did not match mock data",
		},
		{
			name:       "override satisfies trigger and field condition",
			eventType:  models.EventTypeFTTransfer,
			conditions: `{"min_amount": 500, "amount_>=": "1000"}`,
			overrides:  map[string]any{"amount": "1500.0"},
			status:     pathtest.StatusPass,
			conditionN: 1,
		},
		{
			name:       "field condition fails",
			eventType:  models.EventTypeFTTransfer,
			conditions: `{"to_address_==": "0000000000000001", "amount_>": "1"}`,
			status:     pathtest.StatusFail,
			conditionN: 2,
		},
		{
			name:       "large transfer needs min amount",
			eventType:  models.EventTypeLargeTransfer,
			conditions: `{"min_amount": 50}`,
			status:     pathtest.StatusPass,
		},
		{
			name:       "schedule routes on cron",
			eventType:  models.EventTypeSchedule,
			conditions: `{"cron": "0 9 * * *"}`,
			status:     pathtest.StatusPass,
		},
		{
			name:      "unknown event type",
			eventType: "ft.transfers",
			status:    pathtest.StatusFail,
			errorText: `no matcher registered for event type "ft.transfers"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var conditions json.RawMessage
			if tt.conditions != "" {
				conditions = json.RawMessage(tt.conditions)
			}

			result := pathtest.Run(reg, tt.eventType, conditions, tt.overrides)

			assert.Equal(t, tt.status, result.TriggerStatus)
			assert.Equal(t, tt.errorText, result.TriggerError)
			assert.Len(t, result.Conditions, tt.conditionN)
		})
	}
}

func TestRun_ConditionDetails(t *testing.T) {
	t.Parallel()

	result := pathtest.Run(matcher.NewDefaultRegistry(), models.EventTypeFTTransfer,
		json.RawMessage(`{"to_address_==": "0000000000000001", "amount_>": "1"}`), nil)

	require.Len(t, result.Conditions, 2)

	amount := result.Conditions[0]
	assert.Equal(t, "amount", amount.Field)
	assert.Equal(t, ">", amount.Operator)
	assert.Equal(t, "100.0", amount.Actual)
	assert.True(t, amount.Passed)

	to := result.Conditions[1]
	assert.Equal(t, "to_address", to.Field)
	assert.Equal(t, "18eb4ee6b3c026d2", to.Actual)
	assert.False(t, to.Passed)
}

func TestRun_EveryMatcherAcceptsItsDefaults(t *testing.T) {
	t.Parallel()

	reg := matcher.NewDefaultRegistry()

	for _, eventType := range reg.EventTypes() {
		if eventType == models.EventTypeLargeTransfer {
			continue
		}

		result := pathtest.Run(reg, eventType, nil, nil)
		assert.Equal(t, pathtest.StatusPass, result.TriggerStatus, eventType)
	}
}
