package workflow_test

import (
	"log/slog"
	"testing"

	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/testutil"
	"github.com/dukex/flowhook/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompiler() *workflow.Compiler {
	return workflow.NewCompiler(slog.Default())
}

func TestCompile_SinglePath(t *testing.T) {
	t.Parallel()

	graph := &models.Graph{
		Nodes: []*models.Node{
			testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_ft_transfer", map[string]any{
				"addresses":      "0xabc, 0xdef",
				"direction":      "in",
				"min_amount":     "100",
				"token_contract": "",
			})),
			testutil.CreateTestNode(testutil.WithID("d1"), testutil.WithDestination("dest_slack", map[string]any{
				"webhook_url": "https://hooks.slack.com/x",
			})),
		},
		Edges: []*models.Edge{testutil.Connect("t1", "d1")},
	}

	result := newCompiler().Compile(graph)
	require.Empty(t, result.Errors)
	require.Len(t, result.Paths, 1)

	path := result.Paths[0]
	assert.Equal(t, "t1", path.TriggerNodeID)
	assert.Equal(t, models.EventTypeFTTransfer, path.EventType)
	assert.Equal(t, "d1", path.DestinationNodeID)
	assert.Equal(t, "slack", path.DestinationType)
	assert.Equal(t, map[string]any{"webhook_url": "https://hooks.slack.com/x"}, path.DestinationConfig)
	assert.Equal(t, map[string]any{
		"addresses":  []string{"0xabc", "0xdef"},
		"direction":  "in",
		"min_amount": float64(100),
	}, path.Conditions)
}

func TestCompile_ConditionChain(t *testing.T) {
	t.Parallel()

	graph := &models.Graph{
		Nodes: []*models.Node{
			testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_evm_transaction", map[string]any{"to": "0x1"})),
			testutil.CreateTestNode(testutil.WithID("c1"), testutil.WithCondition("value", ">", "1000")),
			testutil.CreateTestNode(testutil.WithID("c2"), testutil.WithCondition("from_address", "starts_with", "0x00")),
			testutil.CreateTestNode(testutil.WithID("d1")),
		},
		Edges: []*models.Edge{
			testutil.Connect("t1", "c1"),
			testutil.Connect("c1", "c2", models.HandleTrue),
			testutil.Connect("c2", "d1", models.HandleTrue),
		},
	}

	result := newCompiler().Compile(graph)
	require.Empty(t, result.Errors)
	require.Len(t, result.Paths, 1)

	conditions := result.Paths[0].Conditions
	assert.Equal(t, map[string]any{
		"to":                       "0x1",
		"value_>":                  "1000",
		"from_address_starts_with": "0x00",
	}, conditions)

	for key := range conditions {
		if matcher.IsTriggerConditionKey(key) {
			continue
		}

		field, op := matcher.ParseConditionKey(key)
		assert.NotEmpty(t, field, key)
		assert.NotEmpty(t, op, key)
	}
}

func TestCompile_BinaryBranchesInheritSameCondition(t *testing.T) {
	t.Parallel()

	graph := &models.Graph{
		Nodes: []*models.Node{
			testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_ft_transfer", map[string]any{})),
			testutil.CreateTestNode(testutil.WithID("if"), testutil.WithCondition("amount", ">=", 500)),
			testutil.CreateTestNode(testutil.WithID("yes"), testutil.WithDestination("dest_discord", map[string]any{"url": "https://discord/yes"})),
			testutil.CreateTestNode(testutil.WithID("no"), testutil.WithDestination("dest_email", map[string]any{"to": "ops@example.com"})),
		},
		Edges: []*models.Edge{
			testutil.Connect("t1", "if"),
			testutil.Connect("if", "yes", models.HandleTrue),
			testutil.Connect("if", "no", models.HandleFalse),
		},
	}

	result := newCompiler().Compile(graph)
	require.Empty(t, result.Errors)
	require.Len(t, result.Paths, 2)

	assert.Equal(t, "yes", result.Paths[0].DestinationNodeID)
	assert.Equal(t, "no", result.Paths[1].DestinationNodeID)
	assert.Equal(t, "discord", result.Paths[0].DestinationType)
	assert.Equal(t, "email", result.Paths[1].DestinationType)

	for _, path := range result.Paths {
		assert.Equal(t, map[string]any{"amount_>=": 500}, path.Conditions)
	}
}

func TestCompile_BranchConditionsDoNotLeak(t *testing.T) {
	t.Parallel()

	graph := &models.Graph{
		Nodes: []*models.Node{
			testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_defi_swap", map[string]any{"pair_id": "p1"})),
			testutil.CreateTestNode(testutil.WithID("a"), testutil.WithCondition("maker", "==", "0xa")),
			testutil.CreateTestNode(testutil.WithID("b"), testutil.WithCondition("price_native", "<", "2")),
			testutil.CreateTestNode(testutil.WithID("d1")),
			testutil.CreateTestNode(testutil.WithID("d2")),
		},
		Edges: []*models.Edge{
			testutil.Connect("t1", "a"),
			testutil.Connect("t1", "b"),
			testutil.Connect("a", "d1"),
			testutil.Connect("b", "d2"),
		},
	}

	result := newCompiler().Compile(graph)
	require.Empty(t, result.Errors)
	require.Len(t, result.Paths, 2)

	assert.Equal(t, map[string]any{"pair_id": "p1", "maker_==": "0xa"}, result.Paths[0].Conditions)
	assert.Equal(t, map[string]any{"pair_id": "p1", "price_native_<": "2"}, result.Paths[1].Conditions)
}

func TestCompile_DestinationReachedByTwoRoutes(t *testing.T) {
	t.Parallel()

	graph := &models.Graph{
		Nodes: []*models.Node{
			testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_nft_transfer", map[string]any{})),
			testutil.CreateTestNode(testutil.WithID("t2"), testutil.WithTrigger("trigger_address_activity", map[string]any{"roles": "PAYER"})),
			testutil.CreateTestNode(testutil.WithID("c1"), testutil.WithCondition("nft_id", "==", "7")),
			testutil.CreateTestNode(testutil.WithID("d1")),
		},
		Edges: []*models.Edge{
			testutil.Connect("t1", "c1"),
			testutil.Connect("t1", "d1"),
			testutil.Connect("c1", "d1"),
			testutil.Connect("t2", "d1"),
		},
	}

	result := newCompiler().Compile(graph)
	require.Empty(t, result.Errors)
	require.Len(t, result.Paths, 3)

	assert.Equal(t, models.EventTypeNFTTransfer, result.Paths[0].EventType)
	assert.Equal(t, map[string]any{"nft_id_==": "7"}, result.Paths[0].Conditions)
	assert.Equal(t, map[string]any{}, result.Paths[1].Conditions)
	assert.Equal(t, models.EventTypeAddressActivity, result.Paths[2].EventType)
	assert.Equal(t, map[string]any{"roles": []string{"PAYER"}}, result.Paths[2].Conditions)
}

func TestCompile_DestinationChaining(t *testing.T) {
	t.Parallel()

	graph := &models.Graph{
		Nodes: []*models.Node{
			testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_staking_event", map[string]any{})),
			testutil.CreateTestNode(testutil.WithID("d1")),
			testutil.CreateTestNode(testutil.WithID("d2"), testutil.WithDestination("dest_telegram", map[string]any{"chat_id": "1"})),
		},
		Edges: []*models.Edge{
			testutil.Connect("t1", "d1"),
			testutil.Connect("d1", "d2"),
		},
	}

	result := newCompiler().Compile(graph)
	require.Empty(t, result.Errors)
	require.Len(t, result.Paths, 2)
	assert.Equal(t, "telegram", result.Paths[1].DestinationType)
}

func TestCompile_CycleTerminates(t *testing.T) {
	t.Parallel()

	graph := &models.Graph{
		Nodes: []*models.Node{
			testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_ft_transfer", map[string]any{})),
			testutil.CreateTestNode(testutil.WithID("c1"), testutil.WithCondition("amount", ">", 1)),
			testutil.CreateTestNode(testutil.WithID("c2"), testutil.WithCondition("amount", "<", 10)),
			testutil.CreateTestNode(testutil.WithID("d1")),
		},
		Edges: []*models.Edge{
			testutil.Connect("t1", "c1"),
			testutil.Connect("c1", "c2"),
			testutil.Connect("c2", "c1"),
			testutil.Connect("c2", "d1"),
			testutil.Connect("d1", "t1"),
		},
	}

	result := newCompiler().Compile(graph)
	require.Empty(t, result.Errors)
	require.Len(t, result.Paths, 1)
	assert.Equal(t, map[string]any{"amount_>": 1, "amount_<": 10}, result.Paths[0].Conditions)
}

func TestCompile_Validation(t *testing.T) {
	t.Parallel()

	t.Run("no triggers", func(t *testing.T) {
		t.Parallel()

		graph := &models.Graph{
			Nodes: []*models.Node{
				testutil.CreateTestNode(testutil.WithID("c1"), testutil.WithCondition("amount", ">", 1)),
				testutil.CreateTestNode(testutil.WithID("d1")),
			},
			Edges: []*models.Edge{testutil.Connect("c1", "d1")},
		}

		result := newCompiler().Compile(graph)
		assert.Empty(t, result.Paths)
		assert.Equal(t, []string{workflow.ErrMsgNoTriggers}, result.Errors)
	})

	t.Run("empty graph", func(t *testing.T) {
		t.Parallel()

		result := newCompiler().Compile(&models.Graph{})
		assert.NotNil(t, result.Paths)
		assert.Empty(t, result.Paths)
		assert.Equal(t, []string{workflow.ErrMsgNoTriggers}, result.Errors)
	})

	t.Run("unconnected destination", func(t *testing.T) {
		t.Parallel()

		graph := &models.Graph{
			Nodes: []*models.Node{
				testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_ft_transfer", map[string]any{})),
				testutil.CreateTestNode(testutil.WithID("d1"), testutil.WithLabel("Ops webhook")),
			},
		}

		result := newCompiler().Compile(graph)
		assert.Empty(t, result.Paths)
		assert.Contains(t, result.Errors, `Node "Ops webhook" (d1) is not connected`)
		assert.NotContains(t, result.Errors, workflow.ErrMsgNoPath)
	})

	t.Run("no path to a destination", func(t *testing.T) {
		t.Parallel()

		graph := &models.Graph{
			Nodes: []*models.Node{
				testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_ft_transfer", map[string]any{})),
				testutil.CreateTestNode(testutil.WithID("c1"), testutil.WithCondition("amount", ">", 1)),
			},
			Edges: []*models.Edge{testutil.Connect("t1", "c1")},
		}

		result := newCompiler().Compile(graph)
		assert.Equal(t, []string{workflow.ErrMsgNoPath}, result.Errors)
	})

	t.Run("errors are collected together", func(t *testing.T) {
		t.Parallel()

		graph := &models.Graph{
			Nodes: []*models.Node{
				testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_unknown", map[string]any{})),
				testutil.CreateTestNode(testutil.WithID("t2"), testutil.WithTrigger("trigger_ft_transfer", map[string]any{})),
				testutil.CreateTestNode(testutil.WithID("c1"), testutil.WithCondition("amount", "approx", 1)),
				testutil.CreateTestNode(testutil.WithID("c2"), testutil.WithCondition("", "==", 1)),
				testutil.CreateTestNode(testutil.WithID("d1")),
				testutil.CreateTestNode(testutil.WithID("d2"), testutil.WithDestination("dest_pager", map[string]any{})),
				testutil.CreateTestNode(testutil.WithID("lonely")),
			},
			Edges: []*models.Edge{
				testutil.Connect("t1", "d1"),
				testutil.Connect("t2", "c1"),
				testutil.Connect("c1", "c2"),
				testutil.Connect("c2", "d1"),
				testutil.Connect("t2", "d2"),
				testutil.Connect("t2", "ghost"),
			},
		}

		result := newCompiler().Compile(graph)
		assert.ElementsMatch(t, []string{
			`Edge t2 → ghost references unknown node "ghost"`,
			`Node "Test Node" (lonely) is not connected`,
			`Trigger "Test Node" (t1) has unknown type trigger_unknown`,
			`Condition "Test Node" (c1) has unsupported operator "approx"`,
			`Condition "Test Node" (c2) needs a field`,
			`Destination "Test Node" (d2) has unknown type dest_pager`,
		}, result.Errors)
		assert.Empty(t, result.Paths, "no path is emitted below an invalid condition")
	})

	t.Run("duplicate node ids", func(t *testing.T) {
		t.Parallel()

		graph := &models.Graph{
			Nodes: []*models.Node{
				testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_ft_transfer", map[string]any{})),
				testutil.CreateTestNode(testutil.WithID("d1")),
				testutil.CreateTestNode(testutil.WithID("d1")),
			},
			Edges: []*models.Edge{testutil.Connect("t1", "d1")},
		}

		result := newCompiler().Compile(graph)
		assert.Equal(t, []string{`Node id "d1" is used more than once`}, result.Errors)
	})
}

func TestCompile_ScheduleTrigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config map[string]any
		errMsg string
	}{
		{"valid", map[string]any{"cron": "0 9 * * 1-5", "timezone": "America/New_York"}, ""},
		{"default timezone", map[string]any{"cron": "*/15 * * * *"}, ""},
		{"missing cron", map[string]any{"timezone": "UTC"}, `Trigger "Daily" (s1) needs a cron expression`},
		{"bad cron", map[string]any{"cron": "every day"}, `Trigger "Daily" (s1) has invalid cron expression "every day"`},
		{"bad timezone", map[string]any{"cron": "0 9 * * *", "timezone": "Mars/Olympus"}, `Trigger "Daily" (s1) has invalid timezone "Mars/Olympus"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			graph := &models.Graph{
				Nodes: []*models.Node{
					testutil.CreateTestNode(testutil.WithID("s1"), testutil.WithLabel("Daily"), testutil.WithTrigger("trigger_schedule", tt.config)),
					testutil.CreateTestNode(testutil.WithID("d1")),
				},
				Edges: []*models.Edge{testutil.Connect("s1", "d1")},
			}

			result := newCompiler().Compile(graph)
			if tt.errMsg == "" {
				require.Empty(t, result.Errors)
				assert.Equal(t, models.EventTypeSchedule, result.Paths[0].EventType)

				return
			}

			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.errMsg)
		})
	}
}

func TestCompile_InvalidConditionBlocksItsBranch(t *testing.T) {
	t.Parallel()

	graph := &models.Graph{
		Nodes: []*models.Node{
			testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithTrigger("trigger_ft_transfer", map[string]any{})),
			testutil.CreateTestNode(testutil.WithID("c1"), testutil.WithCondition("amount", "approx", 1)),
			testutil.CreateTestNode(testutil.WithID("c2"), testutil.WithCondition("to_address", "==", "0xabc")),
			testutil.CreateTestNode(testutil.WithID("d1")),
			testutil.CreateTestNode(testutil.WithID("d2")),
		},
		Edges: []*models.Edge{
			testutil.Connect("t1", "c1"),
			testutil.Connect("c1", "c2"),
			testutil.Connect("c2", "d1"),
			testutil.Connect("t1", "d2"),
		},
	}

	result := newCompiler().Compile(graph)
	assert.Equal(t, []string{`Condition "Test Node" (c1) has unsupported operator "approx"`}, result.Errors)
	require.Len(t, result.Paths, 1)
	assert.Equal(t, "d2", result.Paths[0].DestinationNodeID)
	assert.Empty(t, result.Paths[0].Conditions)
}

func TestCompile_PendingTriggerTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		triggerType string
		eventType   string
	}{
		{"trigger_account_created", models.EventTypeAccountCreated},
		{"trigger_transaction_sealed", models.EventTypeTransactionSealed},
		{"trigger_block_sealed", models.EventTypeBlockSealed},
	}

	registry := matcher.NewDefaultRegistry()

	for _, tt := range tests {
		t.Run(tt.triggerType, func(t *testing.T) {
			t.Parallel()

			graph := &models.Graph{
				Nodes: []*models.Node{
					testutil.CreateTestNode(testutil.WithID("t1"), testutil.WithLabel("Blocks"), testutil.WithTrigger(tt.triggerType, nil)),
					testutil.CreateTestNode(testutil.WithID("d1")),
				},
				Edges: []*models.Edge{testutil.Connect("t1", "d1")},
			}

			result := newCompiler().Compile(graph)
			assert.Empty(t, result.Paths)
			assert.Equal(t, []string{`Trigger "Blocks" (t1) type ` + tt.eventType + ` is not supported yet`}, result.Errors)

			assert.True(t, workflow.IsPendingEventType(tt.eventType))
			assert.Nil(t, registry.Get(tt.eventType))
		})
	}

	assert.False(t, workflow.IsPendingEventType(models.EventTypeFTTransfer))
}

func TestCronSpec(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "CRON_TZ=UTC 0 9 * * *", workflow.CronSpec(" 0 9 * * * ", ""))
	assert.Equal(t, "CRON_TZ=Europe/Paris @hourly", workflow.CronSpec("@hourly", "Europe/Paris"))
}
