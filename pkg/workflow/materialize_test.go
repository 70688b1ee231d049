package workflow_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	paths := []models.CompiledPath{
		{
			TriggerNodeID:     "t1",
			EventType:         models.EventTypeFTTransfer,
			Conditions:        map[string]any{"addresses": []string{"0xabc"}},
			DestinationNodeID: "d1",
			DestinationType:   "slack",
			DestinationConfig: map[string]any{"webhook_url": " https://hooks.slack.com/x "},
		},
		{
			TriggerNodeID:     "t2",
			EventType:         models.EventTypeNFTTransfer,
			Conditions:        map[string]any{},
			DestinationNodeID: "d1",
			DestinationType:   "slack",
			DestinationConfig: map[string]any{"webhook_url": " https://hooks.slack.com/x "},
		},
		{
			TriggerNodeID:     "t1",
			EventType:         models.EventTypeFTTransfer,
			Conditions:        map[string]any{"amount_>": "5"},
			DestinationNodeID: "d2",
			DestinationType:   "email",
			DestinationConfig: map[string]any{"to": "ops@example.com"},
		},
	}

	out, err := workflow.Materialize("wf-1", "alice", paths, now)
	require.NoError(t, err)
	require.Len(t, out.Endpoints, 2, "one endpoint per destination node")
	require.Len(t, out.Subscriptions, 3, "one subscription per path")

	slack := out.Endpoints[0]
	assert.NotEmpty(t, slack.ID)
	assert.Equal(t, "slack", slack.EndpointType)
	assert.Equal(t, "https://hooks.slack.com/x", slack.URL)
	assert.Equal(t, "wf-1", slack.WorkflowID)
	assert.Equal(t, "alice", slack.UserID)
	assert.True(t, slack.IsActive)
	assert.Equal(t, now, slack.CreatedAt)
	assert.JSONEq(t, `{"webhook_url":" https://hooks.slack.com/x "}`, string(slack.Metadata))

	assert.Empty(t, out.Endpoints[1].URL)

	assert.Equal(t, slack.ID, out.Subscriptions[0].EndpointID)
	assert.Equal(t, slack.ID, out.Subscriptions[1].EndpointID)
	assert.Equal(t, out.Endpoints[1].ID, out.Subscriptions[2].EndpointID)

	for _, sub := range out.Subscriptions {
		assert.True(t, sub.IsEnabled)
		assert.Equal(t, "wf-1", sub.WorkflowID)
		assert.True(t, json.Valid(sub.Conditions))
	}

	assert.JSONEq(t, `{"addresses":["0xabc"]}`, string(out.Subscriptions[0].Conditions))
	assert.JSONEq(t, `{}`, string(out.Subscriptions[1].Conditions))
	assert.Equal(t, models.EventTypeNFTTransfer, out.Subscriptions[1].EventType)
}

func TestMaterialize_NoPaths(t *testing.T) {
	t.Parallel()

	out, err := workflow.Materialize("wf-1", "alice", nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, out.Endpoints)
	assert.Empty(t, out.Subscriptions)
}
