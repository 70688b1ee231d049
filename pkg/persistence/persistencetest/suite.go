// Package persistencetest holds behaviour tests shared by every persistence
// implementation.
package persistencetest

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) persistence.Persistence

// Run exercises the repositories of the persistence returned by factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("workflows", func(t *testing.T) { testWorkflows(t, factory(t)) })
	t.Run("subscriptions", func(t *testing.T) { testSubscriptions(t, factory(t)) })
	t.Run("endpoints", func(t *testing.T) { testEndpoints(t, factory(t)) })
	t.Run("delivery logs", func(t *testing.T) { testDeliveryLogs(t, factory(t)) })
}

func testWorkflows(t *testing.T, p persistence.Persistence) {
	ctx := t.Context()
	repo := p.Workflows()

	require.NoError(t, p.HealthCheck(ctx))

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
	assert.True(t, persistence.IsNotFound(err))

	first := &models.Workflow{
		ID:        "wf-1",
		UserID:    "alice",
		Name:      "Whale alerts",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Nodes: []*models.Node{
			{ID: "t1", Type: "trigger_ft_transfer", Config: map[string]any{"addresses": "0xabc"}},
			{ID: "d1", Type: "dest_webhook", Config: map[string]any{"url": "https://example.com"}},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "t1", Target: "d1"}},
	}
	second := &models.Workflow{
		ID:        "wf-2",
		UserID:    "bob",
		Name:      "Staking",
		CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	got, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Whale alerts", got.Name)
	assert.Equal(t, "alice", got.UserID)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, "0xabc", got.Nodes[0].Config["addresses"])
	require.Len(t, got.Edges, 1)
	assert.Equal(t, "d1", got.Edges[0].Target)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "wf-2", all[0].ID, "newest first")

	mine, err := repo.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "wf-1", mine[0].ID)

	deployedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got.IsActive = true
	got.DeployedAt = &deployedAt
	require.NoError(t, repo.Save(ctx, got))

	got, err = repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.DeployedAt)
	assert.True(t, deployedAt.Equal(*got.DeployedAt))

	require.NoError(t, repo.Delete(ctx, "wf-1"))

	_, err = repo.GetByID(ctx, "wf-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func testSubscriptions(t *testing.T, p persistence.Persistence) {
	ctx := t.Context()
	repo := p.Subscriptions()

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrSubscriptionNotFound)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	subs := []*models.Subscription{
		{ID: "s1", EndpointID: "e1", EventType: models.EventTypeFTTransfer, Conditions: json.RawMessage(`{"addresses":["0xabc"]}`), IsEnabled: true, WorkflowID: "wf-1", CreatedAt: base},
		{ID: "s2", EndpointID: "e1", EventType: models.EventTypeNFTTransfer, IsEnabled: true, WorkflowID: "wf-1", CreatedAt: base.Add(time.Minute)},
		{ID: "s3", EndpointID: "e2", EventType: models.EventTypeFTTransfer, IsEnabled: false, WorkflowID: "wf-2", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "s4", EndpointID: "e3", EventType: models.EventTypeFTTransfer, IsEnabled: true, WorkflowID: "wf-2", CreatedAt: base.Add(3 * time.Minute)},
	}

	for _, s := range subs {
		require.NoError(t, repo.Save(ctx, s))
	}

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"addresses":["0xabc"]}`, string(got.Conditions))

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s4"}, subscriptionIDs(enabled))

	ft, err := repo.ListByEventType(ctx, models.EventTypeFTTransfer)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s4"}, subscriptionIDs(ft), "disabled subscriptions are not listed")

	byWorkflow, err := repo.ListByWorkflow(ctx, "wf-2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s3", "s4"}, subscriptionIDs(byWorkflow))

	require.NoError(t, repo.DeleteByWorkflow(ctx, "wf-1"))

	enabled, err = repo.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s4"}, subscriptionIDs(enabled))

	ft, err = repo.ListByEventType(ctx, models.EventTypeFTTransfer)
	require.NoError(t, err)
	assert.Equal(t, []string{"s4"}, subscriptionIDs(ft))

	require.NoError(t, repo.DeleteByWorkflow(ctx, "no-such-workflow"))
}

func testEndpoints(t *testing.T, p persistence.Persistence) {
	ctx := t.Context()
	repo := p.Endpoints()

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrEndpointNotFound)

	endpoint := &models.Endpoint{
		ID:           "e1",
		UserID:       "alice",
		URL:          "https://hooks.slack.com/abc",
		EndpointType: "slack",
		Metadata:     json.RawMessage(`{"webhook_url":"https://hooks.slack.com/abc"}`),
		IsActive:     true,
		WorkflowID:   "wf-1",
	}
	other := &models.Endpoint{ID: "e2", EndpointType: "webhook", IsActive: true, WorkflowID: "wf-2"}

	require.NoError(t, repo.Save(ctx, endpoint))
	require.NoError(t, repo.Save(ctx, other))

	got, err := repo.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "slack", got.EndpointType)
	assert.Equal(t, "https://hooks.slack.com/abc", got.URL)
	assert.JSONEq(t, `{"webhook_url":"https://hooks.slack.com/abc"}`, string(got.Metadata))
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, repo.DeleteByWorkflow(ctx, "wf-1"))

	_, err = repo.GetByID(ctx, "e1")
	require.ErrorIs(t, err, persistence.ErrEndpointNotFound)

	_, err = repo.GetByID(ctx, "e2")
	require.NoError(t, err)
}

func testDeliveryLogs(t *testing.T, p persistence.Persistence) {
	ctx := t.Context()
	repo := p.DeliveryLogs()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, repo.Insert(ctx, &models.DeliveryLog{
			SubscriptionID: "s1",
			EndpointID:     "e1",
			EventType:      models.EventTypeFTTransfer,
			Payload:        json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
			StatusCode:     200,
			DeliveredAt:    base.Add(time.Duration(i) * time.Second),
		}))
	}

	require.NoError(t, repo.Insert(ctx, &models.DeliveryLog{
		SubscriptionID: "s2",
		EventType:      models.EventTypeNFTTransfer,
		Payload:        json.RawMessage(`{}`),
		Error:          "connection refused",
		DeliveredAt:    base,
	}))

	logs, err := repo.ListBySubscription(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.JSONEq(t, `{"n":4}`, string(logs[0].Payload), "newest first")
	assert.JSONEq(t, `{"n":2}`, string(logs[2].Payload))
	assert.NotEmpty(t, logs[0].ID)

	logs, err = repo.ListBySubscription(ctx, "s2", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "connection refused", logs[0].Error)

	logs, err = repo.ListBySubscription(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func subscriptionIDs(subs []*models.Subscription) []string {
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}

	return ids
}
