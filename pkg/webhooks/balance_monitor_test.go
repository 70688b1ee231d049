package webhooks_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/flowhook/pkg/mocks"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/webhooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newBalanceMonitor(t *testing.T, subs []*models.Subscription, source webhooks.BalanceSource, publisher webhooks.Publisher) *webhooks.BalanceMonitor {
	t.Helper()

	repo := &mocks.MockSubscriptionRepository{}
	repo.On("ListEnabled", mock.Anything).Return(subs, nil)

	cache := webhooks.NewSubscriptionCache(repo, time.Minute, slog.Default())

	return webhooks.NewBalanceMonitor(cache, source, publisher, "", slog.Default())
}

func balanceSub(id, conditions string) *models.Subscription {
	return &models.Subscription{
		ID:         id,
		EventType:  models.EventTypeBalanceCheck,
		Conditions: json.RawMessage(conditions),
		IsEnabled:  true,
	}
}

func TestBalanceMonitor_Addresses(t *testing.T) {
	monitor := newBalanceMonitor(t, []*models.Subscription{
		balanceSub("b1", `{"addresses": ["0x1654653399040A61", "e467b9dd11fa00df"]}`),
		balanceSub("b2", `{"addresses": "1654653399040a61, 0xf233dcee88fe0abe"}`),
		balanceSub("b3", `{}`),
		{ID: "ft", EventType: models.EventTypeFTTransfer, Conditions: json.RawMessage(`{"addresses": ["0000000000000001"]}`), IsEnabled: true},
	}, &mocks.MockBalanceSource{}, &mocks.MockPublisher{})

	assert.Equal(t, []string{"1654653399040a61", "e467b9dd11fa00df", "f233dcee88fe0abe"}, monitor.Addresses(context.Background()))
}

func TestBalanceMonitor_Check(t *testing.T) {
	source := &mocks.MockBalanceSource{}
	source.On("Balance", mock.Anything, "1654653399040a61").Return(uint64(123_456_789_000), nil)
	source.On("Balance", mock.Anything, "e467b9dd11fa00df").Return(uint64(0), errors.New("account not found"))

	publisher := &mocks.MockPublisher{}
	publisher.On("Publish", mock.Anything).Return()

	monitor := newBalanceMonitor(t, []*models.Subscription{
		balanceSub("b1", `{"addresses": ["0x1654653399040a61", "0xe467b9dd11fa00df"]}`),
	}, source, publisher)

	published := monitor.Check(context.Background())

	assert.Equal(t, 1, published)
	source.AssertExpectations(t)

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeBalanceCheck, events[0].Type)
	assert.Equal(t, models.ScalarPayload{
		"address":     "1654653399040a61",
		"balance":     "1234.56789000",
		"balance_raw": uint64(123_456_789_000),
		"token":       "FLOW",
	}, events[0].Data)
}

func TestBalanceMonitor_NoSubscriptions(t *testing.T) {
	source := &mocks.MockBalanceSource{}
	monitor := newBalanceMonitor(t, nil, source, &mocks.MockPublisher{})

	assert.Equal(t, 0, monitor.Check(context.Background()))
	source.AssertNotCalled(t, "Balance", mock.Anything, mock.Anything)
}

func TestBalanceMonitor_RunRejectsInvalidSpec(t *testing.T) {
	repo := &mocks.MockSubscriptionRepository{}
	cache := webhooks.NewSubscriptionCache(repo, time.Minute, slog.Default())
	monitor := webhooks.NewBalanceMonitor(cache, &mocks.MockBalanceSource{}, &mocks.MockPublisher{}, "every now and then", slog.Default())

	require.Error(t, monitor.Run(context.Background()))
	repo.AssertNotCalled(t, "ListEnabled", mock.Anything)
}
