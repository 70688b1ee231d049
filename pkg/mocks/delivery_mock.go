package mocks

import (
	"context"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/webhooks"
	"github.com/stretchr/testify/mock"
)

// MockDelivery is a mock implementation of webhooks.Delivery interface.
type MockDelivery struct {
	mock.Mock
}

func (m *MockDelivery) Send(ctx context.Context, msg webhooks.Message) (int, error) {
	args := m.Called(ctx, msg)

	return args.Int(0), args.Error(1)
}

// MockBalanceSource is a mock implementation of webhooks.BalanceSource interface.
type MockBalanceSource struct {
	mock.Mock
}

func (m *MockBalanceSource) Balance(ctx context.Context, address string) (uint64, error) {
	args := m.Called(ctx, address)

	return args.Get(0).(uint64), args.Error(1)
}

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(evt models.Event) {
	m.Called(evt)
}

// Events returns the events passed to Publish, in order.
func (m *MockPublisher) Events() []models.Event {
	var out []models.Event

	for _, call := range m.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.Get(0).(models.Event))
		}
	}

	return out
}
