package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowhook/pkg/channels/gochannel"
	"github.com/dukex/flowhook/pkg/channels/kafka"
	"github.com/dukex/flowhook/pkg/eventbus"
)

const (
	EventSourceNone      = "none"
	EventSourceKafka     = "kafka"
	EventSourceGoChannel = "gochannel"

	consumerGroup = "flowhook-router"
)

// NewEventBus builds the in-process bus every router component shares.
func NewEventBus(logger *slog.Logger) *eventbus.Bus {
	return eventbus.New(eventbus.WithLogger(logger))
}

// NewEventSource opens the watermill transport indexed chain events arrive on.
// The "none" source returns nil publisher and subscriber.
func NewEventSource(provider, brokers string, logger *slog.Logger) (message.Publisher, message.Subscriber, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch provider {
	case EventSourceNone, "":
		return nil, nil, nil
	case EventSourceKafka:
		pub, sub, err := kafka.CreateChannel(adapter, kafka.ParseBrokers(brokers), consumerGroup)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return pub, sub, nil
	case EventSourceGoChannel:
		return gochannel.CreateChannel(adapter)
	default:
		return nil, nil, fmt.Errorf("unsupported event source provider: %s", provider)
	}
}
