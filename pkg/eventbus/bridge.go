package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowhook/pkg/models"
)

const (
	Topic = "flowhook.chain_events"

	EventMetadataKey       = "key"
	EventTypeMetadataKey   = "event_type"
	PayloadKindMetadataKey = "payload_kind"
)

var ErrUnknownPayloadKind = errors.New("unknown payload kind")

// Envelope is the wire form of an event on a watermill topic.
type Envelope struct {
	Type      string             `json:"type"`
	Height    uint64             `json:"height"`
	Timestamp time.Time          `json:"timestamp"`
	Kind      models.PayloadKind `json:"kind,omitempty"`
	Data      json.RawMessage    `json:"data,omitempty"`
}

func EncodeEnvelope(evt models.Event) ([]byte, error) {
	env := Envelope{
		Type:      evt.Type,
		Height:    evt.Height,
		Timestamp: evt.Timestamp,
	}

	if evt.Data != nil {
		data, err := json.Marshal(evt.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", evt.Data.PayloadKind(), err)
		}

		env.Kind = evt.Data.PayloadKind()
		env.Data = data
	}

	return json.Marshal(env)
}

func DecodeEnvelope(raw []byte) (models.Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Event{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	evt := models.Event{
		Type:      env.Type,
		Height:    env.Height,
		Timestamp: env.Timestamp,
	}

	if env.Kind == "" {
		return evt, nil
	}

	payload, ok := models.NewPayload(env.Kind)
	if !ok {
		return models.Event{}, fmt.Errorf("%w: %q", ErrUnknownPayloadKind, env.Kind)
	}

	if scalar, isScalar := payload.(models.ScalarPayload); isScalar {
		if err := json.Unmarshal(env.Data, &scalar); err != nil {
			return models.Event{}, fmt.Errorf("failed to unmarshal %s payload: %w", env.Kind, err)
		}

		evt.Data = scalar

		return evt, nil
	}

	if err := json.Unmarshal(env.Data, payload); err != nil {
		return models.Event{}, fmt.Errorf("failed to unmarshal %s payload: %w", env.Kind, err)
	}

	evt.Data = payload

	return evt, nil
}

// Forwarder mirrors bus events of the given types to a watermill topic.
type Forwarder struct {
	publisher message.Publisher
	topic     string
	events    chan models.Event
	logger    *slog.Logger
}

func NewForwarder(
	bus *Bus,
	publisher message.Publisher,
	topic string,
	eventTypes []string,
	buffer int,
	logger *slog.Logger,
) (*Forwarder, error) {
	f := &Forwarder{
		publisher: publisher,
		topic:     topic,
		events:    make(chan models.Event, buffer),
		logger:    logger.With("module", "eventbus-forwarder"),
	}

	for _, eventType := range eventTypes {
		if err := bus.Subscribe(eventType, f.events); err != nil {
			return nil, fmt.Errorf("failed to subscribe forwarder to %s: %w", eventType, err)
		}
	}

	return f, nil
}

// Run publishes until ctx is done. Publish failures are logged and the event is dropped.
func (f *Forwarder) Run(ctx context.Context) error {
	f.logger.Info("Forwarding events", "topic", f.topic)

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-f.events:
			if err := f.forward(evt); err != nil {
				f.logger.Error("Failed to forward event", "error", err, "event_type", evt.Type, "height", evt.Height)
			}
		}
	}
}

func (f *Forwarder) forward(evt models.Event) error {
	payload, err := EncodeEnvelope(evt)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(EventMetadataKey, evt.Type)
	msg.Metadata.Set(EventTypeMetadataKey, evt.Type)

	if evt.Data != nil {
		msg.Metadata.Set(PayloadKindMetadataKey, string(evt.Data.PayloadKind()))
	}

	return f.publisher.Publish(f.topic, msg)
}

// Relay feeds a bus from a watermill topic.
type Relay struct {
	bus        *Bus
	subscriber message.Subscriber
	topic      string
	logger     *slog.Logger
}

func NewRelay(bus *Bus, subscriber message.Subscriber, topic string, logger *slog.Logger) *Relay {
	return &Relay{
		bus:        bus,
		subscriber: subscriber,
		topic:      topic,
		logger:     logger.With("module", "eventbus-relay"),
	}
}

// Run consumes the topic until ctx is done or the subscriber closes. Messages
// that cannot be decoded are acked and dropped.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, r.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.topic, err)
	}

	r.logger.Info("Relaying events", "topic", r.topic)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			evt, err := DecodeEnvelope(msg.Payload)
			if err != nil {
				r.logger.Warn("Dropping undecodable message", "error", err, "message_id", msg.UUID)
				msg.Ack()

				continue
			}

			r.bus.Publish(evt)
			msg.Ack()
		}
	}
}
