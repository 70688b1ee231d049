package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/flowhook/pkg/eventbus"
	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/otelhelper"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/dukex/flowhook/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// EventBufferSize is the capacity of the orchestrator's bus subscription.
const EventBufferSize = 4096

// MessageTemplateKey is the destination config key holding the message template.
const MessageTemplateKey = "message"

// Orchestrator consumes bus events, matches them against cached
// subscriptions and delivers one message per matching subscription.
type Orchestrator struct {
	cache       *SubscriptionCache
	registry    *matcher.Registry
	persistence persistence.Persistence
	delivery    Delivery
	tracer      trace.Tracer
	logger      *slog.Logger
	events      chan models.Event
}

// NewOrchestrator subscribes to every event type the registry knows.
func NewOrchestrator(
	bus *eventbus.Bus,
	cache *SubscriptionCache,
	registry *matcher.Registry,
	p persistence.Persistence,
	delivery Delivery,
	tracer trace.Tracer,
	logger *slog.Logger,
) (*Orchestrator, error) {
	o := &Orchestrator{
		cache:       cache,
		registry:    registry,
		persistence: p,
		delivery:    delivery,
		tracer:      tracer,
		logger:      logger.With("module", "orchestrator"),
		events:      make(chan models.Event, EventBufferSize),
	}

	for _, eventType := range registry.EventTypes() {
		if err := bus.Subscribe(eventType, o.events); err != nil {
			return nil, fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
		}
	}

	return o, nil
}

// Run processes events until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "Orchestrator started")

	for {
		select {
		case <-ctx.Done():
			o.logger.InfoContext(ctx, "Orchestrator shutting down")

			return nil
		case evt := <-o.events:
			o.Process(ctx, evt)
		}
	}
}

// Process evaluates evt against every subscription of its type and returns
// how many subscriptions matched.
func (o *Orchestrator) Process(ctx context.Context, evt models.Event) int {
	m := o.registry.Get(evt.Type)
	if m == nil {
		return 0
	}

	subs := o.cache.GetByType(ctx, evt.Type)
	if len(subs) == 0 {
		return 0
	}

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "webhooks.process_event",
		attribute.String(otelhelper.EventTypeKey, evt.Type),
		attribute.Int64(otelhelper.EventHeightKey, int64(evt.Height)), //nolint:gosec // heights fit in int64
	)
	defer span.End()

	matched := 0

	for _, sub := range subs {
		result := matcher.Evaluate(m, evt.Data, sub.Conditions)
		if !result.Matched {
			continue
		}

		matched++

		o.deliver(ctx, sub, evt, result.EventData)
	}

	span.SetAttributes(attribute.Int(otelhelper.MatchedCountKey, matched))

	return matched
}

func (o *Orchestrator) deliver(ctx context.Context, sub *models.Subscription, evt models.Event, eventData map[string]any) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "webhooks.deliver",
		attribute.String(otelhelper.SubscriptionIDKey, sub.ID),
		attribute.String(otelhelper.EndpointIDKey, sub.EndpointID),
		attribute.String(otelhelper.WorkflowIDKey, sub.WorkflowID),
	)
	defer span.End()

	logger := o.logger.With("subscription_id", sub.ID, "endpoint_id", sub.EndpointID, "event_type", evt.Type)

	endpoint, err := o.persistence.Endpoints().GetByID(ctx, sub.EndpointID)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to load endpoint", "error", err)
		o.record(ctx, sub, evt, Message{EventType: evt.Type, EventData: eventData}, 0, err)

		return
	}

	if !endpoint.IsActive {
		logger.DebugContext(ctx, "Endpoint inactive, skipping")

		return
	}

	span.SetAttributes(attribute.String(otelhelper.EndpointTypeKey, endpoint.EndpointType))

	msg := o.buildMessage(ctx, sub, endpoint, evt, eventData)

	status, err := o.delivery.Send(ctx, msg)
	span.SetAttributes(attribute.Int(otelhelper.StatusCodeKey, status))

	if err != nil {
		otelhelper.SetError(span, err)
		logger.WarnContext(ctx, "Delivery failed", "status_code", status, "error", err)
	}

	o.record(ctx, sub, evt, msg, status, err)
}

func (o *Orchestrator) buildMessage(ctx context.Context, sub *models.Subscription, endpoint *models.Endpoint, evt models.Event, eventData map[string]any) Message {
	config := map[string]any{}
	if len(endpoint.Metadata) > 0 {
		if err := json.Unmarshal(endpoint.Metadata, &config); err != nil {
			o.logger.WarnContext(ctx, "Endpoint metadata is not an object", "endpoint_id", endpoint.ID, "error", err)
		}
	}

	msg := Message{
		SubscriptionID: sub.ID,
		EndpointID:     endpoint.ID,
		EndpointType:   endpoint.EndpointType,
		URL:            endpoint.URL,
		Config:         config,
		EventType:      evt.Type,
		Height:         evt.Height,
		Timestamp:      evt.Timestamp,
		EventData:      eventData,
	}

	msg.Text = defaultText(evt)

	if tmpl, ok := config[MessageTemplateKey].(string); ok && tmpl != "" {
		text, err := template.RenderText(tmpl, template.EventContext(evt, eventData))
		if err != nil {
			o.logger.WarnContext(ctx, "Failed to render message template", "endpoint_id", endpoint.ID, "error", err)
		} else {
			msg.Text = text
		}
	}

	return msg
}

func defaultText(evt models.Event) string {
	if evt.Height == 0 {
		return evt.Type
	}

	return fmt.Sprintf("%s at height %d", evt.Type, evt.Height)
}

func (o *Orchestrator) record(ctx context.Context, sub *models.Subscription, evt models.Event, msg Message, status int, deliveryErr error) {
	entry := &models.DeliveryLog{
		SubscriptionID: sub.ID,
		EndpointID:     sub.EndpointID,
		EventType:      evt.Type,
		Payload:        payloadOf(msg),
		StatusCode:     status,
	}

	if deliveryErr != nil {
		entry.Error = deliveryErr.Error()
	}

	if err := o.persistence.DeliveryLogs().Insert(ctx, entry); err != nil {
		o.logger.ErrorContext(ctx, "Failed to record delivery", "subscription_id", sub.ID, "error", err)
	}
}
