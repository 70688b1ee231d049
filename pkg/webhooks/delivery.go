package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxDrainBytes caps how much of a response body is read before closing it.
const maxDrainBytes = 64 << 10

var ErrNoURL = errors.New("endpoint has no URL")

// Message is one rendered notification for one endpoint.
type Message struct {
	SubscriptionID string         `json:"subscription_id"`
	EndpointID     string         `json:"endpoint_id"`
	EndpointType   string         `json:"endpoint_type"`
	URL            string         `json:"url,omitempty"`
	Config         map[string]any `json:"-"`
	EventType      string         `json:"event_type"`
	Height         uint64         `json:"block_height"`
	Timestamp      time.Time      `json:"timestamp"`
	EventData      map[string]any `json:"data"`
	Text           string         `json:"text"`
}

// Delivery sends a message to its endpoint. statusCode is the transport's
// status, or 0 when nothing was sent.
type Delivery interface {
	Send(ctx context.Context, msg Message) (statusCode int, err error)
}

// LogDelivery writes messages to the log instead of sending them.
type LogDelivery struct {
	logger *slog.Logger
}

func NewLogDelivery(logger *slog.Logger) *LogDelivery {
	return &LogDelivery{logger: logger.With("module", "log-delivery")}
}

func (d *LogDelivery) Send(ctx context.Context, msg Message) (int, error) {
	d.logger.InfoContext(ctx, "Delivering message",
		"endpoint_id", msg.EndpointID,
		"endpoint_type", msg.EndpointType,
		"event_type", msg.EventType,
		"height", msg.Height,
		"text", msg.Text)

	return http.StatusOK, nil
}

// HTTPDelivery POSTs the message as JSON to the endpoint URL. Slack and
// Discord incoming webhooks get the text in the field they expect.
type HTTPDelivery struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTPDelivery(timeout time.Duration, logger *slog.Logger) *HTTPDelivery {
	return &HTTPDelivery{
		client: &http.Client{Timeout: timeout},
		logger: logger.With("module", "http-delivery"),
	}
}

func (d *HTTPDelivery) Send(ctx context.Context, msg Message) (int, error) {
	if msg.URL == "" {
		return 0, fmt.Errorf("%w: %s", ErrNoURL, msg.EndpointID)
	}

	body, err := json.Marshal(requestBody(msg))
	if err != nil {
		return 0, fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Flowhook-Event", msg.EventType)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

		if err := resp.Body.Close(); err != nil {
			d.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("endpoint responded with status %d", resp.StatusCode)
	}

	return resp.StatusCode, nil
}

func requestBody(msg Message) any {
	switch msg.EndpointType {
	case "slack":
		return map[string]any{"text": msg.Text}
	case "discord":
		return map[string]any{"content": msg.Text}
	default:
		return msg
	}
}

// DeliveryFunc adapts a function to Delivery.
type DeliveryFunc func(ctx context.Context, msg Message) (int, error)

func (f DeliveryFunc) Send(ctx context.Context, msg Message) (int, error) {
	return f(ctx, msg)
}

// RoutedDelivery picks a Delivery by endpoint type, falling back to Default.
type RoutedDelivery struct {
	Routes  map[string]Delivery
	Default Delivery
}

func (d *RoutedDelivery) Send(ctx context.Context, msg Message) (int, error) {
	if route, ok := d.Routes[msg.EndpointType]; ok {
		return route.Send(ctx, msg)
	}

	return d.Default.Send(ctx, msg)
}

// payloadOf is what a delivery log records for a message.
func payloadOf(msg Message) json.RawMessage {
	body, err := json.Marshal(msg)
	if err != nil {
		return json.RawMessage(`{}`)
	}

	return body
}

var (
	_ Delivery = (*LogDelivery)(nil)
	_ Delivery = (*HTTPDelivery)(nil)
	_ Delivery = (*RoutedDelivery)(nil)
	_ Delivery = DeliveryFunc(nil)
)
