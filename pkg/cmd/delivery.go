package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowhook/pkg/webhooks"
)

const (
	DeliveryLog  = "log"
	DeliveryHTTP = "http"
)

// NewDelivery returns the sender for mode. In http mode webhook, Slack and
// Discord endpoints are POSTed to; other endpoint types are logged.
func NewDelivery(mode string, timeout time.Duration, logger *slog.Logger) (webhooks.Delivery, error) {
	logDelivery := webhooks.NewLogDelivery(logger)

	switch mode {
	case DeliveryLog, "":
		return logDelivery, nil
	case DeliveryHTTP:
		httpDelivery := webhooks.NewHTTPDelivery(timeout, logger)

		return &webhooks.RoutedDelivery{
			Routes: map[string]webhooks.Delivery{
				"webhook": httpDelivery,
				"slack":   httpDelivery,
				"discord": httpDelivery,
			},
			Default: logDelivery,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported delivery mode: %s", mode)
	}
}
