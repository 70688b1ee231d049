package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowhook/pkg/eventbus"
	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/dukex/flowhook/pkg/webhooks"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Config holds the router's runtime settings.
type Config struct {
	CacheTTL          time.Duration
	ResyncInterval    time.Duration
	BalanceCheckSpec  string
	EventSourceTopic  string
	StatsInterval     time.Duration
	DisableScheduler  bool
	DisableBalanceMon bool
}

// Router wires the event bus to the orchestrator and the synthetic event
// producers, and optionally relays chain events from a watermill topic.
type Router struct {
	config       Config
	bus          *eventbus.Bus
	orchestrator *webhooks.Orchestrator
	scheduler    *webhooks.Scheduler
	balance      *webhooks.BalanceMonitor
	subscriber   message.Subscriber
	logger       *slog.Logger
}

func NewRouter(
	config Config,
	p persistence.Persistence,
	delivery webhooks.Delivery,
	balanceSource webhooks.BalanceSource,
	subscriber message.Subscriber,
	tracer trace.Tracer,
	logger *slog.Logger,
) (*Router, error) {
	bus := eventbus.New(eventbus.WithLogger(logger))
	cache := webhooks.NewSubscriptionCache(p.Subscriptions(), config.CacheTTL, logger)

	orchestrator, err := webhooks.NewOrchestrator(bus, cache, matcher.NewDefaultRegistry(), p, delivery, tracer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	r := &Router{
		config:       config,
		bus:          bus,
		orchestrator: orchestrator,
		subscriber:   subscriber,
		logger:       logger.With("module", "router"),
	}

	if !config.DisableScheduler {
		r.scheduler = webhooks.NewScheduler(p.Subscriptions(), bus, logger)
	}

	if !config.DisableBalanceMon {
		if balanceSource == nil {
			r.logger.Warn("No balance source configured, balance monitor disabled")
		} else {
			r.balance = webhooks.NewBalanceMonitor(cache, balanceSource, bus, config.BalanceCheckSpec, logger)
		}
	}

	return r, nil
}

// Bus exposes the router's event bus so in-process producers can publish to it.
func (r *Router) Bus() *eventbus.Bus {
	return r.bus
}

// Run blocks until ctx is cancelled or one of the components fails.
func (r *Router) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Starting router",
		"scheduler", r.scheduler != nil,
		"balance_monitor", r.balance != nil,
		"event_source", r.subscriber != nil,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.orchestrator.Run(ctx)
	})

	if r.scheduler != nil {
		g.Go(func() error {
			return r.scheduler.Run(ctx, r.config.ResyncInterval)
		})
	}

	if r.balance != nil {
		g.Go(func() error {
			return r.balance.Run(ctx)
		})
	}

	if r.subscriber != nil {
		topic := r.config.EventSourceTopic
		if topic == "" {
			topic = eventbus.Topic
		}

		g.Go(func() error {
			return eventbus.NewRelay(r.bus, r.subscriber, topic, r.logger).Run(ctx)
		})
	}

	if r.config.StatsInterval > 0 {
		g.Go(func() error {
			r.reportStats(ctx)

			return nil
		})
	}

	err := g.Wait()

	if closeErr := r.bus.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}

	r.logger.Info("Router stopped")

	return err
}

func (r *Router) reportStats(ctx context.Context) {
	ticker := time.NewTicker(r.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := r.bus.Stats()
			r.logger.InfoContext(ctx, "Event bus stats",
				"published", stats.Published,
				"delivered", stats.Delivered,
				"dropped", stats.Dropped,
			)

			for eventType, n := range stats.DroppedByType {
				r.logger.WarnContext(ctx, "Events dropped", "event_type", eventType, "dropped", n)
			}
		}
	}
}
