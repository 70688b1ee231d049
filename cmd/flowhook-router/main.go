package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/flowhook/pkg/cmd"
	"github.com/dukex/flowhook/pkg/eventbus"
	"github.com/dukex/flowhook/pkg/log"
	"github.com/dukex/flowhook/pkg/otelhelper"
	"github.com/dukex/flowhook/pkg/webhooks"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "flowhook-router"

func main() {
	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Match chain events against deployed subscriptions and deliver notifications",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file://, postgres://, redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-source",
				Usage:   "Where chain events come from (kafka, gochannel, none)",
				Value:   cmd.EventSourceNone,
				Sources: cli.EnvVars("EVENT_SOURCE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "event-topic",
				Usage:   "Topic chain events are consumed from",
				Value:   eventbus.Topic,
				Sources: cli.EnvVars("EVENT_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "delivery",
				Usage:   "Delivery mode (log, http)",
				Value:   cmd.DeliveryLog,
				Sources: cli.EnvVars("DELIVERY"),
			},
			&cli.DurationFlag{
				Name:    "delivery-timeout",
				Usage:   "Timeout for outbound delivery requests",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("DELIVERY_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "cache-ttl",
				Usage:   "How long subscriptions are cached before reloading",
				Value:   webhooks.DefaultCacheTTL,
				Sources: cli.EnvVars("CACHE_TTL"),
			},
			&cli.DurationFlag{
				Name:    "schedule-resync",
				Usage:   "How often schedule subscriptions are resynced",
				Value:   webhooks.DefaultResyncInterval,
				Sources: cli.EnvVars("SCHEDULE_RESYNC"),
			},
			&cli.StringFlag{
				Name:    "balance-check-spec",
				Usage:   "Cron spec for balance checks",
				Value:   webhooks.DefaultBalanceCheckSpec,
				Sources: cli.EnvVars("BALANCE_CHECK_SPEC"),
			},
			&cli.StringFlag{
				Name:    "balance-api-url",
				Usage:   "Flow Access API base URL used for balance checks; empty disables the balance monitor",
				Sources: cli.EnvVars("BALANCE_API_URL"),
			},
			&cli.DurationFlag{
				Name:    "stats-interval",
				Usage:   "How often event bus counters are logged (0 disables)",
				Value:   time.Minute,
				Sources: cli.EnvVars("STATS_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		slog.Error("flowhook-router failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.Setup(command.String("log-level"), command.String("log-format"))

	logger.InfoContext(ctx, "Initializing Flowhook router")

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	tracer, shutdown, err := newTracer(ctx, command.Bool("otel"))
	if err != nil {
		return err
	}

	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down tracer", "error", err)
		}
	}()

	delivery, err := cmd.NewDelivery(command.String("delivery"), command.Duration("delivery-timeout"), logger)
	if err != nil {
		return err
	}

	publisher, subscriber, err := cmd.NewEventSource(command.String("event-source"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	if publisher != nil {
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("Failed to close event source", "error", err)
			}
		}()
	}

	var balanceSource webhooks.BalanceSource
	if url := command.String("balance-api-url"); url != "" {
		balanceSource = webhooks.NewAccessAPIBalanceSource(url, command.Duration("delivery-timeout"))
	}

	router, err := NewRouter(
		Config{
			CacheTTL:         command.Duration("cache-ttl"),
			ResyncInterval:   command.Duration("schedule-resync"),
			BalanceCheckSpec: command.String("balance-check-spec"),
			EventSourceTopic: command.String("event-topic"),
			StatsInterval:    command.Duration("stats-interval"),
		},
		persistence,
		delivery,
		balanceSource,
		subscriber,
		tracer,
		logger,
	)
	if err != nil {
		return err
	}

	return router.Run(ctx)
}

// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func newTracer(ctx context.Context, enabled bool) (trace.Tracer, otelhelper.Shutdown, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, serviceName)
}
