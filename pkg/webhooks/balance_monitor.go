package webhooks

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/robfig/cron/v3"
)

const (
	DefaultBalanceCheckSpec = "@every 5m"

	// units per FLOW (UFix64)
	flowUnits   = 100_000_000.0
	balanceUnit = "FLOW"
)

// BalanceSource reads an account's raw FLOW balance from the chain.
type BalanceSource interface {
	Balance(ctx context.Context, address string) (uint64, error)
}

// BalanceMonitor periodically publishes a balance.check event for every
// address watched by a balance.check subscription.
type BalanceMonitor struct {
	cache     *SubscriptionCache
	source    BalanceSource
	publisher Publisher
	spec      string
	logger    *slog.Logger
	now       func() time.Time
}

func NewBalanceMonitor(cache *SubscriptionCache, source BalanceSource, publisher Publisher, spec string, logger *slog.Logger) *BalanceMonitor {
	if spec == "" {
		spec = DefaultBalanceCheckSpec
	}

	return &BalanceMonitor{
		cache:     cache,
		source:    source,
		publisher: publisher,
		spec:      spec,
		logger:    logger.With("module", "balance-monitor"),
		now:       time.Now,
	}
}

// Addresses returns the unique watched addresses, sorted.
func (m *BalanceMonitor) Addresses(ctx context.Context) []string {
	seen := make(map[string]struct{})

	for _, sub := range m.cache.GetByType(ctx, models.EventTypeBalanceCheck) {
		for _, addr := range matcher.BalanceAddresses(sub.Conditions) {
			seen[addr] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}

	slices.Sort(out)

	return out
}

// Check queries every watched address and returns how many events were published.
func (m *BalanceMonitor) Check(ctx context.Context) int {
	addresses := m.Addresses(ctx)
	if len(addresses) == 0 {
		return 0
	}

	now := m.now().UTC()
	published := 0

	for _, addr := range addresses {
		raw, err := m.source.Balance(ctx, addr)
		if err != nil {
			m.logger.WarnContext(ctx, "Failed to query balance", "address", addr, "error", err)

			continue
		}

		m.publisher.Publish(models.Event{
			Type:      models.EventTypeBalanceCheck,
			Timestamp: now,
			Data: models.ScalarPayload{
				"address":     addr,
				"balance":     fmt.Sprintf("%.8f", float64(raw)/flowUnits),
				"balance_raw": raw,
				"token":       balanceUnit,
			},
		})

		published++
	}

	if published > 0 {
		m.logger.InfoContext(ctx, "Published balance checks", "count", published)
	}

	return published
}

// Run checks once immediately and then on every tick of the cron spec until
// ctx is done.
func (m *BalanceMonitor) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := c.AddFunc(m.spec, func() { m.Check(ctx) }); err != nil {
		return fmt.Errorf("invalid balance check schedule %q: %w", m.spec, err)
	}

	m.logger.InfoContext(ctx, "Balance monitor started", "schedule", m.spec)
	m.Check(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	m.logger.InfoContext(ctx, "Balance monitor stopped")

	return nil
}
