// Package webhooks routes bus events to subscribed endpoints: it caches
// subscriptions, evaluates matchers, renders messages, delivers them and
// records the outcome. It also runs the scheduler and balance monitor that
// publish synthetic events.
package webhooks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
)

const (
	DefaultCacheTTL = 30 * time.Second

	refreshTimeout = 10 * time.Second
)

// SubscriptionCache holds the enabled subscriptions grouped by event type and
// reloads them from the repository once the TTL has passed.
type SubscriptionCache struct {
	repo   persistence.SubscriptionRepository
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	byType   map[string][]*models.Subscription
	loadedAt time.Time
}

func NewSubscriptionCache(repo persistence.SubscriptionRepository, ttl time.Duration, logger *slog.Logger) *SubscriptionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &SubscriptionCache{
		repo:   repo,
		ttl:    ttl,
		logger: logger.With("module", "subscription-cache"),
		now:    time.Now,
		byType: make(map[string][]*models.Subscription),
	}
}

// GetByType returns the cached subscriptions for eventType, refreshing first
// when the cache is stale. The returned slice must not be modified.
func (c *SubscriptionCache) GetByType(ctx context.Context, eventType string) []*models.Subscription {
	c.mu.RLock()
	if c.fresh() {
		subs := c.byType[eventType]
		c.mu.RUnlock()

		return subs
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// another goroutine may have refreshed while we waited for the write lock
	if !c.fresh() {
		c.refreshLocked(ctx)
	}

	return c.byType[eventType]
}

// Invalidate forces a reload on the next lookup.
func (c *SubscriptionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loadedAt = time.Time{}
}

func (c *SubscriptionCache) fresh() bool {
	return !c.loadedAt.IsZero() && c.now().Sub(c.loadedAt) < c.ttl
}

// refreshLocked reloads every enabled subscription. On failure the previous
// contents are kept until the next TTL window. Caller must hold c.mu.
func (c *SubscriptionCache) refreshLocked(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	defer cancel()

	c.loadedAt = c.now()

	subs, err := c.repo.ListEnabled(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to load subscriptions, keeping previous set", "error", err)

		return
	}

	byType := make(map[string][]*models.Subscription)
	for _, sub := range subs {
		byType[sub.EventType] = append(byType[sub.EventType], sub)
	}

	c.byType = byType

	c.logger.DebugContext(ctx, "Subscription cache refreshed", "subscriptions", len(subs), "event_types", len(byType))
}
