// Package redis provides Redis persistence. Records are JSON strings; sets
// index subscriptions by event type and records by workflow, and delivery
// logs are capped lists per subscription.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dukex/flowhook/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "flowhook"

	// MaxDeliveryLogs is how many logs are kept per subscription.
	MaxDeliveryLogs = 1000
)

type Persistence struct {
	client *goredis.Client
	keys   keyspace
	logger *slog.Logger

	workflowRepo     *WorkflowRepository
	subscriptionRepo *SubscriptionRepository
	endpointRepo     *EndpointRepository
	deliveryLogRepo  *DeliveryLogRepository
}

// NewPersistence connects to the redis:// or rediss:// URL and pings the server.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	p := newPersistence(client, defaultPrefix, logger)
	p.logger.InfoContext(ctx, "Connected to redis", "addr", opts.Addr, "db", opts.DB)

	return p, nil
}

func newPersistence(client *goredis.Client, prefix string, logger *slog.Logger) *Persistence {
	keys := keyspace{prefix: prefix}
	logger = logger.With("module", "redis-persistence")

	return &Persistence{
		client:           client,
		keys:             keys,
		logger:           logger,
		workflowRepo:     &WorkflowRepository{client: client, keys: keys},
		subscriptionRepo: &SubscriptionRepository{client: client, keys: keys},
		endpointRepo:     &EndpointRepository{client: client, keys: keys},
		deliveryLogRepo:  &DeliveryLogRepository{client: client, keys: keys},
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) Subscriptions() persistence.SubscriptionRepository {
	return p.subscriptionRepo
}

func (p *Persistence) Endpoints() persistence.EndpointRepository {
	return p.endpointRepo
}

func (p *Persistence) DeliveryLogs() persistence.DeliveryLogRepository {
	return p.deliveryLogRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

type keyspace struct {
	prefix string
}

func (k keyspace) key(parts ...string) string {
	return k.prefix + ":" + strings.Join(parts, ":")
}

func (k keyspace) workflow(id string) string {
	return k.key("workflow", id)
}

func (k keyspace) workflows() string {
	return k.key("workflows")
}

func (k keyspace) userWorkflows(userID string) string {
	return k.key("workflows", "user", userID)
}

func (k keyspace) subscription(id string) string {
	return k.key("subscription", id)
}

func (k keyspace) enabled() string {
	return k.key("subscriptions", "enabled")
}

func (k keyspace) eventType(eventType string) string {
	return k.key("subscriptions", "event", eventType)
}

func (k keyspace) workflowSubs(workflowID string) string {
	return k.key("subscriptions", "workflow", workflowID)
}

func (k keyspace) endpoint(id string) string {
	return k.key("endpoint", id)
}

func (k keyspace) workflowEndpoints(workflowID string) string {
	return k.key("endpoints", "workflow", workflowID)
}

func (k keyspace) deliveries(subscriptionID string) string {
	return k.key("deliveries", subscriptionID)
}

// getJSON decodes the value at key into out, reporting false for a missing key.
func getJSON(ctx context.Context, client *goredis.Client, key string, out any) (bool, error) {
	body, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return true, nil
}

// loadAll fetches the records named by the members of setKey. Members whose
// record vanished are skipped.
func loadAll[T any](ctx context.Context, client *goredis.Client, setKey string, recordKey func(string) string) ([]*T, error) {
	ids, err := client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var record T
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", keys[i], err)
		}

		out = append(out, &record)
	}

	return out, nil
}
