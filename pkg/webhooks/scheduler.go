package webhooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/dukex/flowhook/pkg/workflow"
	"github.com/robfig/cron/v3"
)

// DefaultResyncInterval is how often the scheduler reloads schedule subscriptions.
const DefaultResyncInterval = time.Minute

// Publisher accepts synthetic events. *eventbus.Bus satisfies it.
type Publisher interface {
	Publish(evt models.Event)
}

type scheduleKey struct {
	spec     string
	timezone string
}

// Scheduler keeps one cron job per distinct (cron, timezone) pair declared by
// the enabled schedule subscriptions. Each firing publishes a schedule event.
type Scheduler struct {
	repo      persistence.SubscriptionRepository
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	cron *cron.Cron

	mu   sync.Mutex
	jobs map[scheduleKey]cron.EntryID
}

func NewScheduler(repo persistence.SubscriptionRepository, publisher Publisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With("module", "scheduler"),
		now:       time.Now,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		jobs: make(map[scheduleKey]cron.EntryID),
	}
}

// Sync adds jobs for newly declared schedules and removes the ones no
// subscription uses anymore.
func (s *Scheduler) Sync(ctx context.Context) error {
	subs, err := s.repo.ListByEventType(ctx, models.EventTypeSchedule)
	if err != nil {
		return fmt.Errorf("failed to list schedule subscriptions: %w", err)
	}

	wanted := make(map[scheduleKey]struct{})

	for _, sub := range subs {
		spec, tz, ok := matcher.ScheduleOf(sub.Conditions)
		if !ok {
			s.logger.WarnContext(ctx, "Schedule subscription without cron", "subscription_id", sub.ID)

			continue
		}

		wanted[scheduleKey{spec: spec, timezone: tz}] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, id := range s.jobs {
		if _, ok := wanted[key]; !ok {
			s.cron.Remove(id)
			delete(s.jobs, key)
			s.logger.InfoContext(ctx, "Removed schedule", "cron", key.spec, "timezone", key.timezone)
		}
	}

	for key := range wanted {
		if _, ok := s.jobs[key]; ok {
			continue
		}

		id, err := s.cron.AddFunc(workflow.CronSpec(key.spec, key.timezone), func() { s.Fire(key.spec, key.timezone) })
		if err != nil {
			s.logger.WarnContext(ctx, "Invalid schedule, skipping", "cron", key.spec, "timezone", key.timezone, "error", err)

			continue
		}

		s.jobs[key] = id
		s.logger.InfoContext(ctx, "Added schedule", "cron", key.spec, "timezone", key.timezone, "entry_id", id)
	}

	return nil
}

// Jobs returns the number of scheduled cron jobs.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.jobs)
}

// Fire publishes the schedule event for one (cron, timezone) pair.
func (s *Scheduler) Fire(spec, timezone string) {
	now := s.now().UTC()

	s.publisher.Publish(models.Event{
		Type:      models.EventTypeSchedule,
		Timestamp: now,
		Data: models.ScalarPayload{
			"cron":     spec,
			"timezone": timezone,
			"fired_at": now.Format(time.RFC3339),
		},
	})

	s.logger.Debug("Schedule fired", "cron", spec, "timezone", timezone)
}

// Run starts the cron runner and resyncs every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultResyncInterval
	}

	if err := s.Sync(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Initial schedule sync failed", "error", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "jobs", s.Jobs())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-s.cron.Stop().Done()
			s.logger.InfoContext(ctx, "Scheduler stopped")

			return nil
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Schedule sync failed", "error", err)
			}
		}
	}
}
