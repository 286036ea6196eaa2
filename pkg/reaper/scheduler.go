package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Retry tiers for a failed reap. The first retry comes quickly, later
// ones back off; the last tier repeats until the attempt limit.
var defaultRetryDelays = []time.Duration{
	60 * time.Second,
	120 * time.Second,
	300 * time.Second,
	600 * time.Second,
	900 * time.Second,
}

// DefaultMaxAttempts bounds how many times one scheduled run is retried
const DefaultMaxAttempts = 10

// Scheduler runs the reaper on a cron schedule with bounded retries
type Scheduler struct {
	service     *ReaperService
	cron        *cron.Cron
	retryDelays []time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*Scheduler)

// WithRetryDelays sets the backoff tiers between retries
func WithRetryDelays(delays []time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.retryDelays = delays
	}
}

// WithMaxAttempts sets the attempt limit per scheduled run
func WithMaxAttempts(max int) SchedulerOption {
	return func(s *Scheduler) {
		s.maxAttempts = max
	}
}

// WithSleepFunc replaces the backoff sleep, for tests
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) SchedulerOption {
	return func(s *Scheduler) {
		s.sleep = sleep
	}
}

// NewScheduler creates a scheduler that reaps on the given cron spec in
// the given timezone. Example spec: "0 4 * * *" (daily at 4 AM).
func NewScheduler(service *ReaperService, cronSpec string, loc *time.Location, opts ...SchedulerOption) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		service:     service,
		cron:        cron.New(cron.WithLocation(loc)),
		retryDelays: defaultRetryDelays,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.cron.AddFunc(cronSpec, func() {
		s.RunWithRetry(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}

	return s, nil
}

// Start begins the cron schedule in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Reaper scheduler started")
}

// Stop halts the schedule and waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Reaper scheduler stopped")
}

// RunWithRetry runs one reap, retrying on failure with the configured
// backoff tiers until the attempt limit. Returns the deleted count of
// the first successful attempt, or zero when every attempt failed.
func (s *Scheduler) RunWithRetry(ctx context.Context) int64 {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		deleted, err := s.service.Reap(ctx)
		if err == nil {
			return deleted
		}

		slog.Error("Reap attempt failed", "attempt", attempt, "max_attempts", s.maxAttempts, "err", err)
		if attempt == s.maxAttempts {
			break
		}

		delay := s.retryDelays[len(s.retryDelays)-1]
		if attempt-1 < len(s.retryDelays) {
			delay = s.retryDelays[attempt-1]
		}
		if err := s.sleep(ctx, delay); err != nil {
			slog.Warn("Reap retry cancelled", "err", err)
			return 0
		}
	}

	slog.Error("Reap abandoned after retry limit", "max_attempts", s.maxAttempts)
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
