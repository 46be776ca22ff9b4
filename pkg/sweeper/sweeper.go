// Package sweeper periodically drops workflow states that have been idle for too long.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Expirer removes states idle for longer than timeout and reports how many it removed.
type Expirer interface {
	ExpireIdle(ctx context.Context, timeout time.Duration) (int, error)
}

type Sweeper struct {
	expirer  Expirer
	timeout  time.Duration
	schedule string
	logger   *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Sweeper)

func WithSchedule(schedule string) Option {
	return func(s *Sweeper) { s.schedule = schedule }
}

// New validates the schedule up front so a bad expression fails at startup.
func New(logger *slog.Logger, expirer Expirer, timeout time.Duration, opts ...Option) (*Sweeper, error) {
	s := &Sweeper{
		expirer:  expirer,
		timeout:  timeout,
		schedule: DefaultSchedule,
		logger:   logger.With("module", "sweeper"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule '%s': %w", s.schedule, err)
	}

	return s, nil
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(s.ctx) }); err != nil {
		s.cancel()
		s.cron = nil

		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Sweeper started", "schedule", s.schedule, "timeout", s.timeout)

	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	s.cancel()

	select {
	case <-c.Stop().Done():
		s.logger.Info("Sweeper stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single sweep and returns how many states were removed.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	expired, err := s.expirer.ExpireIdle(ctx, s.timeout)
	if err != nil {
		s.logger.ErrorContext(ctx, "Sweep failed", "error", err)

		return 0
	}

	if expired > 0 {
		s.logger.InfoContext(ctx, "Expired idle workflows", "count", expired)
	}

	return expired
}
