package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/domain"
)

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context) (*domain.RunStats, error)
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start runs immediately, then on every tick until the context ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

// run applies the run-level deadline: when it expires, retrying batches are
// abandoned and whatever was delivered stays marked.
func (s *Scheduler) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if _, err := s.runner.Run(runCtx); err != nil {
		s.logger.Error("run failed", "error", err)
	}
}
