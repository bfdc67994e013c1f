package syncjob

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"romvault/pkg/logging"
)

// Scheduler runs a Runner immediately and then once per Interval. A tick
// that arrives while a run is still going is dropped.
type Scheduler struct {
	Runner   *Runner
	Interval time.Duration
	Logger   zerolog.Logger
}

func NewScheduler(r *Runner, interval time.Duration) *Scheduler {
	return &Scheduler{Runner: r, Interval: interval, Logger: logging.Component("scheduler")}
}

// Start blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.Interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}
	s.Logger.Info().Dur("interval", s.Interval).Msg("scheduler started")

	s.tick(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.Runner.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress):
		s.Logger.Info().Msg("previous sync still running, skipping tick")
	default:
		// already logged and recorded by the runner; the next tick retries
		s.Logger.Debug().Err(err).Msg("scheduled sync failed")
	}
}
