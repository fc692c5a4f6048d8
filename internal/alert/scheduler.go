package alert

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	apperrors "stock-alerter/internal/errors"
)

// Scheduler invokes the alert service on a fixed cadence. It is fully
// decoupled from the run itself: the service stays callable and
// testable without any timer wiring.
type Scheduler struct {
	service  *Service
	interval time.Duration
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler driving the service at the given
// interval.
func NewScheduler(service *Service, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Run evaluates alerts immediately and then on every interval tick
// until the context is cancelled. A tick that fires while the previous
// run is still in flight is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Alert scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Alert scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.service.TryRunOnce(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, apperrors.ErrRunInProgress) {
		s.logger.Warn().Msg("Previous run still in progress, skipping tick")
		return
	}
	s.logger.Error().Err(err).Msg("Evaluation run failed")
}
