package request

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper auto-completes fulfilled requests the requester never confirmed.
// Its single guarded UPDATE is idempotent and safe to run alongside
// concurrent Confirm calls.
type Sweeper struct {
	repo          Repository
	interval      time.Duration
	completeAfter time.Duration
	logger        zerolog.Logger
}

func NewSweeper(repo Repository, interval, completeAfter time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		repo:          repo,
		interval:      interval,
		completeAfter: completeAfter,
		logger:        logger,
	}
}

// Start runs the sweep loop until the context is cancelled. It sweeps once
// immediately so a restart does not delay overdue completions by a full
// interval.
func (s *Sweeper) Start(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("request sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int64("completed", n).Msg("auto-completed fulfilled requests")
	}
}

// SweepOnce moves every fulfilled request older than the completion window
// to completed and returns how many rows moved.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	return s.repo.SweepFulfilled(ctx, now.Add(-s.completeAfter), now)
}
