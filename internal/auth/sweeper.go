// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/sport-tournaments/auth-service/pkg/errutil"
)

// DefaultSweepInterval is how often the sweeper purges expired session rows.
const DefaultSweepInterval = time.Hour

// Sweeper periodically deletes expired session rows. Purely advisory:
// expiry is enforced at read time, so correctness never depends on a sweep
// having run.
type Sweeper struct {
	sessions SessionRepository
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. A non-positive interval falls back to
// DefaultSweepInterval.
func NewSweeper(sessions SessionRepository, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{sessions: sessions, interval: interval, logger: logger}, nil
}

// Run sweeps until ctx is cancelled. One sweep happens immediately on
// start; a sweep failure is logged and the next tick proceeds.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// SweepOnce deletes expired sessions a single time and returns the count.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	deleted, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	SessionsSwept.Add(float64(deleted))
	return deleted, nil
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	deleted, err := s.SweepOnce(ctx)
	if err != nil {
		errutil.LogError(s.logger, "session sweep failed", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("swept expired sessions", "deleted", deleted)
	}
}
