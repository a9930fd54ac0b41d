// Package schedule runs a job at the activation times of a cron expression.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/logger"
)

// ErrExhausted is returned when the expression has no future activation
var ErrExhausted = errors.New("schedule has no future activation")

// Schedule wraps a parsed cron expression
type Schedule struct {
	spec   string
	expr   *cronexpr.Expression
	logger *slog.Logger
}

// Parse accepts standard 5-field cron expressions, the 6 and 7 field
// variants with year and seconds, and macros such as @daily.
func Parse(spec string) (*Schedule, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing cron expression %q: %w", spec, err)
	}
	return &Schedule{
		spec:   spec,
		expr:   expr,
		logger: logger.WithComponent("schedule"),
	}, nil
}

// String returns the original expression
func (s *Schedule) String() string {
	return s.spec
}

// Next returns the first activation strictly after now, or the zero time
func (s *Schedule) Next(now time.Time) time.Time {
	return s.expr.Next(now)
}

// Run calls fn at every activation until ctx is done. A failing fn is logged
// and the schedule keeps going.
func (s *Schedule) Run(ctx context.Context, fn func(context.Context) error) error {
	for {
		next := s.Next(time.Now())
		if next.IsZero() {
			return ErrExhausted
		}
		s.logger.Info("next run scheduled", "at", next.Format(time.RFC3339), "cron", s.spec)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("scheduled run failed", "error", err)
		}
	}
}
