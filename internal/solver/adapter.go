package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrInfeasible    = errors.New("no meal satisfies the hard constraints")
	ErrSolverFailure = errors.New("solver failure")
)

// DefaultTimeout bounds a single solver attempt.
const DefaultTimeout = 3 * time.Second

// maxAttempts is one call plus one retry on StatusError.
const maxAttempts = 2

// Adapter runs a Solver with a per-attempt timeout and normalizes its
// status into values or errors.
type Adapter struct {
	solver  Solver
	timeout time.Duration
	logger  *slog.Logger
}

// NewAdapter creates an Adapter. A non-positive timeout selects DefaultTimeout.
func NewAdapter(s Solver, timeout time.Duration, logger *slog.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{solver: s, timeout: timeout, logger: logger}
}

// Solve returns the optimal assignment (or the best one found when the
// solver stops at its search budget), ErrInfeasible when the model has
// none, or ErrSolverFailure after the retry budget is spent. Cancellation
// of ctx is returned as is and never retried.
func (a *Adapter) Solve(ctx context.Context, m *Model) ([]float64, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		status, values, err := a.attempt(ctx, m)
		a.logger.Debug("solver attempt finished",
			"attempt", attempt,
			"status", string(status),
			"variables", len(m.Variables),
			"constraints", len(m.Constraints),
			"duration", time.Since(start),
		)

		switch status {
		case StatusOptimal, StatusFeasible:
			if len(values) != len(m.Variables) {
				return nil, fmt.Errorf("%w: solver returned %d values for %d variables", ErrSolverFailure, len(values), len(m.Variables))
			}
			if status == StatusFeasible {
				a.logger.Info("solver stopped at its search budget, using best assignment found", "attempt", attempt)
			}
			return values, nil
		case StatusInfeasible:
			return nil, ErrInfeasible
		case StatusUnbounded:
			return nil, fmt.Errorf("%w: model is unbounded", ErrSolverFailure)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err == nil {
			err = fmt.Errorf("solver reported status %q", status)
		}
		lastErr = err
		a.logger.Warn("solver attempt failed", "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrSolverFailure, maxAttempts, lastErr)
}

func (a *Adapter) attempt(ctx context.Context, m *Model) (Status, []float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	status, values, err := a.solver.Solve(ctx, m)
	if status == "" {
		status = StatusError
	}
	if (status == StatusOptimal || status == StatusFeasible) && err != nil {
		status = StatusError
	}
	return status, values, err
}
