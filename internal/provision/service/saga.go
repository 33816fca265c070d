package service

import (
	"context"
	"log/slog"
)

// saga records the steps of one provisioning attempt as they succeed, each
// with its compensating action. Compensation is table-driven (undo recorded
// steps in reverse) rather than nested error handling, so adding a fourth
// provisioning step later does not touch the rollback logic.
//
// A step recorded with a nil compensation is explicitly uncompensatable: the
// external account service's privilege model does not let this system delete
// credentials reliably, so a credential left behind is a known residual
// failure surfaced as partial provisioning.
type saga struct {
	steps []sagaStep
}

type sagaStep struct {
	name       string
	compensate func(ctx context.Context) error
}

func (s *saga) record(name string, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, sagaStep{name: name, compensate: compensate})
}

// rollback undoes the recorded steps in reverse order. It returns the names
// of steps whose compensation failed (or that had none), which the caller
// logs for manual reconciliation. Compensation runs before any error is
// surfaced, so callers never observe a lingering domain record.
func (s *saga) rollback(ctx context.Context, logger *slog.Logger) []string {
	var uncompensated []string
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.compensate == nil {
			uncompensated = append(uncompensated, step.name)
			continue
		}
		if err := step.compensate(ctx); err != nil {
			logger.ErrorContext(ctx, "saga compensation failed",
				"step", step.name,
				"error", err.Error(),
			)
			uncompensated = append(uncompensated, step.name)
		}
	}
	return uncompensated
}
