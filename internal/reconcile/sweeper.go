// Package reconcile repairs the accepted residual-failure window of the
// provisioning saga: credentials that exist in the account service with no
// matching profile record. Blind compensation on an ambiguous timeout is
// risky, so orphans are cleaned up out of band instead.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rollbook/internal/provision/accounts"
	"rollbook/internal/provision/store"
)

// Sweeper periodically diffs the account service's credentials against the
// profile table and best-effort deletes the orphans.
type Sweeper struct {
	accounts accounts.Service
	profiles store.ProfileStore
	logger   *slog.Logger
}

func NewSweeper(accountSvc accounts.Service, profiles store.ProfileStore, logger *slog.Logger) *Sweeper {
	return &Sweeper{accounts: accountSvc, profiles: profiles, logger: logger}
}

// Run sweeps at the given interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "reconcile sweep failed", "error", err.Error())
			}
		}
	}
}

// SweepOnce performs one reconciliation pass and returns how many orphaned
// credentials were removed. Deletion failures are logged and skipped: the
// external privilege model may refuse, and the next sweep retries.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	subjects, err := s.accounts.ListAuthSubjects(ctx)
	if err != nil {
		return 0, err
	}
	profileIDs, err := s.profiles.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	known := make(map[uuid.UUID]struct{}, len(profileIDs))
	for _, id := range profileIDs {
		known[id] = struct{}{}
	}

	removed := 0
	for _, subject := range subjects {
		if _, ok := known[subject]; ok {
			continue
		}
		if err := s.accounts.DeleteCredential(ctx, subject); err != nil {
			s.logger.WarnContext(ctx, "orphaned credential could not be removed",
				"auth_subject_id", subject.String(),
				"error", err.Error(),
			)
			continue
		}
		s.logger.InfoContext(ctx, "removed orphaned credential",
			"auth_subject_id", subject.String(),
		)
		removed++
	}
	return removed, nil
}
