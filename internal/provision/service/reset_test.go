package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/internal/provision/accounts"
	"rollbook/internal/provision/models"
	"rollbook/internal/provision/store"
	dErrors "rollbook/pkg/domain-errors"
	"rollbook/pkg/requestcontext"
)

func newResetFixture(t *testing.T) (*Orchestrator, *accounts.Memory, store.Stores, context.Context) {
	t.Helper()
	accountSvc := accounts.NewMemory()
	stores := store.NewInMemoryStores()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	orch := New(accountSvc, stores, logger)

	ctx := requestcontext.WithOperator(context.Background(), "op-1", "inst-1")
	return orch, accountSvc, stores, requestcontext.WithTime(ctx, time.Now())
}

func TestReset(t *testing.T) {
	t.Run("reset twice returns fresh secrets and a stable enrollment id", func(t *testing.T) {
		orch, accountSvc, stores, ctx := newResetFixture(t)

		creds, err := orch.Provision(ctx, models.RoleStudent, models.Attributes{
			FullName: "Ada", Grade: "Grade 7", Email: "a@b.com",
		})
		require.NoError(t, err)

		profile := mustFindProfile(t, ctx, stores, creds.EnrollmentID)
		require.NotNil(t, profile.StudentID)

		first, err := orch.Reset(ctx, models.RoleStudent, *profile.StudentID)
		require.NoError(t, err)
		second, err := orch.Reset(ctx, models.RoleStudent, *profile.StudentID)
		require.NoError(t, err)

		assert.Equal(t, creds.EnrollmentID, first.EnrollmentID)
		assert.Equal(t, creds.EnrollmentID, second.EnrollmentID)
		assert.NotEqual(t, first.Secret, second.Secret)

		assert.False(t, accountSvc.VerifySecret(profile.ID, creds.Secret), "original secret replaced")
		assert.False(t, accountSvc.VerifySecret(profile.ID, first.Secret))
		assert.True(t, accountSvc.VerifySecret(profile.ID, second.Secret))
	})

	t.Run("reset looks the profile up by foreign key, not primary key", func(t *testing.T) {
		orch, _, stores, ctx := newResetFixture(t)

		creds, err := orch.Provision(ctx, models.RoleStudent, models.Attributes{
			FullName: "Ada", Grade: "Grade 7", Email: "a@b.com",
		})
		require.NoError(t, err)

		profile := mustFindProfile(t, ctx, stores, creds.EnrollmentID)

		// Passing the profile id where the domain record id belongs must
		// fail: this is the indirection bugs hide behind.
		_, err = orch.Reset(ctx, models.RoleStudent, profile.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotProvisioned))
	})

	t.Run("unprovisioned record yields NotProvisioned", func(t *testing.T) {
		orch, _, stores, ctx := newResetFixture(t)

		// A student row imported before provisioning existed: no profile.
		rec := &models.StudentRecord{ID: uuid.New(), EnrollmentID: "STULEGACY1", FullName: "Old Import", Grade: "9"}
		require.NoError(t, stores.Students.Create(ctx, rec))

		_, err := orch.Reset(ctx, models.RoleStudent, rec.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotProvisioned))
	})

	t.Run("librarian resets by profile id", func(t *testing.T) {
		orch, accountSvc, stores, ctx := newResetFixture(t)

		creds, err := orch.Provision(ctx, models.RoleLibrarian, models.Attributes{FullName: "Ms. Quill"})
		require.NoError(t, err)

		profile := mustFindProfile(t, ctx, stores, creds.EnrollmentID)
		fresh, err := orch.Reset(ctx, models.RoleLibrarian, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, creds.EnrollmentID, fresh.EnrollmentID)
		assert.True(t, accountSvc.VerifySecret(profile.ID, fresh.Secret))
	})
}

func mustFindProfile(t *testing.T, ctx context.Context, stores store.Stores, enrollmentID string) *models.Profile {
	t.Helper()
	ids, err := stores.Profiles.ListIDs(ctx)
	require.NoError(t, err)
	for _, id := range ids {
		p, err := stores.Profiles.FindByID(ctx, id)
		require.NoError(t, err)
		if p.EnrollmentID == enrollmentID {
			return p
		}
	}
	t.Fatalf("no profile for enrollment id %s", enrollmentID)
	return nil
}
