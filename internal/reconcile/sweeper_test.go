package reconcile

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/internal/audit"
	"rollbook/internal/provision/accounts"
	"rollbook/internal/provision/models"
	"rollbook/internal/provision/service"
	"rollbook/internal/provision/store"
	"rollbook/pkg/requestcontext"
)

func TestSweepOnce(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	accountSvc := accounts.NewMemory()
	stores := store.NewInMemoryStores()
	orch := service.New(accountSvc, stores, logger, service.WithAudit(audit.NewPublisher(audit.NewInMemoryStore())))

	ctx := requestcontext.WithOperator(context.Background(), "op-1", "inst-1")
	ctx = requestcontext.WithTime(ctx, time.Now())

	// One healthy identity.
	_, err := orch.Provision(ctx, models.RoleStudent, models.Attributes{
		FullName: "Ada", Grade: "Grade 7", Email: "a@b.com",
	})
	require.NoError(t, err)

	// One orphan: a credential with no profile, as a failed saga leaves it.
	orphan, err := accountSvc.CreateCredential(ctx, "orphan@students.test", "S3cret!pass")
	require.NoError(t, err)

	sweeper := NewSweeper(accountSvc, stores.Profiles, logger)
	removed, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, accountSvc.Has(orphan))

	// The healthy credential survives.
	ids, err := accountSvc.ListAuthSubjects(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	t.Run("second sweep finds nothing", func(t *testing.T) {
		removed, err := sweeper.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}
