package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollbook/pkg/requestcontext"
	"rollbook/pkg/testutil"
)

func TestPublisherEmit(t *testing.T) {
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithOperator(context.Background(), "op-7", "inst-3")
	ctx = requestcontext.WithTime(ctx, now)

	store := NewInMemoryStore()
	pub := NewPublisher(store)

	testutil.When(t, "an event omits identity fields", func(t *testing.T) {
		err := pub.Emit(ctx, Event{
			Action:       ActionProvisioned,
			Role:         "student",
			EnrollmentID: "STU123ABCD",
		})
		require.NoError(t, err)

		testutil.Then(t, "they are stamped from context", func(t *testing.T) {
			events, err := pub.List(ctx, "STU123ABCD")
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, "op-7", events[0].OperatorID)
			assert.Equal(t, "inst-3", events[0].InstitutionID)
			assert.Equal(t, now, events[0].Timestamp)
		})
	})

	testutil.When(t, "an event carries its own identity", func(t *testing.T) {
		err := pub.Emit(ctx, Event{
			Action:       ActionReset,
			OperatorID:   "op-override",
			EnrollmentID: "STF456EFGH",
		})
		require.NoError(t, err)

		events, err := pub.List(ctx, "STF456EFGH")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "op-override", events[0].OperatorID)
	})
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var pub *Publisher
	assert.NoError(t, pub.Emit(context.Background(), Event{Action: ActionBatchRun}))
}
