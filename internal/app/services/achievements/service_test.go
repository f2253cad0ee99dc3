package achievements

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b8oost/boost-service/internal/app/domain"
	"github.com/b8oost/boost-service/internal/app/domain/notification"
	"github.com/b8oost/boost-service/internal/app/storage/memory"
)

func TestAwardValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, nil)

	u, err := store.EnsureUser(ctx, 1, "alice")
	require.NoError(t, err)

	_, err = svc.Award(ctx, u.ID, "  ")
	require.True(t, domain.IsValidation(err), "expected validation error, got %v", err)

	_, err = svc.Award(ctx, "missing", "Top Performer")
	require.ErrorIs(t, err, domain.ErrNotFound)

	recs, err := svc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestAwardAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, nil)

	u, err := store.EnsureUser(ctx, 1, "alice")
	require.NoError(t, err)

	names := []string{"Top Performer", "Team Player", "Top Performer"}
	for _, name := range names {
		rec, err := svc.Award(ctx, u.ID, name)
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID)
		require.False(t, rec.AwardedAt.IsZero())
	}

	recs, err := svc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, name := range names {
		require.Equal(t, name, recs[i].Name)
	}
}

func TestAwardEnqueuesNotification(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, nil)

	u, err := store.EnsureUser(ctx, 99, "alice")
	require.NoError(t, err)

	_, err = svc.Award(ctx, u.ID, "Top Performer")
	require.NoError(t, err)

	pending, err := store.ListPendingNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, int64(99), pending[0].ChatID)
	require.Contains(t, pending[0].Text, "Top Performer")
}

func TestLedgerSurvivesDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, store, nil)

	u, err := store.EnsureUser(ctx, 99, "alice")
	require.NoError(t, err)

	rec, err := svc.Award(ctx, u.ID, "Top Performer")
	require.NoError(t, err)

	pending, err := store.ListPendingNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Permanent delivery failure must leave the award untouched.
	failed, err := store.MarkNotificationFailed(ctx, pending[0].ID, "chat blocked the bot", true)
	require.NoError(t, err)
	require.Equal(t, notification.StatusFailed, failed.Status)

	recs, err := svc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, rec.ID, recs[0].ID)
}
