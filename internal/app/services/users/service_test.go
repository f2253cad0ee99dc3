package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b8oost/boost-service/internal/app/domain"
	"github.com/b8oost/boost-service/internal/app/domain/user"
	"github.com/b8oost/boost-service/internal/app/storage/memory"
)

func TestEnsureValidation(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), nil)

	_, err := svc.Ensure(ctx, 0, "alice")
	require.True(t, domain.IsValidation(err), "expected validation error, got %v", err)

	_, err = svc.Ensure(ctx, -5, "alice")
	require.True(t, domain.IsValidation(err), "expected validation error, got %v", err)

	_, err = svc.Ensure(ctx, 1, "   ")
	require.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
}

func TestEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), nil)

	first, err := svc.Ensure(ctx, 42, "alice")
	require.NoError(t, err)
	require.Equal(t, user.RoleEmployee, first.Role)
	require.False(t, first.CreatedAt.IsZero())

	second, err := svc.Ensure(ctx, 42, "alice-renamed")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "alice", second.Username)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSetRole(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), nil)

	u, err := svc.Ensure(ctx, 1, "boss")
	require.NoError(t, err)

	updated, err := svc.SetRole(ctx, u.ID, user.RoleManager)
	require.NoError(t, err)
	require.Equal(t, user.RoleManager, updated.Role)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, user.RoleManager, got.Role)

	_, err = svc.SetRole(ctx, u.ID, user.Role("intern"))
	require.True(t, domain.IsValidation(err), "expected validation error, got %v", err)

	_, err = svc.SetRole(ctx, "missing", user.RoleManager)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetMissing(t *testing.T) {
	svc := New(memory.New(), nil)
	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
