// Package users maps external Telegram identities to internal user records.
package users

import (
	"context"
	"strings"

	"github.com/b8oost/boost-service/internal/app/domain"
	"github.com/b8oost/boost-service/internal/app/domain/user"
	"github.com/b8oost/boost-service/internal/app/storage"
	"github.com/b8oost/boost-service/pkg/logger"
)

// Service manages the user directory.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

// New constructs a user service.
func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// Ensure registers a user on first contact and returns the existing record
// unchanged on every later call. The stored username is never overwritten.
func (s *Service) Ensure(ctx context.Context, telegramID int64, username string) (user.User, error) {
	username = strings.TrimSpace(username)
	if telegramID <= 0 {
		return user.User{}, domain.Validationf("telegram_id must be positive")
	}
	if username == "" {
		return user.User{}, domain.Validationf("username is required")
	}

	u, err := s.store.EnsureUser(ctx, telegramID, username)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", u.ID).
		WithField("telegram_id", telegramID).
		Debug("user ensured")
	return u, nil
}

// Get fetches a user by internal id.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// List returns all users in creation order.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// SetRole changes a user's role. This is an administrative action; first
// contact always creates employees.
func (s *Service) SetRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	if !role.Valid() {
		return user.User{}, domain.Validationf("unknown role %q", role)
	}
	u, err := s.store.UpdateUserRole(ctx, id, role)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", id).
		WithField("role", role).
		Info("user role changed")
	return u, nil
}
