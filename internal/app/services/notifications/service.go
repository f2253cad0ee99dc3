// Package notifications delivers out-of-band messages to users' Telegram
// chats. Delivery is best-effort and fully decoupled from the transactional
// core: business writes enqueue outbox rows, the dispatcher drains them.
package notifications

import (
	"context"
	"strings"

	"github.com/b8oost/boost-service/internal/app/domain"
	"github.com/b8oost/boost-service/internal/app/domain/notification"
	"github.com/b8oost/boost-service/internal/app/storage"
	"github.com/b8oost/boost-service/pkg/logger"
)

// Service enqueues ad-hoc notifications outside the transactional paths.
type Service struct {
	users storage.UserStore
	store storage.NotificationStore
	log   *logger.Logger
}

// NewService constructs a notification service.
func NewService(users storage.UserStore, store storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{users: users, store: store, log: log}
}

// Notify enqueues a message for the user identified by their Telegram id.
// The returned error reflects the enqueue only; delivery happens later.
func (s *Service) Notify(ctx context.Context, userTelegramID int64, text string) (notification.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return notification.Message{}, domain.Validationf("notification text is required")
	}

	u, err := s.users.GetUserByTelegramID(ctx, userTelegramID)
	if err != nil {
		return notification.Message{}, err
	}
	return s.store.EnqueueNotification(ctx, notification.Message{
		UserID: u.ID,
		ChatID: u.TelegramID,
		Text:   text,
	})
}
