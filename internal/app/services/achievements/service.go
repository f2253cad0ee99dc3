// Package achievements maintains the append-only achievement ledger.
package achievements

import (
	"context"
	"fmt"
	"strings"

	"github.com/b8oost/boost-service/internal/app/domain"
	"github.com/b8oost/boost-service/internal/app/domain/achievement"
	"github.com/b8oost/boost-service/internal/app/domain/notification"
	"github.com/b8oost/boost-service/internal/app/metrics"
	"github.com/b8oost/boost-service/internal/app/storage"
	"github.com/b8oost/boost-service/pkg/logger"
)

// Service manages achievement awards.
type Service struct {
	users storage.UserStore
	store storage.AchievementStore
	log   *logger.Logger
}

// New constructs an achievement service.
func New(users storage.UserStore, store storage.AchievementStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("achievements")
	}
	return &Service{users: users, store: store, log: log}
}

// Award appends an achievement record and enqueues a notification in the
// same transaction. Repeat awards of the same name are permitted. The
// ledger write never waits on delivery.
func (s *Service) Award(ctx context.Context, userID, name string) (achievement.Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return achievement.Record{}, domain.Validationf("achievement name is required")
	}

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return achievement.Record{}, err
	}

	outbox := []notification.Message{{
		UserID: u.ID,
		ChatID: u.TelegramID,
		Text:   fmt.Sprintf("You earned a new achievement: %s", name),
	}}

	rec, err := s.store.AwardAchievement(ctx, achievement.Record{UserID: userID, Name: name}, outbox)
	if err != nil {
		return achievement.Record{}, err
	}

	metrics.RecordAchievement()
	s.log.WithField("user_id", userID).
		WithField("achievement", name).
		Info("achievement awarded")
	return rec, nil
}

// List returns a user's achievements in award order.
func (s *Service) List(ctx context.Context, userID string) ([]achievement.Record, error) {
	return s.store.ListAchievements(ctx, userID)
}
