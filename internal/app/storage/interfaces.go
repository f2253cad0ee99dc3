package storage

import (
	"context"

	"github.com/b8oost/boost-service/internal/app/domain/achievement"
	"github.com/b8oost/boost-service/internal/app/domain/challenge"
	"github.com/b8oost/boost-service/internal/app/domain/notification"
	"github.com/b8oost/boost-service/internal/app/domain/points"
	"github.com/b8oost/boost-service/internal/app/domain/user"
)

// UserStore persists user records. EnsureUser must create at most one row
// per Telegram id even under concurrent first contact.
type UserStore interface {
	EnsureUser(ctx context.Context, telegramID int64, username string) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (user.User, error)
	UpdateUserRole(ctx context.Context, id string, role user.Role) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// ChallengeStore persists challenge requests. ResolveRequest is the single
// atomic unit that flips the status, credits the reward on approval and
// enqueues the given outbox messages; it fails with
// domain.ErrInvalidTransition when the request is no longer pending.
type ChallengeStore interface {
	CreateRequest(ctx context.Context, req challenge.Request) (challenge.Request, error)
	GetRequest(ctx context.Context, id string) (challenge.Request, error)
	ListRequests(ctx context.Context) ([]challenge.Request, error)
	ResolveRequest(ctx context.Context, requestID, resolverID string, decision challenge.Decision, outbox []notification.Message) (challenge.Request, error)
}

// AchievementStore persists the append-only achievement ledger. The append
// and the outbox enqueue commit together.
type AchievementStore interface {
	AwardAchievement(ctx context.Context, rec achievement.Record, outbox []notification.Message) (achievement.Record, error)
	ListAchievements(ctx context.Context, userID string) ([]achievement.Record, error)
}

// PointStore exposes the point event ledger and its aggregation. The
// leaderboard is always recomputed from the events, never cached.
type PointStore interface {
	ListPointEvents(ctx context.Context, userID string) ([]points.Event, error)
	ComputeLeaderboard(ctx context.Context) ([]points.LeaderboardEntry, error)
}

// NotificationStore persists the delivery outbox.
type NotificationStore interface {
	EnqueueNotification(ctx context.Context, msg notification.Message) (notification.Message, error)
	GetNotification(ctx context.Context, id string) (notification.Message, error)
	ListPendingNotifications(ctx context.Context, limit int) ([]notification.Message, error)
	MarkNotificationSent(ctx context.Context, id string) (notification.Message, error)
	MarkNotificationFailed(ctx context.Context, id string, deliveryErr string, permanent bool) (notification.Message, error)
}
