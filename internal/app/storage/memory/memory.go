// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/b8oost/boost-service/internal/app/domain"
	"github.com/b8oost/boost-service/internal/app/domain/achievement"
	"github.com/b8oost/boost-service/internal/app/domain/challenge"
	"github.com/b8oost/boost-service/internal/app/domain/notification"
	"github.com/b8oost/boost-service/internal/app/domain/points"
	"github.com/b8oost/boost-service/internal/app/domain/user"
	"github.com/b8oost/boost-service/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	users         map[string]user.User
	usersByTG     map[int64]string
	userOrder     []string
	requests      map[string]challenge.Request
	requestOrder  []string
	achievements  map[string][]achievement.Record
	pointEvents   []points.Event
	notifications map[string]notification.Message
	notifOrder    []string
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.ChallengeStore = (*Store)(nil)
var _ storage.AchievementStore = (*Store)(nil)
var _ storage.PointStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		users:         make(map[string]user.User),
		usersByTG:     make(map[int64]string),
		requests:      make(map[string]challenge.Request),
		achievements:  make(map[string][]achievement.Record),
		notifications: make(map[string]notification.Message),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// UserStore implementation ---------------------------------------------------

func (s *Store) EnsureUser(_ context.Context, telegramID int64, username string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.usersByTG[telegramID]; ok {
		return s.users[id], nil
	}

	u := user.User{
		ID:         s.nextIDLocked(),
		TelegramID: telegramID,
		Username:   username,
		Role:       user.RoleEmployee,
		CreatedAt:  time.Now().UTC(),
	}
	s.users[u.ID] = u
	s.usersByTG[telegramID] = u.ID
	s.userOrder = append(s.userOrder, u.ID)
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByTelegramID(_ context.Context, telegramID int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByTG[telegramID]
	if !ok {
		return user.User{}, fmt.Errorf("telegram id %d: %w", telegramID, domain.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *Store) UpdateUserRole(_ context.Context, id string, role user.Role) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	u.Role = role
	s.users[id] = u
	return u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		result = append(result, s.users[id])
	}
	return result, nil
}

// ChallengeStore implementation ----------------------------------------------

func (s *Store) CreateRequest(_ context.Context, req challenge.Request) (challenge.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[req.RequesterID]; !ok {
		return challenge.Request{}, fmt.Errorf("user %s: %w", req.RequesterID, domain.ErrNotFound)
	}

	if req.ID == "" {
		req.ID = s.nextIDLocked()
	}
	req.Status = challenge.StatusPending
	req.CreatedAt = time.Now().UTC()
	req.ResolvedAt = time.Time{}
	req.ResolverID = ""

	s.requests[req.ID] = req
	s.requestOrder = append(s.requestOrder, req.ID)
	return req, nil
}

func (s *Store) GetRequest(_ context.Context, id string) (challenge.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return challenge.Request{}, fmt.Errorf("challenge request %s: %w", id, domain.ErrNotFound)
	}
	return req, nil
}

func (s *Store) ListRequests(_ context.Context) ([]challenge.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]challenge.Request, 0, len(s.requestOrder))
	for i := len(s.requestOrder) - 1; i >= 0; i-- {
		result = append(result, s.requests[s.requestOrder[i]])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) ResolveRequest(_ context.Context, requestID, resolverID string, decision challenge.Decision, outbox []notification.Message) (challenge.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return challenge.Request{}, fmt.Errorf("challenge request %s: %w", requestID, domain.ErrNotFound)
	}
	if req.Status != challenge.StatusPending {
		return challenge.Request{}, fmt.Errorf("challenge request %s is %s: %w", requestID, req.Status, domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	switch decision {
	case challenge.DecisionApproved:
		req.Status = challenge.StatusApproved
	case challenge.DecisionRejected:
		req.Status = challenge.StatusRejected
	default:
		return challenge.Request{}, fmt.Errorf("unknown decision %q", decision)
	}
	req.ResolvedAt = now
	req.ResolverID = resolverID
	s.requests[requestID] = req

	if req.Status == challenge.StatusApproved {
		s.pointEvents = append(s.pointEvents, points.Event{
			ID:        s.nextIDLocked(),
			UserID:    req.RequesterID,
			Points:    req.RewardPoints,
			RequestID: req.ID,
			CreatedAt: now,
		})
	}
	s.enqueueLocked(outbox)
	return req, nil
}

// AchievementStore implementation --------------------------------------------

func (s *Store) AwardAchievement(_ context.Context, rec achievement.Record, outbox []notification.Message) (achievement.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[rec.UserID]; !ok {
		return achievement.Record{}, fmt.Errorf("user %s: %w", rec.UserID, domain.ErrNotFound)
	}

	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}
	rec.AwardedAt = time.Now().UTC()
	s.achievements[rec.UserID] = append(s.achievements[rec.UserID], rec)
	s.enqueueLocked(outbox)
	return rec, nil
}

func (s *Store) ListAchievements(_ context.Context, userID string) ([]achievement.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	result := make([]achievement.Record, len(s.achievements[userID]))
	copy(result, s.achievements[userID])
	return result, nil
}

// PointStore implementation --------------------------------------------------

func (s *Store) ListPointEvents(_ context.Context, userID string) ([]points.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []points.Event
	for _, ev := range s.pointEvents {
		if ev.UserID == userID {
			result = append(result, ev)
		}
	}
	return result, nil
}

func (s *Store) ComputeLeaderboard(_ context.Context) ([]points.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int, len(s.users))
	for _, ev := range s.pointEvents {
		totals[ev.UserID] += ev.Points
	}

	result := make([]points.LeaderboardEntry, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		u := s.users[id]
		result = append(result, points.LeaderboardEntry{
			UserID:      u.ID,
			Username:    u.Username,
			TotalPoints: totals[u.ID],
		})
	}
	// Entries start in user creation order, so a stable sort keeps the
	// required tie-break.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TotalPoints > result[j].TotalPoints
	})
	return result, nil
}

// NotificationStore implementation -------------------------------------------

func (s *Store) EnqueueNotification(_ context.Context, msg notification.Message) (notification.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queued := s.enqueueLocked([]notification.Message{msg})
	return queued[0], nil
}

func (s *Store) enqueueLocked(msgs []notification.Message) []notification.Message {
	queued := make([]notification.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = s.nextIDLocked()
		}
		msg.Status = notification.StatusPending
		msg.Attempts = 0
		msg.CreatedAt = time.Now().UTC()
		s.notifications[msg.ID] = msg
		s.notifOrder = append(s.notifOrder, msg.ID)
		queued = append(queued, msg)
	}
	return queued
}

func (s *Store) GetNotification(_ context.Context, id string) (notification.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.notifications[id]
	if !ok {
		return notification.Message{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return msg, nil
}

func (s *Store) ListPendingNotifications(_ context.Context, limit int) ([]notification.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []notification.Message
	for _, id := range s.notifOrder {
		msg := s.notifications[id]
		if msg.Status != notification.StatusPending {
			continue
		}
		result = append(result, msg)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) MarkNotificationSent(_ context.Context, id string) (notification.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.notifications[id]
	if !ok {
		return notification.Message{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	msg.Status = notification.StatusSent
	msg.Attempts++
	msg.LastError = ""
	msg.SentAt = time.Now().UTC()
	s.notifications[id] = msg
	return msg, nil
}

func (s *Store) MarkNotificationFailed(_ context.Context, id string, deliveryErr string, permanent bool) (notification.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.notifications[id]
	if !ok {
		return notification.Message{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	msg.Attempts++
	msg.LastError = deliveryErr
	if permanent {
		msg.Status = notification.StatusFailed
	}
	s.notifications[id] = msg
	return msg, nil
}
