// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/b8oost/boost-service/internal/app/domain"
	"github.com/b8oost/boost-service/internal/app/domain/achievement"
	"github.com/b8oost/boost-service/internal/app/domain/challenge"
	"github.com/b8oost/boost-service/internal/app/domain/notification"
	"github.com/b8oost/boost-service/internal/app/domain/points"
	"github.com/b8oost/boost-service/internal/app/domain/user"
	"github.com/b8oost/boost-service/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.ChallengeStore = (*Store)(nil)
var _ storage.AchievementStore = (*Store)(nil)
var _ storage.PointStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) EnsureUser(ctx context.Context, telegramID int64, username string) (user.User, error) {
	// The unique constraint on telegram_id plus DO NOTHING makes concurrent
	// first contact create at most one row; the loser of the race reads the
	// winner's row back.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, telegram_id, username, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (telegram_id) DO NOTHING
	`, uuid.NewString(), telegramID, username, user.RoleEmployee, time.Now().UTC())
	if err != nil {
		return user.User{}, err
	}
	return s.GetUserByTelegramID(ctx, telegramID)
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, telegram_id, username, role, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row, fmt.Sprintf("user %s", id))
}

func (s *Store) GetUserByTelegramID(ctx context.Context, telegramID int64) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, telegram_id, username, role, created_at
		FROM users
		WHERE telegram_id = $1
	`, telegramID)
	return scanUser(row, fmt.Sprintf("telegram id %d", telegramID))
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET role = $2 WHERE id = $1
	`, id, role)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, telegram_id, username, role, created_at
		FROM users
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Username, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func scanUser(row *sql.Row, ref string) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, fmt.Errorf("%s: %w", ref, domain.ErrNotFound)
		}
		return user.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// --- ChallengeStore ---------------------------------------------------------

const challengeColumns = `id, requester_id, title, category, description, reward_points, status, created_at, resolved_at, resolver_id`

func (s *Store) CreateRequest(ctx context.Context, req challenge.Request) (challenge.Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = challenge.StatusPending
	req.CreatedAt = time.Now().UTC()
	req.ResolvedAt = time.Time{}
	req.ResolverID = ""

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenge_requests (id, requester_id, title, category, description, reward_points, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.ID, req.RequesterID, req.Title, req.Category, req.Description, req.RewardPoints, req.Status, req.CreatedAt)
	if err != nil {
		return challenge.Request{}, err
	}
	return req, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (challenge.Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+challengeColumns+`
		FROM challenge_requests
		WHERE id = $1
	`, id)

	req, err := scanChallenge(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return challenge.Request{}, fmt.Errorf("challenge request %s: %w", id, domain.ErrNotFound)
		}
		return challenge.Request{}, err
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context) ([]challenge.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+challengeColumns+`
		FROM challenge_requests
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []challenge.Request
	for rows.Next() {
		req, err := scanChallenge(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (s *Store) ResolveRequest(ctx context.Context, requestID, resolverID string, decision challenge.Decision, outbox []notification.Message) (challenge.Request, error) {
	var status challenge.Status
	switch decision {
	case challenge.DecisionApproved:
		status = challenge.StatusApproved
	case challenge.DecisionRejected:
		status = challenge.StatusRejected
	default:
		return challenge.Request{}, fmt.Errorf("unknown decision %q", decision)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return challenge.Request{}, err
	}
	defer tx.Rollback()

	// Conditioning the update on status = pending makes concurrent
	// resolutions race safely: exactly one wins, the rest observe an
	// invalid transition.
	row := tx.QueryRowContext(ctx, `
		UPDATE challenge_requests
		SET status = $2, resolved_at = $3, resolver_id = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING `+challengeColumns+`
	`, requestID, status, time.Now().UTC(), resolverID)

	req, err := scanChallenge(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return challenge.Request{}, s.classifyResolveConflict(ctx, tx, requestID)
		}
		return challenge.Request{}, err
	}

	if req.Status == challenge.StatusApproved {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO point_events (id, user_id, points, request_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.NewString(), req.RequesterID, req.RewardPoints, req.ID, req.ResolvedAt)
		if err != nil {
			return challenge.Request{}, err
		}
	}

	if err := insertOutboxTx(ctx, tx, outbox); err != nil {
		return challenge.Request{}, err
	}

	if err := tx.Commit(); err != nil {
		return challenge.Request{}, err
	}
	return req, nil
}

func (s *Store) classifyResolveConflict(ctx context.Context, tx *sql.Tx, requestID string) error {
	var current challenge.Status
	err := tx.QueryRowContext(ctx, `
		SELECT status FROM challenge_requests WHERE id = $1
	`, requestID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("challenge request %s: %w", requestID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("challenge request %s is %s: %w", requestID, current, domain.ErrInvalidTransition)
}

type scanFunc func(dest ...any) error

func scanChallenge(scan scanFunc) (challenge.Request, error) {
	var (
		req        challenge.Request
		resolvedAt sql.NullTime
		resolverID sql.NullString
	)
	err := scan(&req.ID, &req.RequesterID, &req.Title, &req.Category, &req.Description,
		&req.RewardPoints, &req.Status, &req.CreatedAt, &resolvedAt, &resolverID)
	if err != nil {
		return challenge.Request{}, err
	}
	req.CreatedAt = req.CreatedAt.UTC()
	if resolvedAt.Valid {
		req.ResolvedAt = resolvedAt.Time.UTC()
	}
	if resolverID.Valid {
		req.ResolverID = resolverID.String
	}
	return req, nil
}

// --- AchievementStore -------------------------------------------------------

func (s *Store) AwardAchievement(ctx context.Context, rec achievement.Record, outbox []notification.Message) (achievement.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.AwardedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return achievement.Record{}, err
	}
	defer tx.Rollback()

	if err := userExistsTx(ctx, tx, rec.UserID); err != nil {
		return achievement.Record{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO achievements (id, user_id, name, awarded_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.UserID, rec.Name, rec.AwardedAt)
	if err != nil {
		return achievement.Record{}, err
	}

	if err := insertOutboxTx(ctx, tx, outbox); err != nil {
		return achievement.Record{}, err
	}

	if err := tx.Commit(); err != nil {
		return achievement.Record{}, err
	}
	return rec, nil
}

func (s *Store) ListAchievements(ctx context.Context, userID string) ([]achievement.Record, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, awarded_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY seq
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []achievement.Record
	for rows.Next() {
		var rec achievement.Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.AwardedAt); err != nil {
			return nil, err
		}
		rec.AwardedAt = rec.AwardedAt.UTC()
		result = append(result, rec)
	}
	return result, rows.Err()
}

func userExistsTx(ctx context.Context, tx *sql.Tx, userID string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

// --- PointStore -------------------------------------------------------------

func (s *Store) ListPointEvents(ctx context.Context, userID string) ([]points.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, points, request_id, created_at
		FROM point_events
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []points.Event
	for rows.Next() {
		var (
			ev        points.Event
			requestID sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Points, &requestID, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if requestID.Valid {
			ev.RequestID = requestID.String
		}
		ev.CreatedAt = ev.CreatedAt.UTC()
		result = append(result, ev)
	}
	return result, rows.Err()
}

func (s *Store) ComputeLeaderboard(ctx context.Context) ([]points.LeaderboardEntry, error) {
	// Pure aggregation over the event ledger. Ties resolve by user creation
	// order via the seq column.
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, COALESCE(SUM(p.points), 0) AS total_points
		FROM users u
		LEFT JOIN point_events p ON p.user_id = u.id
		GROUP BY u.id, u.username, u.seq
		ORDER BY total_points DESC, u.seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []points.LeaderboardEntry
	for rows.Next() {
		var entry points.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Username, &entry.TotalPoints); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// --- NotificationStore ------------------------------------------------------

func (s *Store) EnqueueNotification(ctx context.Context, msg notification.Message) (notification.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Status = notification.StatusPending
	msg.Attempts = 0
	msg.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_outbox (id, user_id, chat_id, body, status, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, msg.ID, msg.UserID, msg.ChatID, msg.Text, msg.Status, msg.Attempts, msg.LastError, msg.CreatedAt)
	if err != nil {
		return notification.Message{}, err
	}
	return msg, nil
}

func insertOutboxTx(ctx context.Context, tx *sql.Tx, msgs []notification.Message) error {
	now := time.Now().UTC()
	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notification_outbox (id, user_id, chat_id, body, status, attempts, last_error, created_at)
			VALUES ($1, $2, $3, $4, $5, 0, '', $6)
		`, msg.ID, msg.UserID, msg.ChatID, msg.Text, notification.StatusPending, now)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetNotification(ctx context.Context, id string) (notification.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, chat_id, body, status, attempts, last_error, created_at, sent_at
		FROM notification_outbox
		WHERE id = $1
	`, id)

	msg, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notification.Message{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
		}
		return notification.Message{}, err
	}
	return msg, nil
}

func (s *Store) ListPendingNotifications(ctx context.Context, limit int) ([]notification.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, chat_id, body, status, attempts, last_error, created_at, sent_at
		FROM notification_outbox
		WHERE status = 'pending'
		ORDER BY seq
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []notification.Message
	for rows.Next() {
		msg, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (s *Store) MarkNotificationSent(ctx context.Context, id string) (notification.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE notification_outbox
		SET status = $2, attempts = attempts + 1, last_error = '', sent_at = $3
		WHERE id = $1
		RETURNING id, user_id, chat_id, body, status, attempts, last_error, created_at, sent_at
	`, id, notification.StatusSent, time.Now().UTC())

	msg, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notification.Message{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
		}
		return notification.Message{}, err
	}
	return msg, nil
}

func (s *Store) MarkNotificationFailed(ctx context.Context, id string, deliveryErr string, permanent bool) (notification.Message, error) {
	status := notification.StatusPending
	if permanent {
		status = notification.StatusFailed
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE notification_outbox
		SET status = $2, attempts = attempts + 1, last_error = $3
		WHERE id = $1
		RETURNING id, user_id, chat_id, body, status, attempts, last_error, created_at, sent_at
	`, id, status, deliveryErr)

	msg, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notification.Message{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
		}
		return notification.Message{}, err
	}
	return msg, nil
}

func scanNotification(scan scanFunc) (notification.Message, error) {
	var (
		msg    notification.Message
		sentAt sql.NullTime
	)
	err := scan(&msg.ID, &msg.UserID, &msg.ChatID, &msg.Text, &msg.Status,
		&msg.Attempts, &msg.LastError, &msg.CreatedAt, &sentAt)
	if err != nil {
		return notification.Message{}, err
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	if sentAt.Valid {
		msg.SentAt = sentAt.Time.UTC()
	}
	return msg, nil
}
