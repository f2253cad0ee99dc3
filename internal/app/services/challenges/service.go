// Package challenges implements the challenge request lifecycle: creation,
// review and resolution, including the point credit on approval.
package challenges

import (
	"context"
	"fmt"
	"strings"

	"github.com/b8oost/boost-service/internal/app/domain"
	"github.com/b8oost/boost-service/internal/app/domain/achievement"
	"github.com/b8oost/boost-service/internal/app/domain/challenge"
	"github.com/b8oost/boost-service/internal/app/domain/notification"
	"github.com/b8oost/boost-service/internal/app/metrics"
	"github.com/b8oost/boost-service/internal/app/storage"
	"github.com/b8oost/boost-service/pkg/logger"
)

// FirstApprovalAchievement is awarded when a user's first challenge request
// is approved.
const FirstApprovalAchievement = "First Challenge Approved"

// Awarder appends achievement records. Satisfied by the achievements
// service.
type Awarder interface {
	Award(ctx context.Context, userID, name string) (achievement.Record, error)
}

// Service governs the challenge request state machine.
type Service struct {
	users   storage.UserStore
	store   storage.ChallengeStore
	points  storage.PointStore
	awarder Awarder
	log     *logger.Logger
}

// New constructs a challenge service.
func New(users storage.UserStore, store storage.ChallengeStore, pts storage.PointStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("challenges")
	}
	return &Service{users: users, store: store, points: pts, log: log}
}

// AttachAwarder wires the achievement awarder used for approval milestones.
func (s *Service) AttachAwarder(awarder Awarder) {
	s.awarder = awarder
}

// Create validates and stores a new pending challenge request.
func (s *Service) Create(ctx context.Context, requesterID, title, category, description string, rewardPoints int) (challenge.Request, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	if title == "" {
		return challenge.Request{}, domain.Validationf("title is required")
	}
	if description == "" {
		return challenge.Request{}, domain.Validationf("description is required")
	}
	if rewardPoints < 0 {
		return challenge.Request{}, domain.Validationf("reward_points must not be negative")
	}
	cat, ok := challenge.ParseCategory(category)
	if !ok {
		return challenge.Request{}, domain.Validationf("unknown category %q", category)
	}

	if _, err := s.users.GetUser(ctx, requesterID); err != nil {
		return challenge.Request{}, fmt.Errorf("requester lookup: %w", err)
	}

	req, err := s.store.CreateRequest(ctx, challenge.Request{
		RequesterID:  requesterID,
		Title:        title,
		Category:     cat,
		Description:  description,
		RewardPoints: rewardPoints,
	})
	if err != nil {
		return challenge.Request{}, err
	}
	s.log.WithField("request_id", req.ID).
		WithField("requester_id", requesterID).
		WithField("reward_points", rewardPoints).
		Info("challenge request created")
	return req, nil
}

// Get fetches a request by id.
func (s *Service) Get(ctx context.Context, id string) (challenge.Request, error) {
	return s.store.GetRequest(ctx, id)
}

// List returns all requests, newest first.
func (s *Service) List(ctx context.Context) ([]challenge.Request, error) {
	return s.store.ListRequests(ctx)
}

// Resolve moves a pending request to approved or rejected. Approval credits
// the requester with the request's reward points and enqueues a
// notification; both commit with the transition. A request that is no
// longer pending fails with domain.ErrInvalidTransition, deliberately also
// for retries of the same decision.
func (s *Service) Resolve(ctx context.Context, requestID, resolverID string, decision challenge.Decision) (challenge.Request, error) {
	if !decision.Valid() {
		return challenge.Request{}, domain.Validationf("unknown decision %q", decision)
	}

	if _, err := s.users.GetUser(ctx, resolverID); err != nil {
		return challenge.Request{}, fmt.Errorf("resolver lookup: %w", err)
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return challenge.Request{}, err
	}
	requester, err := s.users.GetUser(ctx, req.RequesterID)
	if err != nil {
		return challenge.Request{}, fmt.Errorf("requester lookup: %w", err)
	}

	outbox := []notification.Message{{
		UserID: requester.ID,
		ChatID: requester.TelegramID,
		Text:   resolutionText(req, decision),
	}}

	resolved, err := s.store.ResolveRequest(ctx, requestID, resolverID, decision, outbox)
	if err != nil {
		return challenge.Request{}, err
	}

	metrics.RecordResolution(string(decision), resolved.RewardPoints)
	s.log.WithField("request_id", requestID).
		WithField("resolver_id", resolverID).
		WithField("decision", decision).
		Info("challenge request resolved")

	if resolved.Status == challenge.StatusApproved {
		s.maybeAwardFirstApproval(ctx, requester.ID)
	}
	return resolved, nil
}

// maybeAwardFirstApproval awards the first-approval milestone. The award is
// best-effort: a failure here never affects the committed resolution.
func (s *Service) maybeAwardFirstApproval(ctx context.Context, userID string) {
	if s.awarder == nil {
		return
	}
	events, err := s.points.ListPointEvents(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("milestone check failed")
		return
	}
	if len(events) != 1 {
		return
	}
	if _, err := s.awarder.Award(ctx, userID, FirstApprovalAchievement); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("milestone award failed")
	}
}

func resolutionText(req challenge.Request, decision challenge.Decision) string {
	if decision == challenge.DecisionApproved {
		return fmt.Sprintf("Your challenge %q was approved: +%d points", req.Title, req.RewardPoints)
	}
	return fmt.Sprintf("Your challenge %q was rejected", req.Title)
}
