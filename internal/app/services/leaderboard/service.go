// Package leaderboard derives the ranked points view from the event ledger.
package leaderboard

import (
	"context"

	"github.com/b8oost/boost-service/internal/app/domain/points"
	"github.com/b8oost/boost-service/internal/app/storage"
	"github.com/b8oost/boost-service/pkg/logger"
)

// Service computes leaderboard views. Every call recomputes from the point
// event ledger; there is no cached counter to drift.
type Service struct {
	store storage.PointStore
	log   *logger.Logger
}

// New constructs a leaderboard service.
func New(store storage.PointStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("leaderboard")
	}
	return &Service{store: store, log: log}
}

// Compute returns entries ordered by total points descending, ties broken
// by user creation order.
func (s *Service) Compute(ctx context.Context) ([]points.LeaderboardEntry, error) {
	return s.store.ComputeLeaderboard(ctx)
}
