// Package app assembles the domain services over a shared persistence
// layer and manages their lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/b8oost/boost-service/internal/app/services/achievements"
	"github.com/b8oost/boost-service/internal/app/services/challenges"
	"github.com/b8oost/boost-service/internal/app/services/leaderboard"
	"github.com/b8oost/boost-service/internal/app/services/notifications"
	"github.com/b8oost/boost-service/internal/app/services/users"
	"github.com/b8oost/boost-service/internal/app/storage"
	"github.com/b8oost/boost-service/internal/app/storage/memory"
	"github.com/b8oost/boost-service/internal/app/system"
	"github.com/b8oost/boost-service/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users         storage.UserStore
	Challenges    storage.ChallengeStore
	Achievements  storage.AchievementStore
	Points        storage.PointStore
	Notifications storage.NotificationStore
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Users        *users.Service
	Challenges   *challenges.Service
	Achievements *achievements.Service
	Leaderboard  *leaderboard.Service
	Notifier     *notifications.Service
	Dispatcher   *notifications.Dispatcher
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Challenges == nil {
		stores.Challenges = mem
	}
	if stores.Achievements == nil {
		stores.Achievements = mem
	}
	if stores.Points == nil {
		stores.Points = mem
	}
	if stores.Notifications == nil {
		stores.Notifications = mem
	}

	manager := system.NewManager()

	userService := users.New(stores.Users, log)
	achievementService := achievements.New(stores.Users, stores.Achievements, log)
	challengeService := challenges.New(stores.Users, stores.Challenges, stores.Points, log)
	challengeService.AttachAwarder(achievementService)
	leaderboardService := leaderboard.New(stores.Points, log)
	notifier := notifications.NewService(stores.Users, stores.Notifications, log)
	dispatcher := notifications.NewDispatcher(stores.Notifications, log)

	for _, name := range []string{"users", "challenges", "achievements", "leaderboard"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}
	if err := manager.Register(dispatcher); err != nil {
		return nil, fmt.Errorf("register %s: %w", dispatcher.Name(), err)
	}

	return &Application{
		manager:      manager,
		log:          log,
		Users:        userService,
		Challenges:   challengeService,
		Achievements: achievementService,
		Leaderboard:  leaderboardService,
		Notifier:     notifier,
		Dispatcher:   dispatcher,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
