// Command server runs the Boost engagement API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/b8oost/boost-service/internal/app"
	"github.com/b8oost/boost-service/internal/app/httpapi"
	"github.com/b8oost/boost-service/internal/app/metrics"
	"github.com/b8oost/boost-service/internal/app/services/notifications"
	"github.com/b8oost/boost-service/internal/app/storage/postgres"
	"github.com/b8oost/boost-service/internal/config"
	"github.com/b8oost/boost-service/internal/middleware"
	"github.com/b8oost/boost-service/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault("server").WithError(err).Error("load configuration")
		os.Exit(1)
	}

	log := logger.New("server", os.Stderr, cfg.LogLevel)

	stores := app.Stores{}
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.WithError(err).Error("open database")
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			log.WithError(err).Error("ping database")
			os.Exit(1)
		}
		if err := postgres.Migrate(db); err != nil {
			log.WithError(err).Error("apply migrations")
			os.Exit(1)
		}

		store := postgres.New(db)
		stores = app.Stores{
			Users:         store,
			Challenges:    store,
			Achievements:  store,
			Points:        store,
			Notifications: store,
		}
	} else {
		log.Warn("DATABASE_DSN not set; using in-memory store")
	}

	application, err := app.New(stores, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	if cfg.Telegram.Token != "" {
		sender, err := notifications.NewTelegramSender(cfg.Telegram.Token, log)
		if err != nil {
			log.WithError(err).Error("configure telegram sender")
			os.Exit(1)
		}
		application.Dispatcher.WithSender(sender)
	} else {
		log.Warn("TELEGRAM_TOKEN not set; notification delivery disabled")
	}
	if interval, err := cfg.DispatchInterval(); err == nil {
		application.Dispatcher.WithInterval(interval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	var handler http.Handler = httpapi.NewHandler(application, log)
	handler = metrics.InstrumentHandler(handler)
	if cfg.HTTP.RateLimitPerSecond > 0 {
		handler = middleware.NewRateLimiter(cfg.HTTP.RateLimitPerSecond, cfg.HTTP.RateLimitBurst, log).Handler(handler)
	}
	handler = middleware.NewCORS(cfg.HTTP.CORSAllowedOrigins).Handler(handler)
	handler = middleware.NewTracing(log).Handler(handler)

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application shutdown")
	}
}
