// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jason-s-yu/ageofchess/internal/auth"
	"github.com/jason-s-yu/ageofchess/internal/cache"
	"github.com/jason-s-yu/ageofchess/internal/config"
	"github.com/jason-s-yu/ageofchess/internal/database"
	"github.com/jason-s-yu/ageofchess/internal/game"
	"github.com/jason-s-yu/ageofchess/internal/handlers"
	"github.com/jason-s-yu/ageofchess/internal/middleware"
	"github.com/jason-s-yu/ageofchess/internal/msgcat"
)

// store is what the server needs from persistence: game sessions plus accounts.
type store interface {
	game.Store
	handlers.UserStore
}

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if cfg.PrivateKeyPath != "" {
		err = auth.InitFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenTTL)
	} else {
		logger.Warn("no JWT key paths configured, using an ephemeral signing key")
		err = auth.Init(cfg.TokenTTL)
	}
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store = database.NewMemoryStore()
	if cfg.UsePostgres() {
		if err := database.Connect(ctx, cfg.PostgresURL()); err != nil {
			logger.Fatalf("postgres: %v", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
		st = database.PGStore{}
		logger.Info("using postgres store")
	} else {
		logger.Warn("PG_HOST not set, games and accounts are kept in memory only")
	}

	if cfg.UseRedis() {
		if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
			logger.Fatalf("redis: %v", err)
		}
		cache.QueueName = cfg.QueueName
		logger.WithField("queue", cfg.QueueName).Info("publishing game actions")
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatalf("messages: %v", err)
	}

	rt := game.NewRuntime(st, logger)
	rt.StalemateGoldFloor = cfg.StalemateGoldFloor

	srv := handlers.NewServer(rt, st, msgs, logger)
	srv.ActionRate = rate.Limit(cfg.WSActionRate)
	srv.ActionBurst = cfg.WSActionBurst
	srv.SandboxBulkToken = cfg.SandboxBulkToken
	srv.TokenTTL = cfg.TokenTTL

	if _, err := rt.ResumeSlowGames(ctx); err != nil {
		logger.WithError(err).Error("resuming slow games")
	}
	go rt.RunCleanup(ctx, cfg.CleanupInterval, game.DefaultCleanupPolicy)
	go srv.Queue.Run(ctx, cfg.MatchmakingTick)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.LogMiddleware(logger)(srv.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown")
		}
	}()

	logger.Infof("Running on %s", cfg.Addr())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}
