// cmd/historian/main.go drains the redis action log into the game_actions table.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/ageofchess/internal/cache"
	"github.com/jason-s-yu/ageofchess/internal/config"
	"github.com/jason-s-yu/ageofchess/internal/database"
	"github.com/jason-s-yu/ageofchess/internal/historian"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if !cfg.UsePostgres() || !cfg.UseRedis() {
		logger.Fatal("the historian needs both PG_HOST and REDIS_ADDR")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Connect(ctx, cfg.PostgresURL()); err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		logger.Fatalf("migrate: %v", err)
	}
	if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB); err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer cache.Rdb.Close()

	svc := historian.New(cache.Rdb, cfg.QueueName, cfg.HistorianBatchSize, cfg.HistorianFlush, database.InsertGameActions, logger)
	svc.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
