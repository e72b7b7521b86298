package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/photobattle/bot/internal/broker"
	"github.com/photobattle/bot/internal/config"
	"github.com/photobattle/bot/internal/db"
	"github.com/photobattle/bot/internal/service"
	"github.com/photobattle/bot/internal/store"
	"github.com/photobattle/bot/internal/voting"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	client, err := broker.Dial(ctx, cfg.AMQPURL, cfg.ConnectRetryDelay, logger)
	if err != nil {
		logger.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer client.Close()

	players := store.NewPlayerStore(database)
	games := store.NewGameStore(database, players)
	votes := voting.NewRegistry()
	messenger := service.NewMessenger(client, cfg.CallTimeout, logger)

	opts := service.Options{
		VotingWindow: cfg.VotingWindow,
		PaceDelay:    cfg.PaceDelay,
		BracketSize:  cfg.BracketSize,
	}
	rounds := service.NewRoundService(games, messenger, votes, opts, logger)
	svc := service.NewGameService(games, messenger, votes, rounds, logger)

	logger.Info("manager started, consuming updates")
	if err := client.Consume(ctx, svc.HandleUpdate); err != nil && ctx.Err() == nil {
		logger.Fatal("update consumer stopped", zap.Error(err))
	}
	logger.Info("shutting down")
}
