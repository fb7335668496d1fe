package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"group-trade-bot/internal/bot"
	"group-trade-bot/internal/config"
	"group-trade-bot/internal/database"
	"group-trade-bot/internal/ledger"
	"group-trade-bot/internal/logger"
	"group-trade-bot/internal/registry"
	"group-trade-bot/internal/telegram"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize Telegram client and verify the token
	api := telegram.NewClient(&cfg.Telegram, log)
	me, err := api.GetMe()
	if err != nil {
		log.Fatal("Failed to connect to Telegram Bot API", zap.Error(err))
	}
	log.Info("Successfully connected to Telegram Bot API.", zap.String("username", me.Username))

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	tradeLedger := ledger.NewLedger(db, log)
	adminRegistry := registry.NewRegistry(db, log)

	b := bot.NewBot(log, &cfg, api, tradeLedger, adminRegistry)
	b.Username = me.Username

	apiServer := bot.NewAPIServer(b, db, cfg.Server.Port, log)
	apiServer.Start()

	b.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
