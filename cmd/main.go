package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vinhng/fingo/internal/ai"
	"github.com/vinhng/fingo/internal/config"
	"github.com/vinhng/fingo/internal/discord"
	"github.com/vinhng/fingo/internal/logger"
	"github.com/vinhng/fingo/internal/storage"
)

func main() {
	// .env is optional outside local runs; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Debug)

	db, err := storage.NewDatabase(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize the database")
	}

	debugDir := ""
	if cfg.Debug {
		debugDir = cfg.DebugDir
	}
	resolver, err := ai.NewResolver(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ResolveTimeout, debugDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize the resolver")
	}

	bot, err := discord.NewBot(cfg, db, resolver, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize the discord bot")
	}
	if err := bot.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start bot")
	}

	log.Info().Str("model", cfg.GeminiModel).Str("db", cfg.DBPath).Msg("bot is running")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()
	log.Info().Msg("bot stopped")
}
