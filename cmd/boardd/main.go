package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"taskboard/internal/api"
	"taskboard/internal/blob"
	"taskboard/internal/config"
	"taskboard/internal/directory"
	"taskboard/internal/engine"
	"taskboard/internal/store/postgres"
)

func main() {
	// Load environment variables from .env file, if present
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	database, err := postgres.New(postgres.Config(cfg.Database))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close()

	blobs, err := blob.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize blob store")
	}

	tasks := database.Tasks()
	users := database.Users()
	eng := engine.New(tasks, users, blobs, log)
	dir := directory.New(users, tasks, eng, log)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewServer(eng, dir, log).Handler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		s := <-signals
		log.Info().Str("signal", s.String()).Msg("shutdown signal received")
		cancel()
	}()

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("taskboard listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}
