package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/holidarr/holidarr/internal/api"
	"github.com/holidarr/holidarr/internal/auth"
	"github.com/holidarr/holidarr/internal/config"
	"github.com/holidarr/holidarr/internal/logger"
	"github.com/holidarr/holidarr/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before the config")
	issueToken := flag.String("issue-token", "", "Print an API token for the given subject and exit")
	tokenTTL := flag.Duration("token-ttl", 0, "Lifetime of an issued token (0 means no expiry)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		token, err := auth.NewTokens(cfg.Auth.JWTSecret).GenerateToken(*issueToken, *tokenTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	log := logger.New(logger.Config{
		Level:           cfg.Logging.Level,
		Format:          cfg.Logging.Format,
		Path:            cfg.Logging.Path,
		MaxSizeMB:       cfg.Logging.MaxSizeMB,
		MaxBackups:      cfg.Logging.MaxBackups,
		MaxAgeDays:      cfg.Logging.MaxAgeDays,
		Compress:        cfg.Logging.Compress,
		EnableStreaming: true,
		BufferSize:      1000,
	})
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Str("database", cfg.Database.Driver).
		Msg("starting Holidarr")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(log.Logger)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()
	log.SetBroadcastHub(hub)

	app, err := wire(ctx, cfg, log, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer app.close()

	if !cfg.Auth.Enabled() {
		log.Warn().Msg("auth.jwt_secret is empty, the API is unauthenticated")
	}

	deps := api.Deps{
		Orchestrator:      app.orchestrator,
		Cache:             app.store,
		DB:                app.db,
		Scheduler:         app.scheduler,
		Activities:        app.progress,
		WebSocket:         hub.HandleWebSocket,
		Logs:              log,
		Tokens:            auth.NewTokens(cfg.Auth.JWTSecret),
		Version:           config.Version,
		ClassifyPerMinute: cfg.Server.ClassifyPerMinute,
	}
	if app.corpus != nil {
		deps.Corpus = app.corpus
	}
	if app.registry != nil {
		deps.Metrics = app.registry
	}
	server := api.NewServer(deps, log.Logger)

	app.scheduler.Start()

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	if err := app.scheduler.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown error")
	}
	<-hubDone

	log.Info().Msg("server stopped")
}
