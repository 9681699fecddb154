package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codebattle/internal/api"
	"codebattle/internal/app/cache"
	"codebattle/internal/app/service"
	"codebattle/internal/common/security"
	"codebattle/internal/domain/repository"
	"codebattle/internal/platform/config"
	"codebattle/internal/platform/database"
	"codebattle/internal/platform/events"
	"codebattle/internal/platform/kv"
	"codebattle/internal/platform/logger"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("loading configuration")
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)
	logger.Set(log)
	log.Info().Str("env", cfg.AppEnv).Msg("configuration loaded")

	ctx := context.Background()

	// 2. Initialize Database
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}
	defer database.Close(db)
	if err := database.CreateSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("creating schema")
	}

	// 3. Initialize Redis
	rdb, err := kv.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to redis")
	}
	defer kv.Close(rdb)

	// 4. Initialize event publisher
	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing domain events")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("closing event publisher")
		}
	}()

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(db)
	contestRepo := repository.NewPgContestRepository(db)
	participationRepo := repository.NewPgParticipationRepository(db)
	sessionRepo := repository.NewRedisSessionRepository(rdb)
	contestCache := cache.NewRedisContestCache(rdb, cfg.CacheTTL)

	// 6. Initialize Services
	tokens := security.NewTokenAuth(cfg.SessionSecret, cfg.SessionMaxAge)
	authService := service.NewAuthService(userRepo, service.NewSessionService(sessionRepo, tokens))
	services := api.Services{
		Auth:          authService,
		Contests:      service.NewContestService(contestRepo, contestCache, publisher),
		Registrations: service.NewRegistrationService(participationRepo, contestRepo, contestCache, publisher),
		Exports:       service.NewExportService(contestRepo, participationRepo),
		Users:         service.NewUserService(userRepo, participationRepo),
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("bootstrapping admin account")
		}
		log.Info().Str("email", cfg.AdminEmail).Msg("admin account ensured")
	}

	// 7. Initialize Router & HTTP Server
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      api.NewRouter(cfg, services),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("port", cfg.APIPort).Msg("could not listen")
		}
	}()

	<-stop // Wait for interrupt signal

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		return
	}
	log.Info().Msg("server stopped gracefully")
}
