package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/draftarena/backend/config"
	"github.com/draftarena/backend/db"
	"github.com/draftarena/backend/handlers"
	"github.com/draftarena/backend/heroes"
	"github.com/draftarena/backend/middleware"
	"github.com/draftarena/backend/realtime"
	"github.com/draftarena/backend/repositories"
	"github.com/draftarena/backend/routes"
	"github.com/draftarena/backend/services"
	"github.com/draftarena/backend/storage"
)

const schedulerInterval = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, logo uploads disabled")
	}

	catalog := heroes.NewHTTPCatalog(cfg.HeroAPIURL)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		catalog = heroes.NewCachedCatalog(catalog, rdb, cfg.HeroCacheTTL, logger)
		logger.Info("hero catalog cache enabled", slog.Duration("ttl", cfg.HeroCacheTTL))
	} else {
		logger.Warn("REDIS_URL not set, hero catalog cache disabled")
	}

	wsHub := realtime.NewHub()
	go wsHub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	inviteRepo := repositories.NewPostgresInviteRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	draftRepo := repositories.NewPostgresDraftRepository(dbConn)
	logger.Info("repositories initialized")

	authService := services.NewAuthService(userRepo, []byte(cfg.JWTSecretKey))
	teamService := services.NewTeamService(teamRepo, userRepo, inviteRepo, uploader, logger)
	bracketService := services.NewBracketService(dbConn, registrationRepo, matchRepo, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, userRepo, bracketService, uploader, wsHub, logger)
	registrationService := services.NewRegistrationService(registrationRepo, tournamentRepo, teamRepo, userRepo, logger)
	matchService := services.NewMatchService(matchRepo, tournamentRepo, wsHub, logger)
	draftService := services.NewDraftService(draftRepo, registrationRepo, tournamentRepo, catalog, wsHub, logger)
	logger.Info("services initialized")

	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("tournament status scheduler started", slog.Duration("interval", schedulerInterval))

		runOnce := func() {
			updated, err := tournamentService.AutoUpdateStatuses(context.Background())
			if err != nil {
				logger.Error("scheduler run failed", slog.Any("error", err))
				return
			}
			if updated > 0 {
				logger.Info("scheduler updated tournament statuses", slog.Int("count", updated))
			}
		}

		runOnce()
		for range ticker.C {
			runOnce()
		}
	}()

	authenticator := middleware.NewAuthenticator([]byte(cfg.JWTSecretKey))

	router := routes.SetupRoutes(routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Team:         handlers.NewTeamHandler(teamService),
		Tournament:   handlers.NewTournamentHandler(tournamentService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Match:        handlers.NewMatchHandler(matchService),
		Draft:        handlers.NewDraftHandler(draftService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, draftService, authenticator, logger),
	}, authenticator)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
