package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roamly/roamly/internal/auth"
	"github.com/roamly/roamly/internal/config"
	"github.com/roamly/roamly/internal/handlers"
	middlewareCustom "github.com/roamly/roamly/internal/middleware"
	"github.com/roamly/roamly/internal/repositories"
	"github.com/roamly/roamly/internal/routes"
	"github.com/roamly/roamly/internal/services"
	"github.com/roamly/roamly/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Connect the record store
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := store.NewRedisClient(connectCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	connectCancel()
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	kv := store.NewRedisStore(redisClient)

	// Initialize repositories
	statusRepo := repositories.NewMFAStatusRepository(kv)
	secretRepo := repositories.NewTOTPSecretRepository(kv)
	challengeRepo := repositories.NewSMSChallengeRepository(kv)
	backupRepo := repositories.NewBackupCodeRepository(kv)
	counterRepo := repositories.NewAttemptCounterRepository(kv)

	// Token manager for the bearer middleware
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	// TOTP manager
	totpMgr := auth.NewTOTPManager(cfg.MFA.Issuer)

	// AWS SNS delivery channel
	smsSender, err := services.NewAWSSNSSender(cfg.SMS.Region, cfg.SMS.SenderID, logger)
	if err != nil {
		logger.Error("failed to initialize sms sender", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	limiter := services.NewAttemptLimiter(counterRepo, logger, services.LimitConfig{
		TOTPMaxAttempts:   cfg.MFA.TOTPMaxAttempts,
		SMSMaxAttempts:    cfg.MFA.SMSMaxAttempts,
		BackupMaxAttempts: cfg.MFA.BackupMaxAttempts,
		SMSDailyCap:       cfg.MFA.SMSDailyCap,
		DefaultDailyCap:   cfg.MFA.DefaultDailyCap,
		ShortWindow:       cfg.MFA.ShortWindow,
		DailyWindow:       cfg.MFA.DailyWindow,
	})
	totpService := services.NewTOTPService(secretRepo, statusRepo, totpMgr, logger)
	smsService := services.NewSMSService(challengeRepo, statusRepo, smsSender, logger, services.SMSConfig{
		CodeLength:    6,
		CodeTTL:       cfg.SMS.CodeTTL,
		MaxAttempts:   cfg.MFA.SMSMaxAttempts,
		ResendWindow:  cfg.SMS.ResendWindow,
		DailySendCap:  cfg.MFA.SMSDailyCap,
		DailySendSpan: cfg.MFA.DailyWindow,
	})
	backupService := services.NewBackupCodeService(backupRepo, statusRepo, logger, services.BackupCodeConfig{
		CodeCount:  cfg.MFA.BackupCodeCount,
		CodeLength: cfg.MFA.BackupCodeLength,
	})
	mfaService := services.NewMFAService(statusRepo, limiter, totpService, smsService, backupService, logger)

	// Initialize handlers
	mfaHandler := handlers.NewMFAHandler(mfaService, totpService, smsService, backupService, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, mfaHandler, tokenManager)

	// Health check with store ping
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","store":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","store":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
