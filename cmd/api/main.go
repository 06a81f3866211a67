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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"schoolgate/internal/auth"
	"schoolgate/internal/background"
	"schoolgate/internal/config"
	"schoolgate/internal/database"
	"schoolgate/internal/handlers"
	middlewareCustom "schoolgate/internal/middleware"
	"schoolgate/internal/models"
	"schoolgate/internal/repositories"
	"schoolgate/internal/routes"
	"schoolgate/internal/services"
	"schoolgate/internal/session"
	pkgauth "schoolgate/pkg/auth"
	pkghttp "schoolgate/pkg/http"
	pkglogger "schoolgate/pkg/logger"
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

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	contactRepo := repositories.NewContactMessageRepository(db)

	// Initialize cleanup manager for the attempt audit trail
	cleanupManager := background.NewCleanupManager(attemptRepo, logger, time.Hour)

	// Audit logging
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:    cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs:  cfg.Auth.TimingDelayRandomMs,
		DelayOnSuccess: true,
	})

	// Session store and cookie transport
	sessions := session.NewMemoryStore(cfg.Session.TTL)
	defer sessions.Close()

	cookies := session.NewCookieCodec(
		cfg.Session.HashKey,
		cfg.Session.BlockKey,
		cfg.Session.CookieName,
		cfg.Session.Secure,
		int(cfg.Session.TTL.Seconds()),
	)

	// Initialize services
	guardConfig := services.LoginGuardConfig{
		LockoutThreshold:   cfg.Auth.LockoutThreshold,
		LockoutWindow:      cfg.Auth.LockoutWindow,
		MinAttemptInterval: cfg.Auth.MinAttemptInterval,
		MinIdentifierLen:   3,
		MaxIdentifierLen:   50,
		AttemptRetention:   cfg.Auth.AttemptRetention,
	}
	loginGuard := services.NewLoginGuard(accountRepo, sessions, attemptRepo, timingDelay, guardConfig, logger, auditLogger)
	roleRouter := services.NewRoleRouter(logger)
	accountService := services.NewAccountService(accountRepo, logger, auditLogger)

	// AWS SES email delivery for contact messages, disabled in local setups
	var emailService services.EmailService
	if cfg.Email.Enabled {
		emailService, err = services.NewAWSSESEmailService(
			cfg.Email.AWSRegion,
			cfg.Email.FromAddress,
			cfg.Email.ContactRecipient,
			logger,
		)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
	}
	contactService := services.NewContactService(contactRepo, emailService, logger)

	// Initialize handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	authHandler := handlers.NewAuthHandler(loginGuard, roleRouter, sessions, cookies, ipConfig, logger)
	dashboardHandler := handlers.NewDashboardHandler(logger)
	accountHandler := handlers.NewAccountHandler(accountService, logger)
	contactHandler := handlers.NewContactHandler(contactService, logger)

	// Bootstrap first admin account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(ctx, accountRepo, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Session-backed pages. Grouped so the health endpoint stays outside
	// session handling and never mints cookies for probes.
	router.Group(func(r chi.Router) {
		r.Use(middlewareCustom.LoadSession(sessions, cookies, logger))
		routes.RegisterRoutes(r, authHandler, dashboardHandler, accountHandler, contactHandler, roleRouter, sessions, logger)
	})

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

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

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount creates the first admin account if ADMIN_USERNAME and ADMIN_PASSWORD are set
func ensureAdminAccount(ctx context.Context, accountRepo *repositories.AccountRepository, logger *slog.Logger) error {
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminPassword == "" {
		logger.Info("no ADMIN_USERNAME or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	// Check if the admin already exists
	_, err := accountRepo.GetByUsername(ctx, adminUsername)
	if err == nil {
		logger.Info("admin account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	admin := &models.Account{
		Username:          adminUsername,
		PasswordHash:      hashedPassword,
		DisplayName:       "Administrator",
		Role:              models.RoleAdmin,
		PasswordChangedAt: &now,
	}

	if _, err := accountRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}
