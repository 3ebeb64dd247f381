package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"usedcar-market/config"
	httpHandler "usedcar-market/internal/adapter/http/handler"
	memStorage "usedcar-market/internal/adapter/storage/memory"
	pgStorage "usedcar-market/internal/adapter/storage/postgres"
	redisStorage "usedcar-market/internal/adapter/storage/redis"
	"usedcar-market/internal/core/ports"
	"usedcar-market/internal/service"
	"usedcar-market/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Used Car Market")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(ctx, pool, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database schema")
		}
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	ledgerRepo := pgStorage.NewWalletTransactionRepo(pool)
	vehicleRepo := pgStorage.NewVehicleRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	reviewRepo := pgStorage.NewReviewRepo(pool)
	feedbackRepo := pgStorage.NewFeedbackRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	requestLock := redisStorage.NewRequestLock(rdb)
	credentialAttempts := redisStorage.NewCredentialAttempts(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	idemCfg := service.IdempotencyConfig{
		TTL:     cfg.Idempotency.TTL,
		LockTTL: cfg.Idempotency.LockTTL,
	}

	// Initialize business services
	ledger := service.NewWalletLedger(accountRepo, ledgerRepo, log)
	guard := service.NewPaymentPasswordGuard(
		accountRepo,
		hashSvc,
		credentialAttempts,
		transactor,
		service.GuardConfig{
			MaxAttempts:   cfg.PaymentPassword.MaxAttempts,
			LockoutWindow: cfg.PaymentPassword.LockoutWindow,
		},
		log,
	)
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc, log)
	walletSvc := service.NewWalletService(
		accountRepo,
		ledger,
		guard,
		idempotencyRepo,
		idempotencyCache,
		requestLock,
		transactor,
		idemCfg,
		cfg.Wallet.MaxRechargeAmount(),
		log,
	)
	orderSvc := service.NewOrderService(
		orderRepo,
		vehicleRepo,
		ledger,
		guard,
		idempotencyRepo,
		idempotencyCache,
		requestLock,
		transactor,
		idemCfg,
		cfg.Order.RefundOnSellerCancel,
		log,
	)
	listingSvc := service.NewListingService(accountRepo, vehicleRepo, reviewRepo, transactor, log)
	reviewSvc := service.NewReviewService(accountRepo, vehicleRepo, reviewRepo, encSvc, transactor, log)
	feedbackSvc := service.NewFeedbackService(orderRepo, feedbackRepo, log)
	reportingSvc := service.NewReportingService(orderRepo)
	auditSvc := service.NewAuditService(auditRepo, log)

	if cfg.Bootstrap.AdminUsername != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("Failed to bootstrap administrator account")
		}
	}

	// Initialize rate limit store
	var rateLimitStore ports.RateLimitStore
	switch {
	case !cfg.RateLimit.Enabled:
		log.Warn().Msg("Rate limiting disabled")
	case cfg.RateLimit.Backend == "memory":
		rateLimitStore = memStorage.NewRateLimitStore()
	default:
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		Guard:          guard,
		OrderSvc:       orderSvc,
		FeedbackSvc:    feedbackSvc,
		ListingSvc:     listingSvc,
		ReviewSvc:      reviewSvc,
		ReportingSvc:   reportingSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
