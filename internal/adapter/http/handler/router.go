package handler

import (
	"usedcar-market/internal/adapter/http/middleware"
	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	Guard          ports.PaymentPasswordGuard
	OrderSvc       ports.OrderService
	FeedbackSvc    ports.FeedbackService
	ListingSvc     ports.ListingService
	ReviewSvc      ports.ReviewService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			rule = rules["default"]
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	vehicleHandler := NewVehicleHandler(deps.ListingSvc)
	vehicles := v1.Group("/vehicles")
	{
		vehicles.GET("", rl("browse"), vehicleHandler.ListVehicles)
		vehicles.GET("/:id", rl("browse"), vehicleHandler.GetVehicle)
		vehicles.POST("", jwtAuth, middleware.RequireRole(domain.RoleSeller), rl("default"), vehicleHandler.CreateVehicle)
	}

	// --- JWT-authenticated routes ---
	accountHandler := NewAccountHandler(deps.AuthSvc, deps.ReviewSvc)
	accounts := v1.Group("/accounts/me", jwtAuth)
	{
		accounts.GET("", rl("default"), accountHandler.Profile)
		accounts.POST("/verification", rl("default"), accountHandler.SubmitVerification)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.Guard)
	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl("default"), walletHandler.GetWallet)
		wallet.POST("/recharge", rl("wallet_recharge"), walletHandler.Recharge)
		wallet.GET("/transactions", rl("default"), walletHandler.ListTransactions)
		wallet.POST("/payment-password", rl("payment_password"), walletHandler.SetPaymentPassword)
		wallet.PUT("/payment-password", rl("payment_password"), walletHandler.ChangePaymentPassword)
		wallet.POST("/payment-password/verify", rl("payment_password"), walletHandler.VerifyPaymentPassword)
	}

	orderHandler := NewOrderHandler(deps.OrderSvc, deps.FeedbackSvc, deps.ReportingSvc)
	orders := v1.Group("/orders", jwtAuth)
	{
		orders.POST("", rl("orders_create"), orderHandler.CreateOrder)
		orders.GET("", rl("orders"), orderHandler.ListOrders)
		orders.GET("/stats", middleware.RequireRole(domain.RoleSeller), rl("orders"), orderHandler.SellerStats)
		orders.GET("/:id", rl("orders"), orderHandler.GetOrder)
		for _, route := range orderActionRoutes {
			orders.POST("/:id"+route.Path, rl("orders"), orderHandler.Transition(route.Action))
		}
		orders.GET("/:id/messages", rl("orders"), orderHandler.ListMessages)
		orders.POST("/:id/messages", rl("orders"), orderHandler.PostMessage)
		orders.GET("/:id/reviews", rl("orders"), orderHandler.ListReviews)
		orders.POST("/:id/reviews", rl("orders"), orderHandler.PostReview)
	}

	adminHandler := NewAdminHandler(deps.ReviewSvc)
	admin := v1.Group("/admin", jwtAuth, middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/vehicle-reviews", rl("default"), adminHandler.ListVehicleReviews)
		admin.POST("/vehicle-reviews/:id/decision", rl("default"), adminHandler.DecideVehicleReview)
		admin.GET("/verification-reviews", rl("default"), adminHandler.ListVerificationReviews)
		admin.POST("/verification-reviews/:id/decision", rl("default"), adminHandler.DecideVerificationReview)
	}

	return r
}
