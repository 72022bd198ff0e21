package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"craftlog/internal/auth"
	"craftlog/internal/catalog"
	"craftlog/internal/config"
	"craftlog/internal/email"
	"craftlog/internal/ledger"
	"craftlog/internal/payment"
	"craftlog/internal/subscription"
	"craftlog/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	email  *email.Service
}

func New(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, emailService *email.Service) *Server {
	router := gin.New()
	router.Use(RequestLoggingMiddleware(), gin.Recovery(), corsMiddleware(), MetricsMiddleware())

	gateway := buildGateway(cfg)

	ledgerRepo := ledger.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	projector := ledger.NewProjector(ledgerRepo, rdb)
	subsService := subscription.NewService(subscription.NewRepository(db), catalogRepo, ledgerRepo, projector)
	paymentService := payment.NewService(
		payment.NewRepository(db), ledgerRepo, projector, catalogRepo, subsService, gateway, strings.ToLower(cfg.Currency))

	walletHandler := wallet.NewHandler(db, rdb)
	subscriptionHandler := subscription.NewHandlerWithService(subsService, emailService)
	catalogHandler := catalog.NewHandler(db)
	paymentHandler := payment.NewHandlerWithService(paymentService, emailService)
	webhookHandler := payment.NewWebhookHandler(paymentService, cfg.StripeWebhookSecret)

	// Gateway notifications carry their own authenticity proof; no session
	// token, but a tighter rate limit than the authed surface.
	webhooks := router.Group("/webhooks")
	webhooks.Use(RateLimitMiddleware(10, 20))
	{
		webhooks.POST("/payment", webhookHandler.HandleGatewayNotification)
		webhooks.POST("/stripe", webhookHandler.HandleStripeWebhook)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	billing := router.Group("/billing")
	billing.Use(RateLimitMiddleware(50, 100), authMiddleware)
	{
		billing.GET("/wallet", walletHandler.GetWallet)
		billing.GET("/transactions", walletHandler.ListTransactions)
		billing.POST("/consume", walletHandler.Consume)

		billing.GET("/plans", catalogHandler.ListPlans)
		billing.GET("/products", catalogHandler.ListProducts)

		billing.GET("/subscription", subscriptionHandler.GetSubscription)
		billing.POST("/cancel-subscription", subscriptionHandler.CancelSubscription)

		billing.POST("/topup-checkout", paymentHandler.CreateTopUpCheckout)
		billing.POST("/subscription-checkout", paymentHandler.CreateSubscriptionCheckout)
		billing.POST("/verify-payment", paymentHandler.VerifyPayment)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.POST("/renewals/run", subscriptionHandler.RunRenewals)
		admin.POST("/refunds", paymentHandler.RefundPayment)
		admin.GET("/accounts/:userID/audit", walletHandler.AuditAccount)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		email:  emailService,
	}
}

func buildGateway(cfg *config.Config) payment.Gateway {
	if cfg.GatewayProvider == "stripe" {
		return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.AppURL)
	}
	return payment.NewHMACGateway(cfg.GatewayKeyID, cfg.GatewaySecret)
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
