package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/api/middleware"
	"github.com/ismoilovdevml/webhook-bridge/internal/config"
	"github.com/ismoilovdevml/webhook-bridge/internal/cryptoutils"
	"github.com/ismoilovdevml/webhook-bridge/internal/dispatch"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/delivery"
	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
	"github.com/ismoilovdevml/webhook-bridge/internal/parser"
	"github.com/ismoilovdevml/webhook-bridge/internal/provider"
	"github.com/ismoilovdevml/webhook-bridge/internal/signature"
)

type Router struct {
	engine       *gin.Engine
	server       *http.Server
	cfg          *config.Config
	dispatcher   *dispatch.Dispatcher
	parsers      []parser.Parser
	validator    *signature.Validator
	cipher       *cryptoutils.Cipher
	destinations destination.Repository
	outcomes     delivery.Repository
	providerDeps provider.Deps
	logger       *zap.Logger
}

func NewRouter(
	cfg *config.Config,
	dispatcher *dispatch.Dispatcher,
	parsers []parser.Parser,
	validator *signature.Validator,
	cipher *cryptoutils.Cipher,
	destinations destination.Repository,
	outcomes delivery.Repository,
	providerDeps provider.Deps,
	logger *zap.Logger,
) *Router {
	// Disable GIN default logger
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Add recovery middleware
	r.Use(gin.Recovery())

	// Add custom middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger))

	api := &Router{
		engine:       r,
		cfg:          cfg,
		dispatcher:   dispatcher,
		parsers:      parsers,
		validator:    validator,
		cipher:       cipher,
		destinations: destinations,
		outcomes:     outcomes,
		providerDeps: providerDeps,
		logger:       logger,
	}

	api.RegisterRoutes()
	return api
}

func (r *Router) RegisterRoutes() {
	// Simple health check
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics endpoint
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth Routes
	auth := r.engine.Group("/auth")
	{
		auth.POST("/login", r.Login)
	}

	// Webhook ingestion. Rate limited per client IP; delivery to chat
	// services happens asynchronously after the response.
	rl := middleware.NewRateLimiter(r.cfg.RateLimitPerMinute)
	webhook := r.engine.Group("/webhook")
	webhook.Use(rl.Middleware())
	{
		webhook.POST("/git", r.HandleWebhook)
		webhook.GET("/test", r.HandleWebhookTest)
	}

	// Management API (Protected)
	api := r.engine.Group("/api")
	api.Use(r.apiAuth())
	{
		api.POST("/destinations", r.CreateDestination)
		api.GET("/destinations", r.ListDestinations)
		api.GET("/destinations/:id", r.GetDestination)
		api.PUT("/destinations/:id", r.UpdateDestination)
		api.DELETE("/destinations/:id", r.DeleteDestination)
		api.POST("/destinations/:id/test", r.TestDestination)

		api.GET("/events", r.ListEvents)
		api.DELETE("/events", r.CleanupEvents)

		api.GET("/dashboard/stats", r.DashboardStats)
	}
}

func (r *Router) Run() error {
	r.server = &http.Server{
		Addr:         ":" + r.cfg.Port,
		Handler:      r.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return r.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (r *Router) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
