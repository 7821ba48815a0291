// Package server exposes the HTTP and websocket surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/nextway/internal/audit/domain"
	"github.com/smallbiznis/nextway/internal/auditcontext"
	chatdomain "github.com/smallbiznis/nextway/internal/chat/domain"
	"github.com/smallbiznis/nextway/internal/config"
	"github.com/smallbiznis/nextway/internal/observability/logger"
	"github.com/smallbiznis/nextway/internal/observability/metrics"
	plandomain "github.com/smallbiznis/nextway/internal/plan/domain"
	"github.com/smallbiznis/nextway/internal/realtime/hub"
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	SubscriptionSvc subscriptiondomain.Service
	ChatSvc         chatdomain.Service
	PlanRepo        plandomain.Repository
	AuditSvc        auditdomain.Service `optional:"true"`
	WS              *hub.Handler
	Engine          *gin.Engine
}

type Server struct {
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	engine          *gin.Engine
	subscriptionSvc subscriptiondomain.Service
	chatSvc         chatdomain.Service
	planRepo        plandomain.Repository
	auditSvc        auditdomain.Service
	ws              *hub.Handler

	checkoutLimiter *rateLimiter
	webhookLimiter  *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:             p.Cfg,
		log:             p.Log.Named("server"),
		db:              p.DB,
		engine:          p.Engine,
		subscriptionSvc: p.SubscriptionSvc,
		chatSvc:         p.ChatSvc,
		planRepo:        p.PlanRepo,
		auditSvc:        p.AuditSvc,
		ws:              p.WS,
		checkoutLimiter: newRateLimiter(30, time.Minute),
		webhookLimiter:  newRateLimiter(300, time.Minute),
	}
}

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, log *zap.Logger, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(auditContextMiddleware())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(httpMetrics))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	return engine
}

// RegisterAPIRoutes mounts every endpoint on the engine.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/ws", s.ServeWS)

	api := s.engine.Group("/api")
	{
		// The webhook budget is generous; a 429 still gets retried by the
		// gateway, so bursts degrade to delay, not loss.
		api.POST("/webhooks/razorpay", s.rateLimit(s.webhookLimiter), s.HandleRazorpayWebhook)

		api.GET("/plans", s.ListPlans)

		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.POST("/orders", s.rateLimit(s.checkoutLimiter), s.InitializeOrder)
			subscriptions.POST("/verify", s.rateLimit(s.checkoutLimiter), s.VerifyCheckout)
			subscriptions.POST("/:id/cancel", s.CancelSubscription)
			subscriptions.GET("", s.ListSubscriptions)
			subscriptions.GET("/current", s.CurrentSubscription)
		}

		api.GET("/chats", s.ChatHistory)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// auditContextMiddleware stamps request metadata onto the context so
// audit records written further down carry it.
func auditContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := c.Request.Context()
		ctx = auditcontext.WithRequestID(ctx, requestID)
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// rateLimit rejects callers that exceed the per-IP budget on checkout
// endpoints.
func (s *Server) rateLimit(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": gin.H{
				"code":    "rate_limited",
				"message": "too many requests",
			}})
			return
		}
		c.Next()
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", s.cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
