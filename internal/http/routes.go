package http

import (
	"time"

	"resume_rewards/internal/config"
	"resume_rewards/internal/http/handlers"
	"resume_rewards/internal/http/middleware"
	"resume_rewards/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

type Deps struct {
	Config  *config.Config
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Hub     *ws.Hub
	// Redis is optional; limiters fall back to process memory without it.
	Redis *redis.Client
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	cfg := d.Config
	h := d.Handler

	handlers.SetupValidator()

	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiLimiter := middleware.NewLimiter(d.Redis, "rl:api", cfg.APIRateLimit, cfg.APIRateWindow)

	// Spend limiting per account; Redis fixed window when available
	spendRL := middleware.RateLimit(
		middleware.NewLimiter(nil, "rl:spend", cfg.SpendRateLimit, cfg.SpendRateWindow),
		middleware.ByAccount,
	)
	if d.Redis != nil {
		spendRL = middleware.SpendRateLimit(d.Redis, cfg.SpendRateLimit, cfg.SpendRateWindow)
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(apiLimiter, middleware.ByIP))

	v1.POST("/accounts", h.OpenAccount)
	v1.GET("/templates", h.ListTemplates)

	auth := v1.Group("")
	auth.Use(middleware.JWT())
	{
		auth.GET("/points", h.GetPoints)
		auth.GET("/points/history", h.GetHistory)
		auth.GET("/points/transactions", h.GetTransactions)
		auth.POST("/points/credit", h.Credit)
		auth.POST("/points/debit", spendRL, h.Debit)
		auth.POST("/points/social-follow", h.SocialFollow)
		auth.POST("/points/daily-login", h.DailyLogin)

		auth.GET("/templates/:id/cost", h.GetTemplateCost)
		auth.POST("/templates/:id/unlock", spendRL, h.UnlockTemplate)

		auth.GET("/leaderboard", h.GetLeaderboard)

		auth.GET("/referral/code", h.GetReferralCode)
		auth.POST("/referral/apply", h.ApplyReferralCode)
	}

	// Live balance/level/badge feed
	r.GET("/ws", ws.HandleWS(d.Hub, cfg.AllowedOrigins))
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}
