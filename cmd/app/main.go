package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume_rewards/internal/cache"
	"resume_rewards/internal/catalog"
	"resume_rewards/internal/config"
	"resume_rewards/internal/db"
	httpServer "resume_rewards/internal/http"
	"resume_rewards/internal/http/handlers"
	"resume_rewards/internal/logger"
	"resume_rewards/internal/repository"
	"resume_rewards/internal/service"
	"resume_rewards/internal/ws"

	"github.com/gin-gonic/gin"
)

type ledger interface {
	repository.LedgerStore
	handlers.LedgerStatus
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		var err error
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			logger.Fatal("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		}
	}

	var (
		store      ledger
		wantSchema uint
	)
	switch cfg.LedgerBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory ledger, balances are lost on restart")
		store = repository.NewMemoryLedger()
	default:
		if cfg.AutoMigrate {
			if err := db.Migrate(cfg.DatabaseURL); err != nil {
				logger.Fatal("failed to migrate", "error", err)
			}
		}
		latest, err := db.LatestVersion()
		if err != nil {
			logger.Fatal("failed to read embedded migrations", "error", err)
		}
		wantSchema = latest

		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()
		store = repository.NewLedgerRepository(pool, cfg.LedgerMaxRetries)
	}
	deps := map[string]handlers.Pinger{}

	redisClient := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient != nil {
		defer redisClient.Close()
		deps["redis"] = cache.Pinger{Client: redisClient}
	}

	hub := ws.NewHub()
	economy := service.NewEconomyService(store, cat,
		service.WithNotifier(hub),
		service.WithAISuggestionCost(cfg.AISuggestionCost),
	)

	var rankingOpts []service.RankingOption
	if redisClient != nil {
		rankingOpts = append(rankingOpts, service.WithLeaderboardCache(cache.NewLeaderboardCache(redisClient, cfg.LeaderboardCacheTTL)))
	}
	ranking := service.NewRankingService(store, rankingOpts...)
	if redisClient != nil {
		sched, err := ranking.StartLeaderboardWarmer(cfg.LeaderboardRefresh)
		if err != nil {
			logger.Fatal("failed to start leaderboard warmer", "error", err)
		}
		defer func() { _ = sched.Shutdown() }()
	}

	referrals := service.NewReferralService(store, economy)
	onboarding := service.NewOnboardingService(store, economy, referrals)

	r := gin.New()
	r.Use(gin.Recovery())
	httpServer.RegisterRoutes(r, httpServer.Deps{
		Config:  cfg,
		Handler: handlers.NewHandler(economy, ranking, referrals, onboarding, cfg.JWTTTL),
		Health:  handlers.NewHealthHandler(cfg.AppVersion, store, wantSchema, deps),
		Hub:     hub,
		Redis:   redisClient,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "backend", cfg.LedgerBackend, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
