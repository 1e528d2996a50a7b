package handlers

import (
	"net/http"
	"time"

	"resume_rewards/internal/http/middleware"
	"resume_rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	Economy    *service.EconomyService
	Ranking    *service.RankingService
	Referrals  *service.ReferralService
	Onboarding *service.OnboardingService
	TokenTTL   time.Duration
}

func NewHandler(economy *service.EconomyService, ranking *service.RankingService, referrals *service.ReferralService, onboarding *service.OnboardingService, tokenTTL time.Duration) *Handler {
	return &Handler{
		Economy:    economy,
		Ranking:    ranking,
		Referrals:  referrals,
		Onboarding: onboarding,
		TokenTTL:   tokenTTL,
	}
}

// getAccountID извлекает account_id из контекста Gin
func getAccountID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}
