package handlers

import (
	"net/http"

	"resume_rewards/internal/domain"

	"github.com/gin-gonic/gin"
)

type leaderboardQuery struct {
	Period string `form:"period" binding:"omitempty,period"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// GetLeaderboard returns the top accounts of a period plus the caller's rank
func (h *Handler) GetLeaderboard(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var q leaderboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	lb, err := h.Ranking.Leaderboard(c.Request.Context(), domain.Period(q.Period), q.Limit, &accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lb)
}
