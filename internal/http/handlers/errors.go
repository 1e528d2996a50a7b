package handlers

import (
	"errors"
	"net/http"

	"resume_rewards/internal/domain"
	"resume_rewards/internal/logger"

	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrAccountNotFound, http.StatusNotFound},
	{domain.ErrTemplateNotFound, http.StatusNotFound},
	{domain.ErrTransactionNotFound, http.StatusNotFound},

	{domain.ErrAlreadyClaimed, http.StatusConflict},
	{domain.ErrAlreadyUnlocked, http.StatusConflict},
	{domain.ErrAlreadyFree, http.StatusConflict},
	{domain.ErrAlreadyReferred, http.StatusConflict},
	{domain.ErrMutualReferral, http.StatusConflict},
	{domain.ErrAlreadyRefunded, http.StatusConflict},
	{domain.ErrReferralCodeTaken, http.StatusConflict},
	{domain.ErrConcurrentUpdate, http.StatusConflict},

	{domain.ErrTemplateLocked, http.StatusForbidden},
	{domain.ErrNotCreditable, http.StatusForbidden},
	{domain.ErrReferralClosed, http.StatusForbidden},

	{domain.ErrInvalidCode, http.StatusBadRequest},
	{domain.ErrSelfReferral, http.StatusBadRequest},
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrUnknownActivity, http.StatusBadRequest},
	{domain.ErrUnknownPlatform, http.StatusBadRequest},
	{domain.ErrUnknownPeriod, http.StatusBadRequest},
	{domain.ErrNotRefundable, http.StatusBadRequest},
}

// respondError maps a service error to its status. Insufficient points
// carries the numbers a "not enough points" screen shows.
func respondError(c *gin.Context, err error) {
	var insufficient *domain.InsufficientPointsError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":           domain.ErrInsufficientPoints.Error(),
			"current_balance": insufficient.Balance,
			"required":        insufficient.Required,
			"shortfall":       insufficient.Shortfall(),
		})
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": err.Error()})
			return
		}
	}

	logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
