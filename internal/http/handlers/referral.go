package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetReferralCode returns the caller's code (generates if needed)
func (h *Handler) GetReferralCode(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}

	code, err := h.Referrals.GenerateCode(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	status, err := h.Economy.Status(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":           code,
		"referral_count": status.ReferralCount,
	})
}

type ApplyReferralRequest struct {
	Code string `json:"code" binding:"required,max=32"`
}

// ApplyReferralCode links the caller to the owner of a code
func (h *Handler) ApplyReferralCode(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var req ApplyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	outcome, err := h.Referrals.ApplyCode(c.Request.Context(), accountID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	if !outcome.Applied {
		respondError(c, outcome.Err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applied":       true,
		"referrer_name": outcome.ReferrerName,
	})
}
