package handlers

import (
	"net/http"

	"resume_rewards/internal/service"

	"github.com/gin-gonic/gin"
)

type OpenAccountRequest struct {
	Name         string `json:"name" binding:"required,max=100"`
	Email        string `json:"email" binding:"omitempty,email"`
	ReferralCode string `json:"referral_code" binding:"omitempty,max=32"`
}

// OpenAccount creates an account, credits the signup bonus and returns a
// bearer token for it.
func (h *Handler) OpenAccount(c *gin.Context) {
	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.Onboarding.OpenAccount(c.Request.Context(), req.Name, req.Email, req.ReferralCode)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := service.GenerateJWT(res.Account.ID, h.TokenTTL)
	if err != nil {
		respondError(c, err)
		return
	}

	status, err := h.Economy.Status(c.Request.Context(), res.Account.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":          token,
		"account":        status,
		"signup_bonus":   res.Signup,
		"signup_pending": res.SignupPending,
		"referral":       res.Referral,
	})
}
