package handlers

import (
	"net/http"
	"strings"

	"resume_rewards/internal/domain"

	"github.com/gin-gonic/gin"
)

type pageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type CreditRequest struct {
	Activity string         `json:"activity" binding:"required,earn_kind"`
	Metadata map[string]any `json:"metadata"`
}

type DebitRequest struct {
	Activity string         `json:"activity" binding:"required,spend_kind"`
	Amount   *int64         `json:"amount" binding:"omitempty,gt=0"`
	Metadata map[string]any `json:"metadata"`
}

type SocialFollowRequest struct {
	Platform string `json:"platform" binding:"required,platform"`
}

// GetPoints returns balance, level, progress, badges and unlocks
func (h *Handler) GetPoints(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}

	status, err := h.Economy.Status(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetHistory returns the activity feed, newest first
func (h *Handler) GetHistory(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	page, err := h.Economy.History(c.Request.Context(), accountID, q.Page, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activities": page.Activities,
		"pagination": gin.H{
			"page":        page.Page,
			"limit":       page.Limit,
			"total":       page.Total,
			"total_pages": page.TotalPages,
		},
	})
}

// GetTransactions returns the journal, newest first
func (h *Handler) GetTransactions(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	txs, err := h.Economy.Transactions(c.Request.Context(), accountID, q.Page, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// Credit awards points for an activity the client may report itself.
// Signup, referral and level-up bonuses are issued by the server only.
func (h *Handler) Credit(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var req CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	kind := domain.EarnKind(req.Activity)
	if !kind.ClientCreditable() {
		respondError(c, domain.ErrNotCreditable)
		return
	}

	res, err := h.Economy.Credit(c.Request.Context(), accountID, kind, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Debit spends points. Without an amount the catalog price is used.
func (h *Handler) Debit(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var req DebitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	kind := domain.SpendKind(req.Activity)
	templateID, _ := req.Metadata["template_id"].(string)
	if kind.TemplateAction() && strings.TrimSpace(templateID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metadata.template_id is required"})
		return
	}

	amount := h.Economy.DefaultSpendAmount(kind, templateID)
	if req.Amount != nil {
		amount = *req.Amount
	}

	res, err := h.Economy.Debit(c.Request.Context(), accountID, kind, amount, req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) SocialFollow(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	var req SocialFollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.Economy.SocialFollow(c.Request.Context(), accountID, req.Platform)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DailyLogin(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}

	// a bonus left unpaid at sign-up is settled on the next login
	if _, err := h.Onboarding.CompleteSignup(c.Request.Context(), accountID); err != nil {
		respondError(c, err)
		return
	}

	res, err := h.Economy.DailyLogin(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
