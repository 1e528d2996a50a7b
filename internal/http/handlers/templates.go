package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListTemplates returns the tier catalog
func (h *Handler) ListTemplates(c *gin.Context) {
	cat := h.Economy.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"templates":             cat.Entries(),
		"default_download_cost": cat.FallbackDownloadCost(),
	})
}

// GetTemplateCost prices a download for the caller
func (h *Handler) GetTemplateCost(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}

	quote, err := h.Economy.DownloadCost(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) UnlockTemplate(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}

	res, err := h.Economy.UnlockTemplate(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
