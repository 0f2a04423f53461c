package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetRefreshStatus reports the countdown, last refresh and per-branch errors.
func (h *Handler) GetRefreshStatus(c *gin.Context) {
	if h.refresh == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, h.refresh.Status())
}
