package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"laundry-branch-monitor/internal/model"
	"laundry-branch-monitor/internal/store"
)

type subscriptionRequest struct {
	Endpoint           string  `json:"endpoint" binding:"required"`
	P256DH             string  `json:"p256dh" binding:"required"`
	Auth               string  `json:"auth" binding:"required"`
	SubscribedMachines []int64 `json:"subscribed_machines"`
}

type endpointRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// PutSubscription registers a browser for "machine available" pushes on the
// listed machines, replacing any earlier selection for the same endpoint.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := model.PushSubscription{Endpoint: req.Endpoint, P256DH: req.P256DH, Auth: req.Auth}
	err := h.store.SaveSubscription(c.Request.Context(), sub, req.SubscribedMachines)
	switch {
	case errors.Is(err, store.ErrUnknownMachine):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		log.Printf("Error saving subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
	default:
		c.Status(http.StatusCreated)
	}
}

// DeleteSubscription drops a subscription and everything it follows.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req endpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		log.Printf("Error deleting subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subscription"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSubscription lists the machines an endpoint follows. The endpoint is
// matched exactly as it appears in the query string, without unescaping.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	sub, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if err != nil {
		abortLookup(c, err, "subscription")
		return
	}

	ids := make([]int64, 0, len(sub.Machines))
	for _, m := range sub.Machines {
		ids = append(ids, m.ID)
	}
	c.JSON(http.StatusOK, gin.H{"subscribed_machines": ids})
}

// GetVAPIDPublicKey returns the key browsers need to create a subscription.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}

func rawQueryParam(rawQuery, key string) string {
	for _, kv := range strings.Split(rawQuery, "&") {
		if value, ok := strings.CutPrefix(kv, key+"="); ok {
			return value
		}
	}
	return ""
}
