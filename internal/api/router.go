package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"laundry-branch-monitor/config"
	"laundry-branch-monitor/internal/cache"
	"laundry-branch-monitor/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg config.ServerConfig, responses cache.Store) *gin.Engine {
	r := gin.Default()
	r.Use(mw.RequestID())

	// Initialize middleware
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)
	caching := mw.Cache(responses, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/branches", caching, handler.GetBranches)
		api.GET("/branches/:code/machines", caching, handler.GetMachineStatus)
		api.GET("/branches/:code/transactions", caching, handler.GetTransactions)
		api.GET("/branches/:code/summary", caching, handler.GetSummary)
		api.GET("/refresh", handler.GetRefreshStatus)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
