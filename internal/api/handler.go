package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"laundry-branch-monitor/internal/board"
	"laundry-branch-monitor/internal/refresh"
	"laundry-branch-monitor/internal/store"
)

// RefreshStatus is the view of the refresh driver the API exposes.
type RefreshStatus interface {
	Status() refresh.Status
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	board   *board.Board
	refresh RefreshStatus
	webpush *webpush.Options

	// now is the clock boards are computed at.
	now func() time.Time
}

// NewHandler creates a new API handler. r may be nil when the daemon runs
// without the refresh loop.
func NewHandler(s store.Store, b *board.Board, r RefreshStatus, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		board:   b,
		refresh: r,
		webpush: webpushOptions,
		now:     time.Now,
	}
}

// abortLookup maps store errors to a JSON error response.
func abortLookup(c *gin.Context, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	log.Printf("Error retrieving %s: %v", what, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve " + what})
}
