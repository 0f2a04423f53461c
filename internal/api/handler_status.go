package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"laundry-branch-monitor/internal/model"
	"laundry-branch-monitor/internal/sim"
)

// boardResponse is the simulated board of one branch.
type boardResponse struct {
	Branch       string              `json:"branch"`
	Now          time.Time           `json:"now"`
	Day          string              `json:"day"`
	Availability sim.Availability    `json:"availability"`
	Machines     []sim.MachineStatus `json:"machines"`
	Overflow     []sim.Task          `json:"overflow,omitempty"`
}

// GetMachineStatus handles GET /api/branches/:code/machines. With ?at=RFC3339
// it answers from the recorded occupancy history instead.
func (h *Handler) GetMachineStatus(c *gin.Context) {
	code := c.Param("code")
	if atParam := c.Query("at"); atParam != "" {
		h.getHistoricalStatus(c, code, atParam)
		return
	}

	branch, res, err := h.board.ComputeByCode(c.Request.Context(), code, h.now())
	if err != nil {
		abortLookup(c, err, "branch")
		return
	}
	c.JSON(http.StatusOK, boardResponse{
		Branch:       branch.Code,
		Now:          res.Now,
		Day:          res.Day,
		Availability: res.Availability,
		Machines:     res.Machines,
		Overflow:     res.Overflow,
	})
}

// GetSummary handles GET /api/branches/:code/summary.
func (h *Handler) GetSummary(c *gin.Context) {
	branch, res, err := h.board.ComputeByCode(c.Request.Context(), c.Param("code"), h.now())
	if err != nil {
		abortLookup(c, err, "branch")
		return
	}

	running := 0
	for _, p := range res.Transactions {
		if p.Running {
			running++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"branch":       branch.Code,
		"name":         branch.Name,
		"now":          res.Now,
		"availability": res.Availability,
		"running":      running,
		"overflow":     len(res.Overflow),
		"skipped":      len(res.Skipped),
	})
}

// historicalStatusResponse is one machine's recorded state at a past instant.
type historicalStatusResponse struct {
	ID       int64      `json:"id"`
	Type     string     `json:"type"`
	Number   int        `json:"number"`
	Name     string     `json:"name"`
	Status   string     `json:"status"`
	Message  string     `json:"message"`
	Since    *time.Time `json:"since,omitempty"`
	FinishAt *time.Time `json:"finish_at,omitempty"`
}

func (h *Handler) getHistoricalStatus(c *gin.Context, code, atParam string) {
	at, err := time.Parse(time.RFC3339, atParam)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'at' timestamp format. Use RFC3339."})
		return
	}

	ctx := c.Request.Context()
	branch, err := h.store.GetBranch(ctx, code)
	if err != nil {
		abortLookup(c, err, "branch")
		return
	}
	machines, err := h.store.ListMachines(ctx, branch.ID)
	if err != nil {
		abortLookup(c, err, "machines")
		return
	}

	db := h.store.DB().WithContext(ctx)
	response := make([]historicalStatusResponse, 0, len(machines))
	for _, machine := range machines {
		item := historicalStatusResponse{
			ID:      machine.ID,
			Type:    machine.Type,
			Number:  machine.Number,
			Name:    machine.DisplayName,
			Status:  string(sim.StatusAvailable),
			Message: sim.StatusAvailable.Label(),
		}

		// A closed period covering at wins; otherwise a still-open record
		// that started before at.
		var history model.OccupancyHistory
		err := db.Where("machine_id = ? AND period_start <= ? AND observed_at > ?", machine.ID, at, at).
			Order("period_start DESC").
			First(&history).Error
		switch {
		case err == nil:
			item.Status, item.Message = history.Status, history.Message
			item.Since = &history.PeriodStart
			if history.PeriodEnd.After(history.PeriodStart) {
				item.FinishAt = &history.PeriodEnd
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			var open model.OccupancyOpen
			err := db.Where("machine_id = ? AND observed_at <= ?", machine.ID, at).First(&open).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error during historical lookup"})
				return
			}
			if err == nil {
				item.Status, item.Message = open.Status, open.Message
				item.Since = &open.ObservedAt
				item.FinishAt = open.FinishAt
			}
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error during historical lookup"})
			return
		}

		response = append(response, item)
	}

	c.JSON(http.StatusOK, gin.H{"branch": branch.Code, "at": at, "machines": response})
}
