package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-branch-monitor/internal/model"
)

// BranchResponse represents the API response for a single branch.
type BranchResponse struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Washers  int64  `json:"washers"`
	Dryers   int64  `json:"dryers"`
}

// GetBranches handles the GET /api/branches request.
func (h *Handler) GetBranches(c *gin.Context) {
	ctx := c.Request.Context()
	branches, err := h.store.ListBranches(ctx)
	if err != nil {
		abortLookup(c, err, "branches")
		return
	}

	// One aggregate for every branch's inventory size.
	type aggRow struct {
		BranchID int64
		Type     string
		Total    int64
	}
	var aggs []aggRow
	if err := h.store.DB().WithContext(ctx).
		Model(&model.Machine{}).
		Select("branch_id, type, COUNT(*) AS total").
		Group("branch_id, type").
		Scan(&aggs).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate machines"})
		return
	}

	type counts struct{ washers, dryers int64 }
	aggMap := make(map[int64]counts, len(branches))
	for _, a := range aggs {
		cnt := aggMap[a.BranchID]
		switch a.Type {
		case "washer":
			cnt.washers = a.Total
		case "dryer":
			cnt.dryers = a.Total
		}
		aggMap[a.BranchID] = cnt
	}

	response := make([]BranchResponse, 0, len(branches))
	for _, b := range branches {
		cnt := aggMap[b.ID]
		response = append(response, BranchResponse{
			Code:     b.Code,
			Name:     b.Name,
			Timezone: b.Timezone,
			Washers:  cnt.washers,
			Dryers:   cnt.dryers,
		})
	}
	c.JSON(http.StatusOK, response)
}
