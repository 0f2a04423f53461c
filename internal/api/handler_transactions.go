package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"laundry-branch-monitor/internal/sim"
)

// transactionResponse is a transaction's progress plus where its units ran.
type transactionResponse struct {
	sim.TransactionProgress
	ServicesText string           `json:"services_text"`
	Machines     []machinePlacing `json:"machines"`
}

type machinePlacing struct {
	Service sim.ServiceName `json:"service"`
	Unit    int             `json:"unit"`
	Machine string          `json:"machine"`
}

// GetTransactions handles GET /api/branches/:code/transactions. ?own=true
// keeps only the requesting customer's transactions.
func (h *Handler) GetTransactions(c *gin.Context) {
	ownOnly := false
	if raw := c.Query("own"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'own' flag"})
			return
		}
		ownOnly = v
	}

	branch, res, err := h.board.ComputeByCode(c.Request.Context(), c.Param("code"), h.now())
	if err != nil {
		abortLookup(c, err, "branch")
		return
	}

	names := machineNames(res)
	response := make([]transactionResponse, 0, len(res.Transactions))
	for _, p := range res.Transactions {
		if ownOnly && !p.Own {
			continue
		}
		item := transactionResponse{
			TransactionProgress: p,
			ServicesText:        p.Services.String(),
			Machines:            []machinePlacing{},
		}
		if p.Code != "" {
			for _, a := range res.Schedule.AssignmentsFor(p.Code) {
				item.Machines = append(item.Machines, machinePlacing{
					Service: a.Service,
					Unit:    a.Unit,
					Machine: names[machineKey{a.MachineType, a.MachineNumber}],
				})
			}
		}
		response = append(response, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"branch":       branch.Code,
		"day":          res.Day,
		"transactions": response,
		"skipped":      res.Skipped,
	})
}

type machineKey struct {
	typ    sim.MachineType
	number int
}

func machineNames(res *sim.Result) map[machineKey]string {
	names := make(map[machineKey]string, len(res.Machines))
	for _, m := range res.Machines {
		names[machineKey{m.Type, m.Number}] = m.Name
	}
	return names
}
