package backoffice

import "laundry-branch-monitor/internal/store"

// machinesResponse models GET /branches/{code}/machines.
type machinesResponse struct {
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Data    []store.ApiMachine `json:"data"`
}

// transactionsResponse models GET /branches/{code}/transactions.
type transactionsResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    []store.ApiTransaction `json:"data"`
}
