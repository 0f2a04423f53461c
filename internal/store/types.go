package store

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a branch lookup has no match.
var ErrNotFound = errors.New("not found")

// ApiMachine represents a single machine record from the back-office inventory.
type ApiMachine struct {
	ID     int64  `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// ApiTransaction represents a single transaction record from the back office.
type ApiTransaction struct {
	Code     string `json:"code"`
	Time     string `json:"time"` // HH.MM
	Date     string `json:"date"` // 2006-01-02
	Services string `json:"services"`
	Status   string `json:"status"`
	IsOwn    bool   `json:"is_own"`
}

// Canceled reports whether the back office marked the order as canceled.
func (t ApiTransaction) Canceled() bool {
	switch strings.ToLower(strings.TrimSpace(t.Status)) {
	case "canceled", "cancelled", "batal", "dibatalkan":
		return true
	}
	return false
}

// MachineState is the simulated state of one machine to be recorded.
type MachineState struct {
	MachineID int64
	Status    string // available | in_use | broken | maintenance
	Message   string
	FinishAt  *time.Time
}

// Available reports whether the machine has no open occupancy.
func (m MachineState) Available() bool {
	return m.Status == "available"
}
