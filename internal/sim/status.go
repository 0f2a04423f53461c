package sim

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the simulated state of one machine at a point in time.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusInUse       Status = "in_use"
	StatusBroken      Status = "broken"
	StatusMaintenance Status = "maintenance"
)

var statusLabels = map[Status]string{
	StatusAvailable:   "Tersedia",
	StatusInUse:       "Digunakan",
	StatusBroken:      "Rusak",
	StatusMaintenance: "Maintenance",
}

// Label is the display string shown on the board.
func (s Status) Label() string {
	return statusLabels[s]
}

// MachineStatus is the read-only projection of one machine's queue.
type MachineStatus struct {
	ID               int64       `json:"id,omitempty"`
	Type             MachineType `json:"type"`
	Number           int         `json:"number"`
	Name             string      `json:"name"`
	Status           Status      `json:"status"`
	Label            string      `json:"label"`
	FinishAt         *time.Time  `json:"finish_at,omitempty"`
	MinutesRemaining int         `json:"minutes_remaining"`
	Active           []Task      `json:"active,omitempty"`
}

// DeriveStatuses projects every machine of pool at now. Washers come first,
// then dryers, each in pool order.
func DeriveStatuses(s *Schedule, pool Pool, now time.Time) []MachineStatus {
	out := make([]MachineStatus, 0, len(pool.Washers)+len(pool.Dryers))
	for i, m := range pool.Washers {
		out = append(out, deriveStatus(m, s.Washers[i], now))
	}
	for i, m := range pool.Dryers {
		out = append(out, deriveStatus(m, s.Dryers[i], now))
	}
	return out
}

func deriveStatus(m Machine, queue []Task, now time.Time) MachineStatus {
	ms := MachineStatus{
		ID:     m.ID,
		Type:   m.Type,
		Number: m.Number,
		Name:   m.DisplayName(),
	}

	switch m.Operability {
	case OperBroken:
		ms.Status = StatusBroken
	case OperMaintenance:
		ms.Status = StatusMaintenance
	default:
		var latest time.Time
		for _, t := range queue {
			if t.Finish.After(now) {
				ms.Active = append(ms.Active, t)
				if t.Finish.After(latest) {
					latest = t.Finish
				}
			}
		}
		if len(ms.Active) == 0 {
			ms.Status = StatusAvailable
		} else {
			ms.Status = StatusInUse
			ms.FinishAt = &latest
			ms.MinutesRemaining = int(math.Ceil(latest.Sub(now).Minutes()))
		}
	}
	ms.Label = ms.Status.Label()
	return ms
}

// Availability holds the header counts of the board.
type Availability struct {
	WashersAvailable int             `json:"washers_available"`
	WashersTotal     int             `json:"washers_total"`
	DryersAvailable  int             `json:"dryers_available"`
	DryersTotal      int             `json:"dryers_total"`
	Washers          string          `json:"washers"` // "3/5"
	Dryers           string          `json:"dryers"`
	Utilization      decimal.Decimal `json:"utilization_percent"`
}

// Summarize counts available machines per type. Utilization is the share of
// operable machines currently in use, in percent with one decimal.
func Summarize(statuses []MachineStatus) Availability {
	var a Availability
	var inUse, operable int64
	for _, ms := range statuses {
		switch ms.Type {
		case Washer:
			a.WashersTotal++
			if ms.Status == StatusAvailable {
				a.WashersAvailable++
			}
		case Dryer:
			a.DryersTotal++
			if ms.Status == StatusAvailable {
				a.DryersAvailable++
			}
		}
		switch ms.Status {
		case StatusInUse:
			inUse++
			operable++
		case StatusAvailable:
			operable++
		}
	}
	a.Washers = strconv.Itoa(a.WashersAvailable) + "/" + strconv.Itoa(a.WashersTotal)
	a.Dryers = strconv.Itoa(a.DryersAvailable) + "/" + strconv.Itoa(a.DryersTotal)

	a.Utilization = decimal.Zero
	if operable > 0 {
		a.Utilization = decimal.NewFromInt(inUse).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(operable)).
			Round(1)
	}
	return a
}
