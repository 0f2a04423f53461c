package model

import (
	"time"
)

// OccupancyOpen is the current simulated state of a machine that is not
// available (hot table). Available machines have no row.
type OccupancyOpen struct {
	MachineID  int64      `gorm:"primaryKey"`
	BranchID   int64      `gorm:"index;not null"`
	ObservedAt time.Time  `gorm:"not null"`
	Status     string     `gorm:"size:16;not null"`
	Message    string     `gorm:"not null"`
	FinishAt   *time.Time // Predicted end, in-use only
}

// OccupancyHistory is the log of past machine states (cold table).
type OccupancyHistory struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	MachineID   int64     `gorm:"not null;index:idx_history_machine_observed"`
	ObservedAt  time.Time `gorm:"not null;index:idx_history_machine_observed"` // Time the state's END was observed
	Status      string    `gorm:"size:16;not null"`
	Message     string    `gorm:"not null"`
	PeriodStart time.Time `gorm:"not null"`
	PeriodEnd   time.Time `gorm:"not null"` // Predicted end when known, else ObservedAt
}
