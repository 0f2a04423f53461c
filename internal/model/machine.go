package model

import "time"

// Machine mirrors one washer or dryer from the back-office inventory. A
// machine is identified by its type and number within the branch; the
// back-office id is kept for reference only and may be zero.
type Machine struct {
	ID          int64  `gorm:"primaryKey"`
	BranchID    int64  `gorm:"uniqueIndex:idx_branch_machine;not null"`
	Type        string `gorm:"uniqueIndex:idx_branch_machine;size:16;not null"` // washer | dryer
	Number      int    `gorm:"uniqueIndex:idx_branch_machine;not null"`
	UpstreamID  int64  `gorm:"index"`
	DisplayName string `gorm:"size:256;not null"`
	Status      string `gorm:"size:16;not null"` // available | in_use | broken | maintenance
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Associations
	Branch Branch `gorm:"constraint:OnDelete:CASCADE"`
}
