package model

import "time"

// Branch represents one laundry outlet.
type Branch struct {
	ID        int64     `gorm:"primaryKey"`
	Code      string    `gorm:"uniqueIndex;size:64;not null"`
	Name      string    `gorm:"size:128;not null"`
	Timezone  string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	Machines []Machine `gorm:"foreignKey:BranchID"`
}
