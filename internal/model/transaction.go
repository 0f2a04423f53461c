package model

import "time"

// Transaction mirrors a customer's laundry order. FeedDate is the day whose
// feed delivered the row; Date is the order's own calendar day and may be
// earlier for carried-over orders.
type Transaction struct {
	ID        int64  `gorm:"primaryKey"`
	BranchID  int64  `gorm:"uniqueIndex:idx_branch_code;index:idx_branch_feed;not null"`
	Code      string `gorm:"uniqueIndex:idx_branch_code;size:64;not null"`
	FeedDate  string `gorm:"index:idx_branch_feed;size:10;not null"` // 2006-01-02
	Date      string `gorm:"size:10;not null"`                       // 2006-01-02
	Clock     string `gorm:"size:8;not null"`                        // HH.MM
	Services  string `gorm:"size:512;not null"`
	Canceled  bool   `gorm:"not null"`
	Own       bool   `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
