package models

import "gorm.io/gorm"

// PolicyState is one persisted Q-table row. The learned policy is restored
// from these rows on startup so training survives restarts. Trade history
// is deliberately not persisted.
type PolicyState struct {
	gorm.Model
	StateKey string  `gorm:"uniqueIndex;not null"`
	Buy      float64 `gorm:"not null"`
	Sell     float64 `gorm:"not null"`
	Hold     float64 `gorm:"not null"`
}
