package models

import "gorm.io/gorm"

// TrackedAsset represents a token the bot evaluates each tick.
type TrackedAsset struct {
	gorm.Model
	Address string `gorm:"uniqueIndex;not null"`
	Symbol  string
	Enabled bool `gorm:"default:true"`
}
