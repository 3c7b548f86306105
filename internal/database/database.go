package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/models"
	"solana-trade-bot-go/internal/policy"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates the schema and seeds the tracked-asset registry from
// the configured asset list.
func AutoMigrate(db *gorm.DB, cfg *config.Config) error {
	if err := db.AutoMigrate(&models.TrackedAsset{}, &models.PolicyState{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	for _, address := range cfg.Trading.Assets {
		asset := models.TrackedAsset{Address: address, Enabled: true}
		if err := db.FirstOrCreate(&asset, models.TrackedAsset{Address: address}).Error; err != nil {
			return fmt.Errorf("failed to seed tracked asset '%s': %w", address, err)
		}
	}

	return nil
}

// LoadPolicy reads the persisted Q-table rows in insertion order.
func LoadPolicy(db *gorm.DB) ([]policy.Entry, error) {
	var rows []models.PolicyState
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load policy state: %w", err)
	}

	entries := make([]policy.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, policy.Entry{
			StateKey: row.StateKey,
			Buy:      row.Buy,
			Sell:     row.Sell,
			Hold:     row.Hold,
		})
	}
	return entries, nil
}

// SavePolicy replaces the persisted Q-table with the given snapshot.
func SavePolicy(db *gorm.DB, entries []policy.Entry) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.PolicyState{}).Error; err != nil {
			return fmt.Errorf("failed to clear policy state: %w", err)
		}
		for _, entry := range entries {
			row := models.PolicyState{
				StateKey: entry.StateKey,
				Buy:      entry.Buy,
				Sell:     entry.Sell,
				Hold:     entry.Hold,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to save policy state '%s': %w", entry.StateKey, err)
			}
		}
		return nil
	})
}
