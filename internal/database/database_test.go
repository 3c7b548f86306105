package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/models"
	"solana-trade-bot-go/internal/policy"
)

func testConfig(assets ...string) *config.Config {
	cfg := &config.Config{}
	cfg.Database.DSN = "file::memory:"
	cfg.Trading.Assets = assets
	return cfg
}

func TestNewDatabase_SeedsTrackedAssets(t *testing.T) {
	db, err := NewDatabase(testConfig("Addr111", "Addr222"))
	require.NoError(t, err)

	var assets []models.TrackedAsset
	require.NoError(t, db.Order("id").Find(&assets).Error)
	require.Len(t, assets, 2)
	assert.Equal(t, "Addr111", assets[0].Address)
	assert.Equal(t, "Addr222", assets[1].Address)
	assert.True(t, assets[0].Enabled)
}

func TestAutoMigrate_SeedingIsIdempotent(t *testing.T) {
	cfg := testConfig("Addr111")
	db, err := NewDatabase(cfg)
	require.NoError(t, err)

	// Restarting with the same config must not duplicate registry rows.
	require.NoError(t, AutoMigrate(db, cfg))

	var count int64
	require.NoError(t, db.Model(&models.TrackedAsset{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSaveAndLoadPolicy(t *testing.T) {
	db, err := NewDatabase(testConfig())
	require.NoError(t, err)

	saved := []policy.Entry{
		{StateKey: "0|3|4|1", Buy: 0.5, Sell: -0.2, Hold: 0.1},
		{StateKey: "1|5|3|0", Buy: -0.1, Sell: 0.9, Hold: 0.0},
	}
	require.NoError(t, SavePolicy(db, saved))

	loaded, err := LoadPolicy(db)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestSavePolicy_ReplacesPreviousSnapshot(t *testing.T) {
	db, err := NewDatabase(testConfig())
	require.NoError(t, err)

	require.NoError(t, SavePolicy(db, []policy.Entry{
		{StateKey: "0|0|0|0", Buy: 1},
		{StateKey: "1|1|1|1", Sell: 1},
	}))
	require.NoError(t, SavePolicy(db, []policy.Entry{
		{StateKey: "2|2|2|2", Hold: 1},
	}))

	loaded, err := LoadPolicy(db)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "2|2|2|2", loaded[0].StateKey)
}

func TestLoadPolicy_EmptyTable(t *testing.T) {
	db, err := NewDatabase(testConfig())
	require.NoError(t, err)

	loaded, err := LoadPolicy(db)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
