// Package risk computes position sizes and stop-loss levels from account
// risk parameters.
package risk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-trade-bot-go/internal/oracle"
	"solana-trade-bot-go/internal/ratecache"
)

// solPriceKey is the cache key for the SOL/USD reference price.
const solPriceKey = "sol-usd"

// Manager sizes positions in SOL against the account value and derives
// stop-loss prices. Stop-loss math is pure; sizing needs the reference SOL
// price and fails soft to zero when it cannot be obtained.
type Manager struct {
	accountValueUSD  float64
	stopLossFraction float64
	solPrice         oracle.SolPriceSource
	priceCache       *ratecache.Cache[float64]
	cacheTTL         time.Duration
	logger           *zap.Logger
}

// NewManager creates a risk manager. The cache is the shared price channel,
// so SOL price lookups respect the same spacing as asset price fetches.
func NewManager(
	accountValueUSD, stopLossFraction float64,
	solPrice oracle.SolPriceSource,
	priceCache *ratecache.Cache[float64],
	cacheTTL time.Duration,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		accountValueUSD:  accountValueUSD,
		stopLossFraction: stopLossFraction,
		solPrice:         solPrice,
		priceCache:       priceCache,
		cacheTTL:         cacheTTL,
		logger:           logger.Named("risk"),
	}
}

// PositionSize returns the amount of SOL to commit for one trade:
// (account value * risk fraction) / SOL price. A zero return means "skip
// the trade"; the reference price being unavailable is not an error.
func (m *Manager) PositionSize(ctx context.Context, riskFraction float64) float64 {
	price, err := m.priceCache.GetOrFetch(ctx, solPriceKey, m.cacheTTL, func(ctx context.Context) (float64, error) {
		return m.solPrice.SolPriceUSD(ctx)
	})
	if err != nil {
		m.logger.Error("Could not fetch SOL price, skipping trade", zap.Error(err))
		return 0
	}
	if price <= 0 {
		return 0
	}

	riskUSD := m.accountValueUSD * riskFraction
	size := riskUSD / price
	m.logger.Debug("Calculated position size",
		zap.Float64("risk_usd", riskUSD),
		zap.Float64("sol_price", price),
		zap.Float64("sol_to_buy", size))
	return size
}

// StopLossPrice returns entry * (1 - stopLossFraction). Pure function.
func (m *Manager) StopLossPrice(entryPrice float64) float64 {
	return entryPrice * (1 - m.stopLossFraction)
}

// CheckStopLoss reports whether current has reached the stop-loss level.
// The boundary is inclusive: current == stopLossPrice triggers.
func (m *Manager) CheckStopLoss(current, stopLossPrice float64) bool {
	return current <= stopLossPrice
}
