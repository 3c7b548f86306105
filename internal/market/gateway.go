// Package market exposes a uniform per-asset observation call on top of the
// price and sentiment oracles, with rate-limited caching in front of both.
package market

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-trade-bot-go/internal/oracle"
	"solana-trade-bot-go/internal/ratecache"
)

// volatilityWindow bounds the per-asset price history used for the
// dispersion estimate.
const volatilityWindow = 12

// Observation is the per-asset, per-tick market snapshot fed to the policy.
// Immutable once constructed.
type Observation struct {
	PriceUSD       float64
	PriceChange    float64
	SentimentScore float64
	Volume24h      float64
	Volatility     float64
	Symbol         string
}

// Gateway wraps the price and sentiment oracles behind Observe.
type Gateway struct {
	prices      oracle.PriceSource
	sentiment   oracle.SentimentSource
	priceCache  *ratecache.Cache[*oracle.PairData]
	socialCache *ratecache.Cache[float64]
	cacheTTL    time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	history map[string][]float64
}

// NewGateway creates a market data gateway. The two caches are independent
// channels, so price spacing never delays sentiment lookups.
func NewGateway(
	prices oracle.PriceSource,
	sentiment oracle.SentimentSource,
	priceCache *ratecache.Cache[*oracle.PairData],
	socialCache *ratecache.Cache[float64],
	cacheTTL time.Duration,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		prices:      prices,
		sentiment:   sentiment,
		priceCache:  priceCache,
		socialCache: socialCache,
		cacheTTL:    cacheTTL,
		logger:      logger.Named("market"),
		history:     make(map[string][]float64),
	}
}

// Observe builds the observation for one asset. entryPrice > 0 means a
// position is open at that price and PriceChange is computed relative to
// it; otherwise PriceChange is 0. ErrNoLiquidity from the price oracle is
// returned as-is and no sentiment call is made.
func (g *Gateway) Observe(ctx context.Context, assetID string, entryPrice float64) (*Observation, error) {
	pair, err := g.priceCache.GetOrFetch(ctx, assetID, g.cacheTTL, func(ctx context.Context) (*oracle.PairData, error) {
		return g.prices.TokenPair(ctx, assetID)
	})
	if err != nil {
		return nil, err
	}

	priceChange := 0.0
	if entryPrice > 0 {
		priceChange = (pair.PriceUSD - entryPrice) / entryPrice
	}

	// Query by symbol and address so posts mentioning either are counted.
	query := fmt.Sprintf("%s OR %s", pair.BaseSymbol, assetID)
	score, err := g.socialCache.GetOrFetch(ctx, query, g.cacheTTL, func(ctx context.Context) (float64, error) {
		return g.sentiment.Score(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	return &Observation{
		PriceUSD:       pair.PriceUSD,
		PriceChange:    priceChange,
		SentimentScore: score,
		Volume24h:      pair.Volume24h,
		Volatility:     g.recordPrice(assetID, pair.PriceUSD),
		Symbol:         pair.BaseSymbol,
	}, nil
}

// Price fetches just the current oracle price for an asset, through the
// same cache channel as Observe.
func (g *Gateway) Price(ctx context.Context, assetID string) (float64, error) {
	pair, err := g.priceCache.GetOrFetch(ctx, assetID, g.cacheTTL, func(ctx context.Context) (*oracle.PairData, error) {
		return g.prices.TokenPair(ctx, assetID)
	})
	if err != nil {
		return 0, err
	}
	return pair.PriceUSD, nil
}

// RefreshPrice drops the cached pair for the asset and fetches the current
// price. Used right after a swap settles, when the cached pre-trade price
// is known to be stale.
func (g *Gateway) RefreshPrice(ctx context.Context, assetID string) (float64, error) {
	g.priceCache.Invalidate(assetID)
	return g.Price(ctx, assetID)
}

// recordPrice appends a price sample to the asset's bounded history and
// returns the sample standard deviation of consecutive percentage returns.
// Deterministic given the same history, zero with fewer than three samples.
func (g *Gateway) recordPrice(assetID string, price float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	h := append(g.history[assetID], price)
	if len(h) > volatilityWindow {
		h = h[len(h)-volatilityWindow:]
	}
	g.history[assetID] = h

	if len(h) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(h)-1)
	for i := 1; i < len(h); i++ {
		if h[i-1] > 0 {
			returns = append(returns, (h[i]-h[i-1])/h[i-1])
		}
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance)
}
