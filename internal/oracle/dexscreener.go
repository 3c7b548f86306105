package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNoLiquidity indicates the price oracle has no tradable pair for the
// asset, or reports a non-positive price/liquidity. This is invalid data,
// not a transient failure, so callers must not retry it.
var ErrNoLiquidity = errors.New("no liquidity for asset")

// PairData holds the fields consumed from the price oracle for one asset.
type PairData struct {
	PriceUSD     float64
	BaseSymbol   string
	QuoteSymbol  string
	Volume24h    float64
	LiquidityUSD float64
}

// PriceSource is the read interface to the price oracle.
type PriceSource interface {
	TokenPair(ctx context.Context, assetID string) (*PairData, error)
}

// DexScreenerClient fetches DEX pair data from the DexScreener API.
type DexScreenerClient struct {
	client *resty.Client
	logger *zap.Logger
}

var _ PriceSource = (*DexScreenerClient)(nil)

// NewDexScreenerClient creates a price oracle client against baseURL.
func NewDexScreenerClient(baseURL string, logger *zap.Logger) *DexScreenerClient {
	return &DexScreenerClient{
		client: resty.New().SetBaseURL(baseURL),
		logger: logger.Named("dexscreener"),
	}
}

type dexTokenResponse struct {
	Pairs []struct {
		PriceUSD  string `json:"priceUsd"`
		BaseToken struct {
			Symbol string `json:"symbol"`
		} `json:"baseToken"`
		QuoteToken struct {
			Symbol string `json:"symbol"`
		} `json:"quoteToken"`
		Volume struct {
			H24 float64 `json:"h24"`
		} `json:"volume"`
		Liquidity struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
	} `json:"pairs"`
}

// TokenPair fetches pair data for the given token address. The first pair
// in the response is taken as the most liquid one. A response without pairs
// or with non-positive price/liquidity yields ErrNoLiquidity.
func (c *DexScreenerClient) TokenPair(ctx context.Context, assetID string) (*PairData, error) {
	var result dexTokenResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/tokens/" + assetID)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("dexscreener returned status %s", resp.Status())
	}

	if len(result.Pairs) == 0 {
		c.logger.Warn("No pairs found for token", zap.String("asset", assetID))
		return nil, ErrNoLiquidity
	}

	pair := result.Pairs[0]
	price := parseFloat(pair.PriceUSD)
	data := &PairData{
		PriceUSD:     price,
		BaseSymbol:   pair.BaseToken.Symbol,
		QuoteSymbol:  pair.QuoteToken.Symbol,
		Volume24h:    pair.Volume.H24,
		LiquidityUSD: pair.Liquidity.USD,
	}
	if data.PriceUSD <= 0 || data.LiquidityUSD <= 0 {
		c.logger.Warn("Pair reported without usable price or liquidity",
			zap.String("asset", assetID),
			zap.Float64("price_usd", data.PriceUSD),
			zap.Float64("liquidity_usd", data.LiquidityUSD))
		return nil, ErrNoLiquidity
	}

	return data, nil
}
