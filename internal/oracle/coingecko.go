package oracle

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SolPriceSource reports the current SOL price in USD, used as the
// reference price for position sizing.
type SolPriceSource interface {
	SolPriceUSD(ctx context.Context) (float64, error)
}

// CoinGeckoClient fetches the SOL/USD reference price from CoinGecko.
type CoinGeckoClient struct {
	client *resty.Client
	logger *zap.Logger
}

var _ SolPriceSource = (*CoinGeckoClient)(nil)

// NewCoinGeckoClient creates a CoinGecko client against baseURL.
func NewCoinGeckoClient(baseURL string, logger *zap.Logger) *CoinGeckoClient {
	return &CoinGeckoClient{
		client: resty.New().SetBaseURL(baseURL),
		logger: logger.Named("coingecko"),
	}
}

// SolPriceUSD returns the current SOL price in USD.
func (c *CoinGeckoClient) SolPriceUSD(ctx context.Context) (float64, error) {
	var result map[string]map[string]float64
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           "solana",
			"vs_currencies": "usd",
		}).
		SetResult(&result).
		Get("/simple/price")
	if err != nil {
		return 0, fmt.Errorf("coingecko request failed: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("coingecko returned status %s", resp.Status())
	}

	price, ok := result["solana"]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("coingecko response missing solana price")
	}
	return price, nil
}

// parseFloat converts the string-typed numeric fields some oracles return.
// Malformed values become 0, which downstream checks treat as missing data.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
