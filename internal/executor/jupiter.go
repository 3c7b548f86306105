// Package executor drives swap execution through the Jupiter aggregator,
// with balance checks and a bounded retry policy around the whole sequence.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-trade-bot-go/internal/retry"
	"solana-trade-bot-go/internal/solana"
)

var (
	// ErrInsufficientBalance means the wallet cannot cover the swap input.
	// Not retryable; the caller skips the trade.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNoRoute means the aggregator found no route for the pair. Treated
	// as transient and retried with backoff.
	ErrNoRoute = errors.New("no route found")
)

var lamportsPerSol = decimal.NewFromInt(1_000_000_000)

// TxHandle identifies a submitted swap awaiting confirmation.
type TxHandle struct {
	Signature   string
	AssetID     string
	SubmittedAt time.Time
	// TokensOut is the quoted output amount in the token's base units.
	// Recorded on buys so sells can be sized as a fraction of the holding.
	TokensOut int64
}

// Chain is the slice of the RPC client the gateway needs.
type Chain interface {
	Balance(ctx context.Context, account string) (float64, error)
	SendTransaction(ctx context.Context, payload string) (string, error)
}

// Gateway requests routes from Jupiter and submits the returned swap
// transactions. It never mutates position state; that is the supervisor's
// job after a handle is returned.
type Gateway struct {
	client        *resty.Client
	chain         Chain
	walletAddress string
	slippage      float64
	policy        retry.Policy
	logger        *zap.Logger
}

// NewGateway creates an execution gateway against the Jupiter API at
// baseURL.
func NewGateway(baseURL string, chain Chain, walletAddress string, slippage float64, policy retry.Policy, logger *zap.Logger) *Gateway {
	if policy.Retryable == nil {
		policy.Retryable = func(err error) bool {
			return !errors.Is(err, ErrInsufficientBalance)
		}
	}
	return &Gateway{
		client:        resty.New().SetBaseURL(baseURL),
		chain:         chain,
		walletAddress: walletAddress,
		slippage:      slippage,
		policy:        policy,
		logger:        logger.Named("executor"),
	}
}

type quoteResponse struct {
	OutAmount    string `json:"outAmount"`
	ErrorMessage string `json:"error"`
	raw          []byte
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// Buy swaps solAmount SOL into the asset. The wallet balance is verified
// before requesting a route. The whole sequence retries with backoff on
// transient failures; after the budget is exhausted the error is returned
// and no handle is produced. The caller must treat that as "no position
// opened", not as fatal.
func (g *Gateway) Buy(ctx context.Context, assetID string, solAmount float64) (*TxHandle, error) {
	amountLamports := decimal.NewFromFloat(solAmount).Mul(lamportsPerSol).IntPart()
	if amountLamports <= 0 {
		return nil, fmt.Errorf("buy amount %f SOL is too small", solAmount)
	}

	var handle *TxHandle
	err := g.policy.Do(ctx, func(ctx context.Context) error {
		balance, err := g.chain.Balance(ctx, g.walletAddress)
		if err != nil {
			return fmt.Errorf("balance check failed: %w", err)
		}
		if balance < solAmount {
			g.logger.Warn("Insufficient SOL balance for buy",
				zap.Float64("needed", solAmount),
				zap.Float64("available", balance))
			return ErrInsufficientBalance
		}

		handle, err = g.swap(ctx, solana.SolMint, assetID, amountLamports)
		if err != nil {
			return err
		}
		handle.AssetID = assetID
		return nil
	})
	if err != nil {
		g.logger.Warn("Buy failed", zap.String("asset", assetID), zap.Error(err))
		return nil, err
	}

	g.logger.Info("Buy submitted",
		zap.String("asset", assetID),
		zap.Float64("sol_amount", solAmount),
		zap.String("signature", handle.Signature))
	return handle, nil
}

// Sell swaps tokenAmount base units of the asset back into SOL. Same retry
// contract as Buy. The reason is carried through to the logs only.
func (g *Gateway) Sell(ctx context.Context, assetID string, tokenAmount int64, reason string) (*TxHandle, error) {
	if tokenAmount <= 0 {
		return nil, fmt.Errorf("sell amount %d is too small", tokenAmount)
	}

	var handle *TxHandle
	err := g.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		handle, err = g.swap(ctx, assetID, solana.SolMint, tokenAmount)
		if err != nil {
			return err
		}
		handle.AssetID = assetID
		return nil
	})
	if err != nil {
		g.logger.Warn("Sell failed",
			zap.String("asset", assetID),
			zap.String("reason", reason),
			zap.Error(err))
		return nil, err
	}

	g.logger.Info("Sell submitted",
		zap.String("asset", assetID),
		zap.Int64("token_amount", tokenAmount),
		zap.String("reason", reason),
		zap.String("signature", handle.Signature))
	return handle, nil
}

// swap runs one quote-then-submit round trip.
func (g *Gateway) swap(ctx context.Context, inputMint, outputMint string, amount int64) (*TxHandle, error) {
	slippageBps := decimal.NewFromFloat(g.slippage).Mul(decimal.NewFromInt(10000)).IntPart()

	var quote quoteResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":   inputMint,
			"outputMint":  outputMint,
			"amount":      strconv.FormatInt(amount, 10),
			"slippageBps": strconv.FormatInt(slippageBps, 10),
		}).
		SetResult(&quote).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	if resp.IsError() || quote.ErrorMessage != "" || quote.OutAmount == "" {
		return nil, ErrNoRoute
	}
	quote.raw = resp.Body()

	var swap swapResponse
	resp, err = g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"quoteResponse": json.RawMessage(quote.raw),
			"userPublicKey": g.walletAddress,
		}).
		SetResult(&swap).
		Post("/swap")
	if err != nil {
		return nil, fmt.Errorf("swap request failed: %w", err)
	}
	if resp.IsError() || swap.SwapTransaction == "" {
		return nil, fmt.Errorf("swap transaction not returned (status %s)", resp.Status())
	}

	signature, err := g.chain.SendTransaction(ctx, swap.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("transaction submission failed: %w", err)
	}

	tokensOut, _ := strconv.ParseInt(quote.OutAmount, 10, 64)
	return &TxHandle{
		Signature:   signature,
		SubmittedAt: time.Now(),
		TokensOut:   tokensOut,
	}, nil
}
