// Package txmonitor polls submitted transactions until they reach finality
// or a retry budget runs out.
package txmonitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"solana-trade-bot-go/internal/executor"
	"solana-trade-bot-go/internal/solana"
)

// ErrConfirmation means the transaction did not reach finality within the
// retry budget. The position state it belongs to must be left unchanged
// pending reconciliation.
var ErrConfirmation = errors.New("transaction confirmation failed")

// StatusSource is the slice of the RPC client the monitor polls.
type StatusSource interface {
	SignatureStatus(ctx context.Context, signature string) (solana.Commitment, error)
}

// AlertFunc receives human-readable alerts for failed confirmations.
type AlertFunc func(message string)

// Monitor watches submitted transactions. Status polls run on their own
// rate-limited channel so confirmation traffic never starves price or
// social lookups.
type Monitor struct {
	status     StatusSource
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	alert      AlertFunc
	logger     *zap.Logger
}

// NewMonitor creates a confirmation monitor. alert may be nil.
func NewMonitor(status StatusSource, rps float64, maxRetries int, baseDelay time.Duration, alert AlertFunc, logger *zap.Logger) *Monitor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Monitor{
		status:     status,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		alert:      alert,
		logger:     logger.Named("txmonitor"),
	}
}

// Await blocks until the transaction reaches finalized commitment or the
// retry budget is exhausted. Exhaustion returns ErrConfirmation and fires
// the alert callback; the call never blocks indefinitely. The delay between
// polls grows linearly: base, 2*base, 3*base.
func (m *Monitor) Await(ctx context.Context, handle *executor.TxHandle) error {
	l := m.logger.With(
		zap.String("signature", handle.Signature),
		zap.String("asset", handle.AssetID))

	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		commitment, err := m.status.SignatureStatus(ctx, handle.Signature)
		switch {
		case err != nil:
			l.Warn("Status poll failed",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", m.maxRetries),
				zap.Error(err))
		case commitment == solana.CommitmentFinalized:
			l.Info("Transaction finalized", zap.Int("attempts", attempt))
			return nil
		case commitment == solana.CommitmentUnknown:
			l.Warn("Transaction not found yet",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", m.maxRetries))
		default:
			l.Debug("Transaction not yet finalized",
				zap.String("commitment", string(commitment)),
				zap.Int("attempt", attempt))
		}

		if attempt == m.maxRetries {
			break
		}
		select {
		case <-time.After(m.baseDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.Error("Confirmation retries exhausted")
	if m.alert != nil {
		m.alert(fmt.Sprintf("transaction %s for asset %s failed to confirm after %d attempts",
			handle.Signature, handle.AssetID, m.maxRetries))
	}
	return fmt.Errorf("%w: %s", ErrConfirmation, handle.Signature)
}
