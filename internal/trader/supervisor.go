// Package trader owns per-asset position state and drives the tick loop:
// observe, decide, execute, confirm, transition.
package trader

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-trade-bot-go/internal/config"
	"solana-trade-bot-go/internal/executor"
	"solana-trade-bot-go/internal/market"
	"solana-trade-bot-go/internal/policy"
	"solana-trade-bot-go/internal/solana"
)

// Position is an open holding of an asset. At most one exists per asset.
type Position struct {
	AssetID     string
	EntryPrice  float64
	TokenAmount int64 // remaining holding in the token's base units
}

// Market is the observation surface the supervisor reads from.
type Market interface {
	Observe(ctx context.Context, assetID string, entryPrice float64) (*market.Observation, error)
	RefreshPrice(ctx context.Context, assetID string) (float64, error)
}

// Policy selects an action for an observation.
type Policy interface {
	SelectAction(obs *market.Observation) policy.Action
}

// Risk provides sizing and stop-loss checks.
type Risk interface {
	PositionSize(ctx context.Context, riskFraction float64) float64
	StopLossPrice(entryPrice float64) float64
	CheckStopLoss(current, stopLossPrice float64) bool
}

// Executor submits swaps.
type Executor interface {
	Buy(ctx context.Context, assetID string, solAmount float64) (*executor.TxHandle, error)
	Sell(ctx context.Context, assetID string, tokenAmount int64, reason string) (*executor.TxHandle, error)
}

// Confirmer waits for a submitted transaction to reach finality.
type Confirmer interface {
	Await(ctx context.Context, handle *executor.TxHandle) error
}

// Supervisor evaluates every tracked asset once per tick. Position and
// surge-hold state live here and nowhere else; gateways never mutate them.
type Supervisor struct {
	logger    *zap.Logger
	cfg       *config.Config
	assets    []string
	market    Market
	policy    Policy
	risk      Risk
	executor  Executor
	confirmer Confirmer

	state *stateMap
}

// NewSupervisor creates a trading supervisor for the given assets.
func NewSupervisor(
	logger *zap.Logger,
	cfg *config.Config,
	assets []string,
	mkt Market,
	pol Policy,
	rsk Risk,
	exec Executor,
	confirmer Confirmer,
) *Supervisor {
	return &Supervisor{
		logger:    logger.Named("supervisor"),
		cfg:       cfg,
		assets:    assets,
		market:    mkt,
		policy:    pol,
		risk:      rsk,
		executor:  exec,
		confirmer: confirmer,
		state:     newStateMap(),
	}
}

// Run starts the tick loop. Cancellation stops the loop before the next
// tick; in-flight per-asset work for the current tick finishes or hits its
// own timeouts first because Tick waits for the whole round.
func (s *Supervisor) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.Trading.TickInterval) * time.Second
	backoff := time.Duration(s.cfg.Trading.ErrorBackoff) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting trading loop",
		zap.Duration("interval", interval),
		zap.Int("assets", len(s.assets)))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping trading loop...")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("Tick failed, backing off", zap.Error(err), zap.Duration("backoff", backoff))
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					s.logger.Info("Stopping trading loop...")
					return
				}
			}
		}
	}
}

// Tick evaluates all tracked assets concurrently and returns once every
// per-asset task has finished. Per-asset failures are logged and absorbed;
// only context cancellation surfaces.
func (s *Supervisor) Tick(ctx context.Context) error {
	// The group's derived context is cancelled as soon as Wait returns, so
	// the final check must read the parent context.
	g, gctx := errgroup.WithContext(ctx)
	if limit := s.cfg.Trading.MaxConcurrentAssets; limit > 0 {
		g.SetLimit(limit)
	}

	for _, asset := range s.assets {
		asset := asset
		g.Go(func() error {
			s.processAsset(gctx, asset)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// processAsset runs one asset's decision step. Nothing escapes: every
// failure path logs and returns, preserving isolation between assets.
func (s *Supervisor) processAsset(ctx context.Context, assetID string) {
	l := s.logger.With(zap.String("asset", assetID))

	if s.state.isInvalid(assetID) {
		return
	}
	if !solana.IsValidAddress(assetID) {
		// Logged once, then skipped permanently.
		s.state.markInvalid(assetID)
		l.Warn("Invalid asset address, skipping permanently")
		return
	}

	pos, open := s.state.position(assetID)
	entryPrice := 0.0
	if open {
		entryPrice = pos.EntryPrice
	}

	obs, err := s.market.Observe(ctx, assetID, entryPrice)
	if err != nil {
		l.Warn("No observation for asset this tick, skipping", zap.Error(err))
		return
	}

	if !open {
		s.considerBuy(ctx, l, assetID, obs)
		return
	}
	s.manageOpen(ctx, l, assetID, pos, obs)
}

// considerBuy handles the NoPosition state: buy only when the policy says
// so, the risk manager sizes the trade above zero, and the swap confirms.
func (s *Supervisor) considerBuy(ctx context.Context, l *zap.Logger, assetID string, obs *market.Observation) {
	action := s.policy.SelectAction(obs)
	if action != policy.Buy {
		l.Debug("No buy signal", zap.String("action", action.String()))
		return
	}

	solAmount := s.risk.PositionSize(ctx, s.cfg.Trading.RiskFraction)
	if solAmount <= 0 {
		l.Warn("Position size is zero, skipping buy")
		return
	}

	handle, err := s.executor.Buy(ctx, assetID, solAmount)
	if err != nil {
		l.Warn("Buy not executed", zap.Error(err))
		return
	}
	if err := s.confirmer.Await(ctx, handle); err != nil {
		// No position was recorded, so there is nothing to roll back.
		l.Error("Buy transaction did not confirm", zap.Error(err))
		return
	}

	// The entry price is the oracle price after the buy settles, not the
	// quoted price, so the cached pre-trade value must not be reused.
	entryPrice, err := s.market.RefreshPrice(ctx, assetID)
	if err != nil || entryPrice <= 0 {
		l.Warn("Could not fetch post-buy price, using observation price", zap.Error(err))
		entryPrice = obs.PriceUSD
	}

	s.state.openPosition(&Position{AssetID: assetID, EntryPrice: entryPrice, TokenAmount: handle.TokensOut})
	l.Info("Position opened",
		zap.Float64("entry_price", entryPrice),
		zap.Float64("sol_spent", solAmount),
		zap.Int64("tokens", handle.TokensOut))
}

// manageOpen handles the Open and OpenHold states. The stop-loss check runs
// before anything policy-driven, every tick.
func (s *Supervisor) manageOpen(ctx context.Context, l *zap.Logger, assetID string, pos *Position, obs *market.Observation) {
	stopLoss := s.risk.StopLossPrice(pos.EntryPrice)
	if s.risk.CheckStopLoss(obs.PriceUSD, stopLoss) {
		l.Info("Stop-loss triggered",
			zap.Float64("current", obs.PriceUSD),
			zap.Float64("stop_loss", stopLoss))
		s.closePosition(ctx, l, pos, "stop-loss")
		return
	}

	if s.state.holding(assetID) {
		s.partialSell(ctx, l, pos)
		return
	}

	if s.isSurge(obs) {
		// Flag only; gradual profit-taking starts next tick.
		s.state.setHold(assetID)
		l.Info("Surge signal observed, entering hold mode",
			zap.Float64("sentiment", obs.SentimentScore),
			zap.Float64("volume_24h", obs.Volume24h))
		return
	}

	if s.policy.SelectAction(obs) == policy.Sell {
		s.closePosition(ctx, l, pos, "policy-sell")
	}
}

// isSurge reports whether the observation carries a surge signal.
func (s *Supervisor) isSurge(obs *market.Observation) bool {
	return obs.SentimentScore >= s.cfg.Trading.SurgeSentiment &&
		obs.Volume24h >= s.cfg.Trading.SurgeVolumeUSD
}

// closePosition sells the full remaining holding. The position is removed
// only after the sell reaches finality; a failed confirmation leaves it
// untouched pending reconciliation.
func (s *Supervisor) closePosition(ctx context.Context, l *zap.Logger, pos *Position, reason string) {
	handle, err := s.executor.Sell(ctx, pos.AssetID, pos.TokenAmount, reason)
	if err != nil {
		l.Warn("Sell not executed", zap.String("reason", reason), zap.Error(err))
		return
	}
	if err := s.confirmer.Await(ctx, handle); err != nil {
		l.Error("Sell transaction did not confirm, position left open",
			zap.String("reason", reason), zap.Error(err))
		return
	}

	s.state.closePosition(pos.AssetID)
	l.Info("Position closed", zap.String("reason", reason))
}

// partialSell exits a fixed fraction of the holding while in hold mode.
// The position stays open with its entry price unchanged.
func (s *Supervisor) partialSell(ctx context.Context, l *zap.Logger, pos *Position) {
	amount := int64(float64(pos.TokenAmount) * s.cfg.Trading.PartialSellFraction)
	if amount <= 0 || amount >= pos.TokenAmount {
		l.Debug("Holding too small for a partial exit, closing instead")
		s.closePosition(ctx, l, pos, "surge-hold-exit")
		return
	}

	handle, err := s.executor.Sell(ctx, pos.AssetID, amount, "surge-hold-partial")
	if err != nil {
		l.Warn("Partial sell not executed", zap.Error(err))
		return
	}
	if err := s.confirmer.Await(ctx, handle); err != nil {
		l.Error("Partial sell did not confirm, holding unchanged", zap.Error(err))
		return
	}

	remaining := s.state.reducePosition(pos.AssetID, amount)
	l.Info("Partial exit executed",
		zap.Int64("sold", amount),
		zap.Int64("remaining", remaining))
}

// Positions returns a snapshot of all open positions.
func (s *Supervisor) Positions() map[string]Position {
	return s.state.snapshot()
}

// Holding reports whether an asset is in surge-hold mode.
func (s *Supervisor) Holding(assetID string) bool {
	return s.state.holding(assetID)
}
