// Package policy implements the tabular Q-learning policy that picks a
// trading action per asset observation.
package policy

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-trade-bot-go/internal/market"
)

// Action is a trading decision.
type Action int

const (
	Buy Action = iota
	Sell
	Hold
)

// actions in fixed priority order; exploitation tie-breaks follow it.
var actions = [3]Action{Buy, Sell, Hold}

func (a Action) String() string {
	switch a {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "hold"
	}
}

// Params are the Q-learning tunables.
type Params struct {
	LearningRate   float64 // alpha
	DiscountFactor float64 // gamma
	EpsilonDecay   float64 // linear decay per training episode
	EpsilonFloor   float64
	TableCap       int
	BuyDivisor     float64
	SellDivisor    float64
	HoldDivisor    float64
}

// Observer is the slice of the market gateway the engine trains against.
type Observer interface {
	Observe(ctx context.Context, assetID string, entryPrice float64) (*market.Observation, error)
	Price(ctx context.Context, assetID string) (float64, error)
}

type actionValues [3]float64

// Engine holds the Q-table and exploration state. Safe for concurrent use:
// several assets' ticks can select and update simultaneously.
type Engine struct {
	mu      sync.Mutex
	table   map[string]*actionValues
	order   []string // insertion order, for FIFO eviction
	epsilon float64
	params  Params
	rng     *rand.Rand
	sleep   func(context.Context, time.Duration) error
	logger  *zap.Logger
}

// NewEngine creates a policy engine with exploration rate 1.0.
func NewEngine(params Params, logger *zap.Logger) *Engine {
	if params.TableCap <= 0 {
		params.TableCap = 10000
	}
	return &Engine{
		table:   make(map[string]*actionValues),
		epsilon: 1.0,
		params:  params,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   sleepCtx,
		logger:  logger.Named("policy"),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stateKey discretizes an observation into a table key. Raw floats never
// index the table: price change is bucketed in 5% steps, sentiment in 0.1
// steps, 24h volume by log10 decade, volatility in 0.01 steps. Nearby
// observations therefore share entries and learning can generalize.
func stateKey(obs *market.Observation) string {
	volumeDecade := 0
	if obs.Volume24h >= 1 {
		volumeDecade = int(math.Floor(math.Log10(obs.Volume24h)))
	}
	return fmt.Sprintf("%d|%d|%d|%d",
		int(math.Floor(obs.PriceChange/0.05)),
		int(math.Floor(obs.SentimentScore/0.1)),
		volumeDecade,
		int(math.Floor(obs.Volatility/0.01)))
}

// entryLocked returns the action values for key, lazily zero-initialized.
// Inserting into a full table first evicts the oldest-inserted entry.
// Caller holds e.mu.
func (e *Engine) entryLocked(key string) *actionValues {
	if v, ok := e.table[key]; ok {
		return v
	}
	if len(e.table) >= e.params.TableCap {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.table, oldest)
	}
	v := &actionValues{}
	e.table[key] = v
	e.order = append(e.order, key)
	return v
}

// SelectAction picks an action for the observation: with probability
// epsilon a uniformly random one, otherwise the highest-valued action with
// ties broken by the fixed order buy > sell > hold. A nil observation
// always maps to Hold.
func (e *Engine) SelectAction(obs *market.Observation) Action {
	if obs == nil {
		return Hold
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rng.Float64() < e.epsilon {
		return actions[e.rng.Intn(len(actions))]
	}

	values := e.entryLocked(stateKey(obs))
	best := Buy
	for _, a := range actions[1:] {
		if values[a] > values[best] {
			best = a
		}
	}
	return best
}

// Update applies the one-step Q-learning rule:
//
//	Q[s][a] += alpha * (reward + gamma*max(Q[s']) - Q[s][a])
//
// Both state keys are created zero-initialized if absent.
func (e *Engine) Update(obs *market.Observation, action Action, reward float64, next *market.Observation) {
	if obs == nil || next == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.entryLocked(stateKey(obs))
	nxt := e.entryLocked(stateKey(next))

	bestNext := nxt[0]
	for _, v := range nxt[1:] {
		if v > bestNext {
			bestNext = v
		}
	}

	cur[action] += e.params.LearningRate * (reward + e.params.DiscountFactor*bestNext - cur[action])
}

// Reward scores an action by the realized percentage price move. Buys are
// rewarded for upward moves, sells for downward moves avoided, holds get a
// damped version of the move. The divisors are configuration tunables, not
// correctness invariants.
func (e *Engine) Reward(initialPrice, finalPrice float64, action Action) float64 {
	if initialPrice <= 0 {
		return 0
	}
	change := (finalPrice - initialPrice) / initialPrice * 100

	switch action {
	case Buy:
		return change / e.params.BuyDivisor
	case Sell:
		return -change / e.params.SellDivisor
	default:
		return change / e.params.HoldDivisor
	}
}

// Train bootstraps the policy for one asset with live market reads: each
// episode observes, picks an action, waits one simulated tick, scores the
// price move and updates the table. No trades are placed. Epsilon decays
// linearly per episode down to the floor.
func (e *Engine) Train(ctx context.Context, obs Observer, assetID string, episodes int, tick time.Duration) error {
	l := e.logger.With(zap.String("asset", assetID))
	l.Info("Training policy", zap.Int("episodes", episodes))

	for i := 0; i < episodes; i++ {
		state, err := obs.Observe(ctx, assetID, 0)
		if err != nil {
			return fmt.Errorf("training observation failed: %w", err)
		}
		action := e.SelectAction(state)

		initial, err := obs.Price(ctx, assetID)
		if err != nil {
			return fmt.Errorf("training price fetch failed: %w", err)
		}
		if err := e.sleep(ctx, tick); err != nil {
			return err
		}
		final, err := obs.Price(ctx, assetID)
		if err != nil {
			return fmt.Errorf("training price fetch failed: %w", err)
		}

		next, err := obs.Observe(ctx, assetID, 0)
		if err != nil {
			return fmt.Errorf("training observation failed: %w", err)
		}

		reward := e.Reward(initial, final, action)
		e.Update(state, action, reward, next)
		e.decayEpsilon()

		l.Debug("Training episode complete",
			zap.Int("episode", i+1),
			zap.String("action", action.String()),
			zap.Float64("reward", reward),
			zap.Float64("epsilon", e.Epsilon()))
	}

	l.Info("Training complete", zap.Float64("epsilon", e.Epsilon()), zap.Int("table_size", e.TableSize()))
	return nil
}

func (e *Engine) decayEpsilon() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epsilon -= e.params.EpsilonDecay
	if e.epsilon < e.params.EpsilonFloor {
		e.epsilon = e.params.EpsilonFloor
	}
}

// EndExploration drops the exploration rate to the configured floor.
// Called once the bootstrap phase is over: live trading exploits what was
// learned regardless of how far episode decay got.
func (e *Engine) EndExploration() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epsilon = e.params.EpsilonFloor
}

// Epsilon reports the current exploration rate.
func (e *Engine) Epsilon() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epsilon
}

// SetEpsilon overrides the exploration rate. Tests use it for pure
// exploitation or forced exploration.
func (e *Engine) SetEpsilon(eps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epsilon = eps
}

// TableSize reports the number of Q-table entries.
func (e *Engine) TableSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.table)
}

// seedRNG replaces the random source. Tests use it for determinism.
func (e *Engine) seedRNG(seed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = rand.New(rand.NewSource(seed))
}
