package trader

import "sync"

// stateMap guards the shared per-asset state: open positions, surge-hold
// flags and permanently skipped addresses. Concurrent per-asset tasks for
// different assets share it, so every access takes the mutex.
type stateMap struct {
	mu        sync.Mutex
	positions map[string]*Position
	holds     map[string]bool
	invalid   map[string]bool
}

func newStateMap() *stateMap {
	return &stateMap{
		positions: make(map[string]*Position),
		holds:     make(map[string]bool),
		invalid:   make(map[string]bool),
	}
}

func (m *stateMap) position(assetID string) (*Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[assetID]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (m *stateMap) openPosition(p *Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.AssetID] = p
}

// closePosition removes the position and clears the hold flag; the two
// always leave together.
func (m *stateMap) closePosition(assetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, assetID)
	delete(m.holds, assetID)
}

// reducePosition shrinks the holding by sold base units and returns the
// remainder. Entry price stays as it was.
func (m *stateMap) reducePosition(assetID string, sold int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[assetID]
	if !ok {
		return 0
	}
	p.TokenAmount -= sold
	if p.TokenAmount < 0 {
		p.TokenAmount = 0
	}
	return p.TokenAmount
}

func (m *stateMap) holding(assetID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holds[assetID]
}

func (m *stateMap) setHold(assetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds[assetID] = true
}

func (m *stateMap) isInvalid(assetID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalid[assetID]
}

func (m *stateMap) markInvalid(assetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalid[assetID] = true
}

func (m *stateMap) snapshot() map[string]Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Position, len(m.positions))
	for k, v := range m.positions {
		out[k] = *v
	}
	return out
}
