// Package pairs holds the trading-pair configuration shared by the ranker,
// the cascade engine, and the management API.
package pairs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonasrmichel/solcascade/pkg/types"
)

var (
	// ErrNotFound is returned for operations on an unknown pair id.
	ErrNotFound = errors.New("trading pair not found")

	// ErrDuplicate is returned when adding a pair whose id already exists.
	ErrDuplicate = errors.New("trading pair already exists")
)

// Registry is a mutex-guarded collection of trading pairs. All accessors
// return copies, so a concurrently running ranking pass never observes a
// half-written configuration change. Pairs are never deleted.
type Registry struct {
	mu    sync.RWMutex
	pairs map[string]*types.TradingPair
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pairs: make(map[string]*types.TradingPair)}
}

// Add registers a new pair. The id must be unique.
func (r *Registry) Add(pair types.TradingPair) error {
	if pair.ID == "" {
		return fmt.Errorf("pair id is required")
	}
	if pair.StableMint == "" || pair.TargetMint == "" {
		return fmt.Errorf("pair %s: stable and target mints are required", pair.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pairs[pair.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, pair.ID)
	}
	p := pair
	r.pairs[pair.ID] = &p
	return nil
}

// Get returns a copy of the pair with the given id.
func (r *Registry) Get(id string) (types.TradingPair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pairs[id]
	if !ok {
		return types.TradingPair{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *p, nil
}

// SetRank updates a pair's profitability rank.
func (r *Registry) SetRank(id string, rank int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.ProfitabilityRank = rank
	return nil
}

// SetEnabled toggles a pair on or off.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.Enabled = enabled
	return nil
}

// UpdateScore stores a freshly computed profitability score. Last write wins.
func (r *Registry) UpdateScore(id string, score float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.Score = score
	p.LastUpdated = at
	return nil
}

// All returns copies of every pair, ordered by id for stable output.
func (r *Registry) All() []types.TradingPair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.TradingPair, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ranked returns copies of the enabled pairs ordered ascending by
// profitability rank. The score is advisory metadata and never affects the
// order; a pair scored zero still ranks.
func (r *Registry) Ranked() []types.TradingPair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.TradingPair, 0, len(r.pairs))
	for _, p := range r.pairs {
		if p.Enabled {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProfitabilityRank < out[j].ProfitabilityRank
	})
	return out
}
