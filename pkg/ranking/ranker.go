// Package ranking derives advisory profitability scores for trading pairs by
// probing the quote gateway with a fixed reference notional.
package ranking

import (
	"context"
	"time"

	"github.com/jonasrmichel/solcascade/pkg/jupiter"
	"github.com/jonasrmichel/solcascade/pkg/logger"
	"github.com/jonasrmichel/solcascade/pkg/pairs"
	"github.com/jonasrmichel/solcascade/pkg/solana"
	"github.com/jonasrmichel/solcascade/pkg/types"
)

// QuoteService is the slice of the quote gateway the ranker needs.
type QuoteService interface {
	GetQuote(ctx context.Context, params *jupiter.QuoteParams) (*jupiter.Quote, error)
}

// Ranker computes liquidity/price-impact scores for the configured pairs.
type Ranker struct {
	registry *pairs.Registry
	quotes   QuoteService
	log      *logger.Logger

	// referenceLamports is the standard probe size: 1 unit of the home asset.
	referenceLamports uint64
}

// NewRanker creates a ranker over the given registry and quote gateway.
func NewRanker(registry *pairs.Registry, quotes QuoteService, log *logger.Logger) *Ranker {
	return &Ranker{
		registry:          registry,
		quotes:            quotes,
		log:               log,
		referenceLamports: solana.LamportsPerSOL,
	}
}

// CalculateScore simulates a reference-size quote on the pair and maps price
// impact to a 0-100 score: clamp(100 - impact*10, 0, 100). Any failure
// (unknown pair, gateway unreachable) yields 0 rather than an error, so a
// degraded pair never halts the ranking pipeline.
func (r *Ranker) CalculateScore(ctx context.Context, pairID string) float64 {
	pair, err := r.registry.Get(pairID)
	if err != nil {
		return 0
	}

	quote, err := r.quotes.GetQuote(ctx, &jupiter.QuoteParams{
		InputMint:   pair.StableMint,
		OutputMint:  pair.TargetMint,
		Amount:      r.referenceLamports,
		SlippageBps: pair.Risk.SlippageBps,
	})
	if err != nil {
		r.log.Debug("score probe failed for pair %s: %v", pairID, err)
		return 0
	}

	return clampScore(100 - quote.PriceImpactPct*10)
}

// RefreshAllScores recomputes and stores the score for every enabled pair.
// Per-pair failures are isolated: a pair that cannot be scored gets 0 and the
// remaining pairs are still refreshed.
func (r *Ranker) RefreshAllScores(ctx context.Context) {
	for _, pair := range r.registry.Ranked() {
		score := r.CalculateScore(ctx, pair.ID)
		if err := r.registry.UpdateScore(pair.ID, score, time.Now()); err != nil {
			// Pair removed mid-refresh cannot happen (no deletion); log and move on.
			r.log.Warn("failed to store score for pair %s: %v", pair.ID, err)
		}
	}
}

// RankedPairs returns the enabled pairs in cascade order: ascending
// profitability rank, score ignored.
func (r *Ranker) RankedPairs() []types.TradingPair {
	return r.registry.Ranked()
}

// clampScore bounds a score to [0, 100]. Inputs can be far outside the range
// when a probe reports extreme or negative price impact.
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
