// Package types defines core data structures for the cascade trading service.
package types

import "time"

// PairRiskConfig holds per-pair overrides of the global risk limits.
// A zero value for a field means "use the global setting".
type PairRiskConfig struct {
	MaxTradeLamports  uint64 `json:"max_trade_lamports"`  // Per-trade notional ceiling in minor units
	SlippageBps       int    `json:"slippage_bps"`        // Slippage tolerance in basis points
	MinWalletLamports uint64 `json:"min_wallet_lamports"` // Wallet balance required before a hop may run
}

// TradingPair represents a configured swap pair in the cascade.
type TradingPair struct {
	ID                string         `json:"id"`
	StableMint        string         `json:"stable_mint"`                 // Input mint (the cascade's home asset)
	TargetMint        string         `json:"target_mint"`                 // Output mint
	ProfitabilityRank int            `json:"profitability_rank"`          // Lower rank is tried first
	Enabled           bool           `json:"enabled"`
	Score             float64        `json:"current_profitability_score"` // 0-100, advisory only; never affects order
	LastUpdated       time.Time      `json:"last_updated"`
	Risk              PairRiskConfig `json:"risk_config"`
}

// TradeRecord is one executed swap, journaled after on-chain confirmation.
type TradeRecord struct {
	ID             string    `json:"id"`
	CascadeID      string    `json:"cascade_id,omitempty"`
	PairID         string    `json:"pair_id"`
	Signature      string    `json:"signature"`
	InputMint      string    `json:"input_mint"`
	OutputMint     string    `json:"output_mint"`
	InLamports     uint64    `json:"in_lamports"`
	OutLamports    uint64    `json:"out_lamports"`
	PriceImpactPct float64   `json:"price_impact_pct"`
	ExecutedAt     time.Time `json:"executed_at"`
}
