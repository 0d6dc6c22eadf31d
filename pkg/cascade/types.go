// Package cascade implements the multi-step trade-execution state machine.
package cascade

import (
	"context"
	"time"

	"github.com/jonasrmichel/solcascade/pkg/jupiter"
	"github.com/jonasrmichel/solcascade/pkg/types"
)

// QuoteGateway is the slice of the quote/swap gateway the engine needs.
type QuoteGateway interface {
	GetQuote(ctx context.Context, params *jupiter.QuoteParams) (*jupiter.Quote, error)
	BuildSwapTransaction(ctx context.Context, quote *jupiter.Quote, userPublicKey string, wrapSol bool) (*jupiter.SwapTransaction, error)
}

// LedgerGateway is the slice of the ledger the engine needs.
type LedgerGateway interface {
	WalletAddress() string
	Balance(ctx context.Context) (uint64, error)
	SignAndSend(ctx context.Context, txBase64 string) (string, error)
	WaitForConfirmation(ctx context.Context, signature string) error
}

// TradeJournal persists confirmed trades. Journal failures never fail a hop;
// the on-chain swap has already happened.
type TradeJournal interface {
	SaveTrade(ctx context.Context, record types.TradeRecord) error
}

// EventSink receives step-level progress events.
type EventSink interface {
	Publish(event interface{})
}

// Request describes one cascade invocation.
type Request struct {
	InitialLamports uint64   `json:"initial_lamports"`
	MaxDepth        int      `json:"max_depth"`         // 0 means no truncation
	StopOnFailure   bool     `json:"stop_on_failure"`
	PairIDs         []string `json:"pair_ids,omitempty"` // Optional subset, rank order preserved
}

// StepDetails carries the executed amounts of a successful hop.
type StepDetails struct {
	InLamports     uint64    `json:"in_lamports"`
	OutLamports    uint64    `json:"out_lamports"`
	PriceImpactPct float64   `json:"price_impact_pct"`
	ExecutedAt     time.Time `json:"executed_at"`
}

// Step is the outcome of one hop.
type Step struct {
	StepNumber          int          `json:"step_number"`
	PairID              string       `json:"pair_id"`
	State               StepState    `json:"state"`
	Success             bool         `json:"success"`
	Signature           string       `json:"transaction_signature,omitempty"` // Present only on success
	Error               string       `json:"error_message,omitempty"`         // Present only on failure
	NeedsReconciliation bool         `json:"needs_reconciliation,omitempty"`  // Set for UNCONFIRMED
	Details             *StepDetails `json:"details,omitempty"`
}

// Result is the outcome of one cascade invocation. It is owned by the caller
// and never shared across invocations.
type Result struct {
	ID              string    `json:"id"`
	Success         bool      `json:"success"`
	InitialLamports uint64    `json:"initial_lamports"`
	FinalLamports   uint64    `json:"final_lamports"`
	ProfitLamports  int64     `json:"profit_lamports"` // Final minus initial, may be negative
	ErrorMessage    string    `json:"error_message,omitempty"`
	Steps           []Step    `json:"steps"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}

// StepEvent is broadcast on every hop state change.
type StepEvent struct {
	Type       string    `json:"type"` // "step_state"
	CascadeID  string    `json:"cascade_id"`
	PairID     string    `json:"pair_id"`
	StepNumber int       `json:"step_number"`
	State      StepState `json:"state"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ResultEvent is broadcast when a cascade completes.
type ResultEvent struct {
	Type   string  `json:"type"` // "cascade_result"
	Result *Result `json:"result"`
}
