// Package jupiter provides a client for the Jupiter aggregator API on Solana.
package jupiter

// QuoteParams contains the parameters for requesting a quote from Jupiter.
type QuoteParams struct {
	InputMint   string // Input token mint address
	OutputMint  string // Output token mint address
	Amount      uint64 // Amount in smallest units (lamports/base units)
	SlippageBps int    // Slippage tolerance in basis points
}

// quoteResponse is the raw wire shape of Jupiter's quote API. It is echoed
// verbatim into the swap request, so unknown-but-required route fields must
// survive the round trip.
type quoteResponse struct {
	InputMint            string      `json:"inputMint"`
	InAmount             string      `json:"inAmount"`
	OutputMint           string      `json:"outputMint"`
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	SwapMode             string      `json:"swapMode"`
	SlippageBps          int         `json:"slippageBps"`
	PriceImpactPct       string      `json:"priceImpactPct"`
	RoutePlan            []routePlan `json:"routePlan"`
	ContextSlot          int64       `json:"contextSlot,omitempty"`
	TimeTaken            float64     `json:"timeTaken,omitempty"`
}

// routePlan describes a single step in the swap route.
type routePlan struct {
	SwapInfo swapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

// swapInfo contains details about a swap step.
type swapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// Quote is a validated route quote. It is immutable once returned and must be
// consumed at most once to build the matching swap transaction; a stale quote
// is replaced with a fresh one, never reused.
type Quote struct {
	InputMint      string  `json:"input_mint"`
	OutputMint     string  `json:"output_mint"`
	InAmount       uint64  `json:"in_amount"`  // Minor units
	OutAmount      uint64  `json:"out_amount"` // Minor units
	PriceImpactPct float64 `json:"price_impact_pct"`
	SlippageBps    int     `json:"slippage_bps"`

	raw *quoteResponse // Echoed into the swap request
}

// swapRequest is the wire shape of Jupiter's swap-transaction build API.
type swapRequest struct {
	QuoteResponse             *quoteResponse `json:"quoteResponse"`
	UserPublicKey             string         `json:"userPublicKey"`
	WrapAndUnwrapSol          bool           `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool           `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports interface{}    `json:"prioritizationFeeLamports"` // "auto" or int
}

// swapResponse is the wire shape of Jupiter's swap-transaction build response.
type swapResponse struct {
	SwapTransaction           string `json:"swapTransaction"` // Base64-encoded unsigned transaction
	LastValidBlockHeight      int64  `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports int64  `json:"prioritizationFeeLamports,omitempty"`
	ComputeUnitLimit          int    `json:"computeUnitLimit,omitempty"`
}

// SwapTransaction is an unsigned transaction payload built from a quote.
type SwapTransaction struct {
	Payload              string `json:"payload"` // Base64-encoded transaction bytes
	LastValidBlockHeight int64  `json:"last_valid_block_height"`
}

// Well-known Solana token mint addresses (mainnet).
var (
	// Native SOL (wrapped)
	SOLMint = "So11111111111111111111111111111111111111112"

	// Stablecoins
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"

	// Popular memecoins
	BONKMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	WIFMint  = "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"
)
