package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonasrmichel/solcascade/pkg/jupiter"
	"github.com/jonasrmichel/solcascade/pkg/logger"
	"github.com/jonasrmichel/solcascade/pkg/metrics"
	"github.com/jonasrmichel/solcascade/pkg/ranking"
	"github.com/jonasrmichel/solcascade/pkg/risk"
	"github.com/jonasrmichel/solcascade/pkg/solana"
	"github.com/jonasrmichel/solcascade/pkg/types"
)

// maxPriceImpactPct is the hard price-impact ceiling for any hop. It is an
// independent safety gate: a hop over this line is rejected even when every
// risk check passes, and it is not configurable per call.
const maxPriceImpactPct = 1.0

// errNoPairs is the caller-visible message for an empty ranked list.
const errNoPairs = "no enabled trading pairs available"

// Engine executes cascades hop by hop. A single cascade is strictly
// sequential; concurrency exists only across callers, and the shared daily
// risk counter is the only state contended between them.
type Engine struct {
	ranker *ranking.Ranker
	risk   *risk.Manager
	quotes QuoteGateway
	ledger LedgerGateway
	log    *logger.Logger

	homeMint string
	journal  TradeJournal // Optional
	events   EventSink    // Optional
}

// NewEngine creates a cascade engine. homeMint identifies the cascade's home
// asset; hop output propagates to the next hop only when the hop returns to
// this mint.
func NewEngine(ranker *ranking.Ranker, riskMgr *risk.Manager, quotes QuoteGateway, ledger LedgerGateway, homeMint string, log *logger.Logger) *Engine {
	if homeMint == "" {
		homeMint = jupiter.SOLMint
	}
	return &Engine{
		ranker:   ranker,
		risk:     riskMgr,
		quotes:   quotes,
		ledger:   ledger,
		homeMint: homeMint,
		log:      log,
	}
}

// SetJournal attaches a trade journal for confirmed hops.
func (e *Engine) SetJournal(j TradeJournal) { e.journal = j }

// SetEvents attaches an event sink for step progress.
func (e *Engine) SetEvents(s EventSink) { e.events = s }

// ExecuteCascade runs the full cascade state machine. Hop failures are
// captured as failed steps and never escape as errors; the result carries an
// aggregate error message only when the cascade stops early.
func (e *Engine) ExecuteCascade(ctx context.Context, req *Request) *Result {
	result := &Result{
		ID:              uuid.NewString(),
		Success:         true,
		InitialLamports: req.InitialLamports,
		StartedAt:       time.Now(),
	}

	selected := e.selectPairs(req)
	if len(selected) == 0 {
		result.Success = false
		result.ErrorMessage = errNoPairs
		result.FinalLamports = req.InitialLamports
		result.CompletedAt = time.Now()
		metrics.CascadesTotal.WithLabelValues("failure").Inc()
		e.publishResult(result)
		return result
	}

	current := req.InitialLamports
	for i, pair := range selected {
		if ctx.Err() != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("cascade canceled before step %d", i+1)
			break
		}

		step, out := e.executeHop(ctx, result.ID, i+1, pair, current)
		result.Steps = append(result.Steps, step)

		if step.Success {
			// The engine tracks amount-of-home-asset only: a hop that does
			// not return to the home mint leaves the carried amount as is.
			if pair.TargetMint == e.homeMint {
				current = out
			}
			continue
		}

		if req.StopOnFailure {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("cascade stopped at step %d (%s): %s", i+1, pair.ID, step.Error)
			break
		}
		// Failed hop consumed no funds; the next pair sees the same amount.
	}

	result.FinalLamports = current
	result.ProfitLamports = int64(current) - int64(req.InitialLamports)
	result.CompletedAt = time.Now()

	if result.Success {
		metrics.CascadesTotal.WithLabelValues("success").Inc()
	} else {
		metrics.CascadesTotal.WithLabelValues("failure").Inc()
	}
	e.publishResult(result)
	return result
}

// ExecuteTrade runs a single hop on one pair outside a cascade. Unknown pair
// ids are a configuration error reported synchronously.
func (e *Engine) ExecuteTrade(ctx context.Context, pairID string, amountLamports uint64) (*Step, error) {
	var pair *types.TradingPair
	for _, p := range e.ranker.RankedPairs() {
		if p.ID == pairID {
			cp := p
			pair = &cp
			break
		}
	}
	if pair == nil {
		return nil, fmt.Errorf("trading pair not found or not enabled: %s", pairID)
	}

	step, _ := e.executeHop(ctx, uuid.NewString(), 1, *pair, amountLamports)
	return &step, nil
}

// selectPairs applies the optional id filter and depth truncation to the
// ranked pair list, preserving rank order.
func (e *Engine) selectPairs(req *Request) []types.TradingPair {
	ranked := e.ranker.RankedPairs()

	if len(req.PairIDs) > 0 {
		wanted := make(map[string]bool, len(req.PairIDs))
		for _, id := range req.PairIDs {
			wanted[id] = true
		}
		filtered := ranked[:0:0]
		for _, p := range ranked {
			if wanted[p.ID] {
				filtered = append(filtered, p)
			}
		}
		ranked = filtered
	}

	if req.MaxDepth > 0 && len(ranked) > req.MaxDepth {
		ranked = ranked[:req.MaxDepth]
	}
	return ranked
}

// executeHop drives one pair through the step state machine. It returns the
// finished step and the hop's output amount in minor units (meaningful only
// when the step succeeded).
func (e *Engine) executeHop(ctx context.Context, cascadeID string, stepNumber int, pair types.TradingPair, amount uint64) (Step, uint64) {
	step := Step{
		StepNumber: stepNumber,
		PairID:     pair.ID,
		State:      StatePending,
	}
	e.publishStep(cascadeID, &step)

	// Balance gate. A failed hop consumes no funds.
	balance, err := e.ledger.Balance(ctx)
	if err != nil {
		metrics.RiskRejections.WithLabelValues("balance").Inc()
		return e.failStep(cascadeID, &step, fmt.Sprintf("balance check failed: %v", err)), 0
	}
	if balance < pair.Risk.MinWalletLamports {
		metrics.RiskRejections.WithLabelValues("balance").Inc()
		return e.failStep(cascadeID, &step, fmt.Sprintf("wallet balance %s SOL below pair minimum %s SOL",
			solana.FormatSOL(balance), solana.FormatSOL(pair.Risk.MinWalletLamports))), 0
	}
	e.advance(cascadeID, &step, StateBalanceVerified)

	// Risk gate: check and reserve in one atomic operation.
	check := e.risk.Reserve(amount, pair.Risk.MaxTradeLamports)
	e.observeDailyVolume()
	if !check.Passed {
		metrics.RiskRejections.WithLabelValues("risk").Inc()
		return e.failStep(cascadeID, &step, strings.Join(check.Violations, "; ")), 0
	}
	e.advance(cascadeID, &step, StateRiskApproved)

	// Quote. The quote is consumed exactly once by the swap build below.
	quoteStart := time.Now()
	quote, err := e.quotes.GetQuote(ctx, &jupiter.QuoteParams{
		InputMint:   pair.StableMint,
		OutputMint:  pair.TargetMint,
		Amount:      amount,
		SlippageBps: pair.Risk.SlippageBps,
	})
	metrics.QuoteSeconds.Observe(time.Since(quoteStart).Seconds())
	if err != nil {
		e.release(amount)
		return e.failStep(cascadeID, &step, fmt.Sprintf("quote failed: %v", err)), 0
	}
	if quote.PriceImpactPct > maxPriceImpactPct {
		e.release(amount)
		metrics.RiskRejections.WithLabelValues("price_impact").Inc()
		return e.failStep(cascadeID, &step, fmt.Sprintf("price impact %.4f%% exceeds %.2f%% ceiling",
			quote.PriceImpactPct, maxPriceImpactPct)), 0
	}
	e.advance(cascadeID, &step, StateQuoted)

	// Build the transaction from that exact quote.
	swapTx, err := e.quotes.BuildSwapTransaction(ctx, quote, e.ledger.WalletAddress(), pair.StableMint == jupiter.SOLMint)
	if err != nil {
		e.release(amount)
		return e.failStep(cascadeID, &step, fmt.Sprintf("swap build failed: %v", err)), 0
	}
	e.advance(cascadeID, &step, StateTransactionBuilt)

	// Submit.
	signature, err := e.ledger.SignAndSend(ctx, swapTx.Payload)
	if err != nil {
		e.release(amount)
		return e.failStep(cascadeID, &step, fmt.Sprintf("submission failed: %v", err)), 0
	}
	e.advance(cascadeID, &step, StateSubmitted)

	// Confirm. Past this point the swap may have landed on-chain, so failure
	// handling splits three ways.
	confirmStart := time.Now()
	err = e.ledger.WaitForConfirmation(ctx, signature)
	switch {
	case err == nil:
		metrics.ConfirmationSeconds.Observe(time.Since(confirmStart).Seconds())

	case errors.Is(err, solana.ErrTransactionFailed):
		// On-chain failure is final: the swap did not execute, refund the
		// reservation.
		e.release(amount)
		return e.failStep(cascadeID, &step, fmt.Sprintf("on-chain execution failed: %v", err)), 0

	default:
		// Timeout or cancellation mid-wait: the transaction is submitted but
		// its outcome is unknown. Keep the reservation (over-counting is the
		// safe direction) and flag for manual reconciliation. Never resubmit.
		step.NeedsReconciliation = true
		step.State = StateUnconfirmed
		step.Error = fmt.Sprintf("submitted but unconfirmed, needs manual reconciliation (signature %s): %v", signature, err)
		metrics.HopsTotal.WithLabelValues("unconfirmed").Inc()
		e.log.Warn("hop %d pair %s: %s", stepNumber, pair.ID, step.Error)
		e.publishStep(cascadeID, &step)
		return step, 0
	}

	step.State = StateConfirmed
	step.Success = true
	step.Signature = signature
	step.Details = &StepDetails{
		InLamports:     quote.InAmount,
		OutLamports:    quote.OutAmount,
		PriceImpactPct: quote.PriceImpactPct,
		ExecutedAt:     time.Now(),
	}
	metrics.HopsTotal.WithLabelValues("confirmed").Inc()
	e.publishStep(cascadeID, &step)

	e.journalTrade(ctx, cascadeID, pair, quote, signature)

	return step, quote.OutAmount
}

// failStep marks a step failed with a reason and publishes the transition.
func (e *Engine) failStep(cascadeID string, step *Step, reason string) Step {
	step.State = StateFailed
	step.Success = false
	step.Error = reason
	metrics.HopsTotal.WithLabelValues("failed").Inc()
	e.log.Warn("hop %d pair %s failed: %s", step.StepNumber, step.PairID, reason)
	e.publishStep(cascadeID, step)
	return *step
}

// advance moves a step to the next state and publishes the transition. The
// engine only walks edges in the transition table; an invalid edge is a
// programming error surfaced loudly in logs.
func (e *Engine) advance(cascadeID string, step *Step, to StepState) {
	if !CanTransition(step.State, to) {
		e.log.Error("invalid step transition %s -> %s (pair %s)", step.State, to, step.PairID)
	}
	step.State = to
	e.publishStep(cascadeID, step)
}

// release refunds reserved risk capacity for a hop that did not execute.
func (e *Engine) release(amount uint64) {
	e.risk.Release(amount)
	e.observeDailyVolume()
}

func (e *Engine) observeDailyVolume() {
	metrics.DailyVolumeLamports.Set(float64(e.risk.GetDailyVolume()))
}

// journalTrade persists a confirmed hop. Journal errors are logged only: the
// on-chain swap already happened and must not be reported as a hop failure,
// even though the journal then under-counts real activity.
func (e *Engine) journalTrade(ctx context.Context, cascadeID string, pair types.TradingPair, quote *jupiter.Quote, signature string) {
	if e.journal == nil {
		return
	}
	record := types.TradeRecord{
		ID:             uuid.NewString(),
		CascadeID:      cascadeID,
		PairID:         pair.ID,
		Signature:      signature,
		InputMint:      quote.InputMint,
		OutputMint:     quote.OutputMint,
		InLamports:     quote.InAmount,
		OutLamports:    quote.OutAmount,
		PriceImpactPct: quote.PriceImpactPct,
		ExecutedAt:     time.Now(),
	}
	if err := e.journal.SaveTrade(ctx, record); err != nil {
		e.log.Warn("failed to journal trade %s: %v", signature, err)
	}
}

func (e *Engine) publishStep(cascadeID string, step *Step) {
	if e.events == nil {
		return
	}
	e.events.Publish(&StepEvent{
		Type:       "step_state",
		CascadeID:  cascadeID,
		PairID:     step.PairID,
		StepNumber: step.StepNumber,
		State:      step.State,
		Error:      step.Error,
		Timestamp:  time.Now(),
	})
}

func (e *Engine) publishResult(result *Result) {
	if e.events == nil {
		return
	}
	e.events.Publish(&ResultEvent{Type: "cascade_result", Result: result})
}
