package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jonasrmichel/solcascade/pkg/jupiter"
	"github.com/jonasrmichel/solcascade/pkg/logger"
	"github.com/jonasrmichel/solcascade/pkg/pairs"
	"github.com/jonasrmichel/solcascade/pkg/ranking"
	"github.com/jonasrmichel/solcascade/pkg/risk"
	"github.com/jonasrmichel/solcascade/pkg/solana"
	"github.com/jonasrmichel/solcascade/pkg/types"
)

const (
	sol      = 1_000_000_000
	homeMint = "HomeMint1111111111111111111111111111111111"
)

// fakeGateway serves quotes and swap builds from canned per-mint behavior.
type fakeGateway struct {
	impact   map[string]float64 // Price impact by output mint
	outDelta int64              // Out amount = in amount + outDelta
	quoteErr map[string]error   // Quote failure by output mint
	buildErr error

	quoteCalls []*jupiter.QuoteParams
}

func (f *fakeGateway) GetQuote(ctx context.Context, params *jupiter.QuoteParams) (*jupiter.Quote, error) {
	f.quoteCalls = append(f.quoteCalls, params)
	if err := f.quoteErr[params.OutputMint]; err != nil {
		return nil, err
	}
	return &jupiter.Quote{
		InputMint:      params.InputMint,
		OutputMint:     params.OutputMint,
		InAmount:       params.Amount,
		OutAmount:      uint64(int64(params.Amount) + f.outDelta),
		PriceImpactPct: f.impact[params.OutputMint],
		SlippageBps:    params.SlippageBps,
	}, nil
}

func (f *fakeGateway) BuildSwapTransaction(ctx context.Context, quote *jupiter.Quote, userPublicKey string, wrapSol bool) (*jupiter.SwapTransaction, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &jupiter.SwapTransaction{Payload: "dGVzdA==", LastValidBlockHeight: 1000}, nil
}

// fakeLedger submits transactions against an in-memory wallet.
type fakeLedger struct {
	balance    uint64
	balanceErr error
	sendErr    error
	confirmErr error
	submitted  int
}

func (f *fakeLedger) WalletAddress() string { return "FakeWa11et1111111111111111111111111111111111" }

func (f *fakeLedger) Balance(ctx context.Context) (uint64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeLedger) SignAndSend(ctx context.Context, txBase64 string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.submitted++
	return fmt.Sprintf("sig-%d", f.submitted), nil
}

func (f *fakeLedger) WaitForConfirmation(ctx context.Context, signature string) error {
	return f.confirmErr
}

// fakeJournal records saved trades.
type fakeJournal struct {
	records []types.TradeRecord
	err     error
}

func (f *fakeJournal) SaveTrade(ctx context.Context, record types.TradeRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

// fakeSink collects published events.
type fakeSink struct {
	events []interface{}
}

func (f *fakeSink) Publish(event interface{}) { f.events = append(f.events, event) }

type testHarness struct {
	engine   *Engine
	registry *pairs.Registry
	risk     *risk.Manager
	gateway  *fakeGateway
	ledger   *fakeLedger
}

func newHarness() *testHarness {
	registry := pairs.NewRegistry()
	gateway := &fakeGateway{
		impact:   make(map[string]float64),
		quoteErr: make(map[string]error),
		outDelta: 1000,
	}
	ledger := &fakeLedger{balance: 100 * sol}
	riskMgr := risk.NewManager(risk.Limits{
		MaxTradeLamports: 50 * sol,
		MaxDailyLamports: 500 * sol,
	})
	log := logger.New("error")
	ranker := ranking.NewRanker(registry, gateway, log)
	engine := NewEngine(ranker, riskMgr, gateway, ledger, homeMint, log)
	return &testHarness{engine: engine, registry: registry, risk: riskMgr, gateway: gateway, ledger: ledger}
}

// addPair registers an enabled pair whose target is the home mint unless
// another target is given.
func (h *testHarness) addPair(t *testing.T, id string, rank int, target string) {
	t.Helper()
	if target == "" {
		target = homeMint
	}
	err := h.registry.Add(types.TradingPair{
		ID:                id,
		StableMint:        homeMint,
		TargetMint:        target,
		ProfitabilityRank: rank,
		Enabled:           true,
	})
	if err != nil {
		t.Fatalf("Add(%s): %v", id, err)
	}
}

func TestCascadeTwoHopPropagation(t *testing.T) {
	h := newHarness()
	h.addPair(t, "hop1", 1, "")
	h.addPair(t, "hop2", 2, "")

	result := h.engine.ExecuteCascade(context.Background(), &Request{InitialLamports: 1 * sol})

	if !result.Success {
		t.Fatalf("cascade failed: %s", result.ErrorMessage)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(result.Steps))
	}
	for i, step := range result.Steps {
		if step.State != StateConfirmed || !step.Success {
			t.Errorf("step %d: state=%s success=%v", i+1, step.State, step.Success)
		}
		if step.Signature == "" {
			t.Errorf("step %d: missing signature", i+1)
		}
	}

	// Each hop returns to the home asset, so hop 2 trades hop 1's output.
	if got := h.gateway.quoteCalls[1].Amount; got != 1*sol+1000 {
		t.Errorf("hop 2 input = %d, want %d", got, uint64(1*sol+1000))
	}
	if result.FinalLamports != 1*sol+2000 {
		t.Errorf("FinalLamports = %d, want %d", result.FinalLamports, uint64(1*sol+2000))
	}
	if result.ProfitLamports != 2000 {
		t.Errorf("ProfitLamports = %d, want 2000", result.ProfitLamports)
	}
}

func TestCascadeStopOnFailure(t *testing.T) {
	h := newHarness()
	h.addPair(t, "bad", 1, "illiquid")
	h.addPair(t, "good", 2, "")
	h.gateway.quoteErr["illiquid"] = errors.New("no route")

	result := h.engine.ExecuteCascade(context.Background(), &Request{
		InitialLamports: 1 * sol,
		StopOnFailure:   true,
	})

	if result.Success {
		t.Error("cascade reported success after stopping on a failed hop")
	}
	if len(result.Steps) != 1 {
		t.Fatalf("got %d steps, want 1", len(result.Steps))
	}
	if !strings.Contains(result.ErrorMessage, "step 1") {
		t.Errorf("ErrorMessage = %q, want a reference to step 1", result.ErrorMessage)
	}
	if result.FinalLamports != 1*sol {
		t.Errorf("FinalLamports = %d, want the untouched initial amount", result.FinalLamports)
	}
}

func TestCascadeContinueOnFailure(t *testing.T) {
	h := newHarness()
	h.addPair(t, "bad", 1, "illiquid")
	h.addPair(t, "good", 2, "")
	h.gateway.quoteErr["illiquid"] = errors.New("no route")

	result := h.engine.ExecuteCascade(context.Background(), &Request{
		InitialLamports: 1 * sol,
		StopOnFailure:   false,
	})

	// A failed hop consumed no funds and the cascade itself still succeeds.
	if !result.Success {
		t.Errorf("cascade failed: %s", result.ErrorMessage)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(result.Steps))
	}
	if result.Steps[0].Success || result.Steps[0].State != StateFailed {
		t.Errorf("step 1 = %+v, want failed", result.Steps[0])
	}
	if !result.Steps[1].Success {
		t.Errorf("step 2 failed: %s", result.Steps[1].Error)
	}

	// The second hop sees the original amount, not the failed hop's.
	if got := h.gateway.quoteCalls[1].Amount; got != 1*sol {
		t.Errorf("hop 2 input = %d, want the carried-forward %d", got, uint64(1*sol))
	}
}

func TestCascadePriceImpactCeiling(t *testing.T) {
	h := newHarness()
	h.addPair(t, "thin", 1, "thinMint")
	h.gateway.impact["thinMint"] = 1.5

	result := h.engine.ExecuteCascade(context.Background(), &Request{
		InitialLamports: 1 * sol,
		StopOnFailure:   true,
	})

	if result.Success {
		t.Error("cascade succeeded through a hop above the price-impact ceiling")
	}
	step := result.Steps[0]
	if step.State != StateFailed {
		t.Errorf("step state = %s, want FAILED", step.State)
	}
	if !strings.Contains(step.Error, "price impact") {
		t.Errorf("step error = %q, want a price impact reason", step.Error)
	}
	// Nothing was submitted and the reservation was handed back.
	if h.ledger.submitted != 0 {
		t.Errorf("submitted %d transactions, want 0", h.ledger.submitted)
	}
	if got := h.risk.GetDailyVolume(); got != 0 {
		t.Errorf("daily volume = %d after a rejected hop, want 0", got)
	}
}

// Exactly at the ceiling is allowed; the gate is strictly greater-than.
func TestCascadePriceImpactAtCeiling(t *testing.T) {
	h := newHarness()
	h.addPair(t, "edge", 1, "edgeMint")
	h.gateway.impact["edgeMint"] = 1.0

	result := h.engine.ExecuteCascade(context.Background(), &Request{InitialLamports: 1 * sol})
	if !result.Success {
		t.Errorf("cascade failed at exactly 1.0%% impact: %s", result.ErrorMessage)
	}
}

func TestCascadeNoPairs(t *testing.T) {
	h := newHarness()

	result := h.engine.ExecuteCascade(context.Background(), &Request{InitialLamports: 1 * sol})

	if result.Success {
		t.Error("cascade succeeded with no enabled pairs")
	}
	if result.ErrorMessage != errNoPairs {
		t.Errorf("ErrorMessage = %q, want %q", result.ErrorMessage, errNoPairs)
	}
	if len(result.Steps) != 0 {
		t.Errorf("got %d steps, want 0", len(result.Steps))
	}
	if result.FinalLamports != 1*sol {
		t.Errorf("FinalLamports = %d, want the initial amount", result.FinalLamports)
	}
}

func TestCascadeRiskRejection(t *testing.T) {
	h := newHarness()
	h.addPair(t, "big", 1, "")

	// Above the per-trade ceiling of 50 SOL.
	result := h.engine.ExecuteCascade(context.Background(), &Request{
		InitialLamports: 60 * sol,
		StopOnFailure:   true,
	})

	step := result.Steps[0]
	if step.Success {
		t.Error("hop passed above the per-trade limit")
	}
	if !strings.Contains(step.Error, "per-trade limit") {
		t.Errorf("step error = %q, want a per-trade limit violation", step.Error)
	}
	// The risk gate sits before the quote.
	if len(h.gateway.quoteCalls) != 0 {
		t.Errorf("quote requested for a risk-rejected hop")
	}
}

func TestCascadeBalanceGate(t *testing.T) {
	h := newHarness()
	h.ledger.balance = 1 * sol / 2
	h.registry.Add(types.TradingPair{
		ID:         "guarded",
		StableMint: homeMint,
		TargetMint: homeMint,
		Enabled:    true,
		Risk:       types.PairRiskConfig{MinWalletLamports: 1 * sol},
	})

	result := h.engine.ExecuteCascade(context.Background(), &Request{
		InitialLamports: 1 * sol / 10,
		StopOnFailure:   true,
	})

	step := result.Steps[0]
	if step.Success {
		t.Error("hop passed below the pair's wallet minimum")
	}
	if !strings.Contains(step.Error, "wallet balance") {
		t.Errorf("step error = %q, want a wallet balance reason", step.Error)
	}
	if got := h.risk.GetDailyVolume(); got != 0 {
		t.Errorf("daily volume = %d, want 0: the balance gate sits before the reservation", got)
	}
}

func TestCascadeUnconfirmedKeepsReservation(t *testing.T) {
	h := newHarness()
	h.addPair(t, "slow", 1, "")
	h.ledger.confirmErr = fmt.Errorf("confirm: %w", solana.ErrConfirmationTimeout)

	result := h.engine.ExecuteCascade(context.Background(), &Request{
		InitialLamports: 1 * sol,
		StopOnFailure:   true,
	})

	step := result.Steps[0]
	if step.State != StateUnconfirmed {
		t.Errorf("step state = %s, want UNCONFIRMED", step.State)
	}
	if !step.NeedsReconciliation {
		t.Error("unconfirmed step not flagged for reconciliation")
	}
	if step.Success {
		t.Error("unconfirmed step reported success")
	}
	// The transaction may have landed; the reservation must stay.
	if got := h.risk.GetDailyVolume(); got != 1*sol {
		t.Errorf("daily volume = %d after an unconfirmed hop, want %d", got, uint64(1*sol))
	}
}

func TestCascadeOnChainFailureReleasesReservation(t *testing.T) {
	h := newHarness()
	h.addPair(t, "reverts", 1, "")
	h.ledger.confirmErr = fmt.Errorf("confirm: %w", solana.ErrTransactionFailed)

	result := h.engine.ExecuteCascade(context.Background(), &Request{
		InitialLamports: 1 * sol,
		StopOnFailure:   true,
	})

	step := result.Steps[0]
	if step.State != StateFailed {
		t.Errorf("step state = %s, want FAILED", step.State)
	}
	if step.NeedsReconciliation {
		t.Error("on-chain failure flagged for reconciliation; it is final")
	}
	// The swap did not execute, so the capacity comes back.
	if got := h.risk.GetDailyVolume(); got != 0 {
		t.Errorf("daily volume = %d after an on-chain failure, want 0", got)
	}
}

func TestCascadeNonHomeTargetDoesNotPropagate(t *testing.T) {
	h := newHarness()
	h.addPair(t, "oneway", 1, "otherMint")
	h.addPair(t, "home", 2, "")

	result := h.engine.ExecuteCascade(context.Background(), &Request{InitialLamports: 1 * sol})

	if !result.Success {
		t.Fatalf("cascade failed: %s", result.ErrorMessage)
	}
	// Hop 1 did not return to the home asset, so hop 2 trades the initial
	// amount, not hop 1's output.
	if got := h.gateway.quoteCalls[1].Amount; got != 1*sol {
		t.Errorf("hop 2 input = %d, want %d", got, uint64(1*sol))
	}
}

func TestCascadeMaxDepth(t *testing.T) {
	h := newHarness()
	h.addPair(t, "a", 1, "")
	h.addPair(t, "b", 2, "")
	h.addPair(t, "c", 3, "")

	result := h.engine.ExecuteCascade(context.Background(), &Request{
		InitialLamports: 1 * sol,
		MaxDepth:        2,
	})

	if len(result.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(result.Steps))
	}
	if result.Steps[0].PairID != "a" || result.Steps[1].PairID != "b" {
		t.Errorf("steps ran %s, %s; want the two best-ranked pairs", result.Steps[0].PairID, result.Steps[1].PairID)
	}
}

func TestCascadePairFilter(t *testing.T) {
	h := newHarness()
	h.addPair(t, "a", 1, "")
	h.addPair(t, "b", 2, "")
	h.addPair(t, "c", 3, "")

	result := h.engine.ExecuteCascade(context.Background(), &Request{
		InitialLamports: 1 * sol,
		PairIDs:         []string{"c", "a"},
	})

	if len(result.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(result.Steps))
	}
	// Rank order wins over request order.
	if result.Steps[0].PairID != "a" || result.Steps[1].PairID != "c" {
		t.Errorf("steps ran %s, %s; want a then c", result.Steps[0].PairID, result.Steps[1].PairID)
	}
}

func TestCascadeCanceledContext(t *testing.T) {
	h := newHarness()
	h.addPair(t, "a", 1, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := h.engine.ExecuteCascade(ctx, &Request{InitialLamports: 1 * sol})
	if result.Success {
		t.Error("cascade reported success on a canceled context")
	}
	if !strings.Contains(result.ErrorMessage, "canceled") {
		t.Errorf("ErrorMessage = %q, want a cancellation reason", result.ErrorMessage)
	}
}

func TestExecuteTrade(t *testing.T) {
	h := newHarness()
	h.addPair(t, "solo", 1, "")

	step, err := h.engine.ExecuteTrade(context.Background(), "solo", 1*sol)
	if err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}
	if !step.Success || step.State != StateConfirmed {
		t.Errorf("step = %+v, want confirmed", step)
	}
}

func TestExecuteTradeUnknownPair(t *testing.T) {
	h := newHarness()

	if _, err := h.engine.ExecuteTrade(context.Background(), "ghost", 1*sol); err == nil {
		t.Error("ExecuteTrade accepted an unknown pair id")
	}
}

func TestJournalRecordsConfirmedTrades(t *testing.T) {
	h := newHarness()
	h.addPair(t, "hop", 1, "")
	journal := &fakeJournal{}
	h.engine.SetJournal(journal)

	result := h.engine.ExecuteCascade(context.Background(), &Request{InitialLamports: 1 * sol})
	if !result.Success {
		t.Fatalf("cascade failed: %s", result.ErrorMessage)
	}
	if len(journal.records) != 1 {
		t.Fatalf("journaled %d trades, want 1", len(journal.records))
	}
	record := journal.records[0]
	if record.CascadeID != result.ID {
		t.Errorf("record cascade id = %s, want %s", record.CascadeID, result.ID)
	}
	if record.PairID != "hop" || record.Signature == "" {
		t.Errorf("record = %+v", record)
	}
}

// A broken journal must never turn a confirmed hop into a failure.
func TestJournalErrorDoesNotFailHop(t *testing.T) {
	h := newHarness()
	h.addPair(t, "hop", 1, "")
	h.engine.SetJournal(&fakeJournal{err: errors.New("db down")})

	result := h.engine.ExecuteCascade(context.Background(), &Request{InitialLamports: 1 * sol})
	if !result.Success || !result.Steps[0].Success {
		t.Errorf("journal error failed the hop: %+v", result)
	}
}

func TestEventsPublished(t *testing.T) {
	h := newHarness()
	h.addPair(t, "hop", 1, "")
	sink := &fakeSink{}
	h.engine.SetEvents(sink)

	h.engine.ExecuteCascade(context.Background(), &Request{InitialLamports: 1 * sol})

	var steps, results int
	var sawConfirmed bool
	for _, event := range sink.events {
		switch e := event.(type) {
		case *StepEvent:
			steps++
			if e.State == StateConfirmed {
				sawConfirmed = true
			}
		case *ResultEvent:
			results++
		}
	}
	if steps == 0 || !sawConfirmed {
		t.Errorf("got %d step events (confirmed seen: %v), want state transitions through CONFIRMED", steps, sawConfirmed)
	}
	if results != 1 {
		t.Errorf("got %d result events, want 1", results)
	}
}
