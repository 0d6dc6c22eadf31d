package pairs

import (
	"errors"
	"testing"
	"time"

	"github.com/jonasrmichel/solcascade/pkg/types"
)

func testPair(id string, rank int, enabled bool) types.TradingPair {
	return types.TradingPair{
		ID:                id,
		StableMint:        "So11111111111111111111111111111111111111112",
		TargetMint:        "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		ProfitabilityRank: rank,
		Enabled:           enabled,
	}
}

func TestAddAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Add(testPair("sol-usdc", 1, true)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := r.Get("sol-usdc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ProfitabilityRank != 1 || !got.Enabled {
		t.Errorf("Get returned %+v", got)
	}
}

func TestAddValidation(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		pair types.TradingPair
	}{
		{"missing id", types.TradingPair{StableMint: "a", TargetMint: "b"}},
		{"missing stable mint", types.TradingPair{ID: "x", TargetMint: "b"}},
		{"missing target mint", types.TradingPair{ID: "x", StableMint: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Add(tt.pair); err == nil {
				t.Error("Add accepted an invalid pair")
			}
		})
	}
}

func TestAddDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Add(testPair("sol-usdc", 1, true)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := r.Add(testPair("sol-usdc", 2, false))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate Add error = %v, want ErrDuplicate", err)
	}

	// The original must be untouched.
	got, _ := r.Get("sol-usdc")
	if got.ProfitabilityRank != 1 {
		t.Errorf("duplicate Add overwrote the existing pair: %+v", got)
	}
}

func TestNotFound(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if err := r.SetRank("nope", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetRank error = %v, want ErrNotFound", err)
	}
	if err := r.SetEnabled("nope", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetEnabled error = %v, want ErrNotFound", err)
	}
	if err := r.UpdateScore("nope", 50, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateScore error = %v, want ErrNotFound", err)
	}
}

func TestRankedOrderAndFilter(t *testing.T) {
	r := NewRegistry()
	r.Add(testPair("c", 3, true))
	r.Add(testPair("a", 1, true))
	r.Add(testPair("b", 2, false))
	r.Add(testPair("d", 2, true))

	ranked := r.Ranked()
	want := []string{"a", "d", "c"}
	if len(ranked) != len(want) {
		t.Fatalf("Ranked returned %d pairs, want %d", len(ranked), len(want))
	}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Errorf("Ranked[%d].ID = %s, want %s", i, ranked[i].ID, id)
		}
	}
}

// A zero score must not drop a pair from the ranked list; the score is
// advisory only.
func TestRankedIgnoresScore(t *testing.T) {
	r := NewRegistry()
	r.Add(testPair("a", 1, true))
	r.Add(testPair("b", 2, true))
	r.UpdateScore("a", 0, time.Now())
	r.UpdateScore("b", 99, time.Now())

	ranked := r.Ranked()
	if len(ranked) != 2 || ranked[0].ID != "a" {
		t.Errorf("Ranked = %+v, want pair a first despite its zero score", ranked)
	}
}

func TestSetEnabledAndRank(t *testing.T) {
	r := NewRegistry()
	r.Add(testPair("a", 5, true))

	if err := r.SetEnabled("a", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if got := r.Ranked(); len(got) != 0 {
		t.Errorf("disabled pair still ranked: %+v", got)
	}

	if err := r.SetRank("a", 1); err != nil {
		t.Fatalf("SetRank: %v", err)
	}
	got, _ := r.Get("a")
	if got.ProfitabilityRank != 1 {
		t.Errorf("rank = %d, want 1", got.ProfitabilityRank)
	}
}

// Accessors return copies: mutating a returned pair must not leak into the
// registry.
func TestAccessorsReturnCopies(t *testing.T) {
	r := NewRegistry()
	r.Add(testPair("a", 1, true))

	got, _ := r.Get("a")
	got.ProfitabilityRank = 99

	fresh, _ := r.Get("a")
	if fresh.ProfitabilityRank != 1 {
		t.Errorf("mutation of a returned copy leaked into the registry")
	}

	all := r.All()
	all[0].Enabled = false
	fresh, _ = r.Get("a")
	if !fresh.Enabled {
		t.Errorf("mutation of All() output leaked into the registry")
	}
}
