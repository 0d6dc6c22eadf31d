package risk

import (
	"strings"
	"sync"
	"testing"
	"time"
)

const sol = 1_000_000_000

func newTestManager(limits Limits) (*Manager, *time.Time) {
	m := NewManager(limits)
	clock := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestCheckTradeRisk(t *testing.T) {
	limits := Limits{
		MaxTradeLamports: 5 * sol,
		MaxDailyLamports: 50 * sol,
		MinTradeLamports: 1 * sol / 100, // 0.01 SOL
	}

	tests := []struct {
		name        string
		accumulated uint64
		notional    uint64
		wantPassed  bool
		wantReasons int
	}{
		{"within all limits", 0, 1 * sol, true, 0},
		{"exactly at per-trade limit", 0, 5 * sol, true, 0},
		{"exceeds per-trade limit", 0, 5*sol + 1, false, 1},
		{"below minimum", 0, 1 * sol / 1000, false, 1},
		{"exactly at minimum", 0, 1 * sol / 100, true, 0},
		{"fills remaining daily capacity", 47 * sol, 3 * sol, true, 0},
		{"exceeds daily limit", 48 * sol, 3 * sol, false, 1},
		{"exceeds per-trade and daily limits", 48 * sol, 6 * sol, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(limits)
			if tt.accumulated > 0 {
				m.RecordTrade(tt.accumulated)
			}

			result := m.CheckTradeRisk(tt.notional)
			if result.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v (violations: %v)", result.Passed, tt.wantPassed, result.Violations)
			}
			if len(result.Violations) != tt.wantReasons {
				t.Errorf("got %d violations, want %d: %v", len(result.Violations), tt.wantReasons, result.Violations)
			}
		})
	}
}

// The check must not mutate the counter: repeated checks and volume reads see
// the same accumulated value.
func TestCheckTradeRiskIsReadOnly(t *testing.T) {
	m, _ := newTestManager(Limits{MaxTradeLamports: 5 * sol, MaxDailyLamports: 50 * sol})
	m.RecordTrade(2 * sol)

	for i := 0; i < 3; i++ {
		m.CheckTradeRisk(1 * sol)
		if got := m.GetDailyVolume(); got != 2*sol {
			t.Fatalf("after check %d, GetDailyVolume() = %d, want %d", i, got, uint64(2*sol))
		}
	}
}

func TestDailyLimitSequentialTrades(t *testing.T) {
	// Daily cap 10, two trades of 6: the first passes, the second must not.
	m, _ := newTestManager(Limits{MaxTradeLamports: 10 * sol, MaxDailyLamports: 10 * sol})

	first := m.Reserve(6*sol, 0)
	if !first.Passed {
		t.Fatalf("first reserve rejected: %v", first.Violations)
	}
	second := m.Reserve(6*sol, 0)
	if second.Passed {
		t.Fatal("second reserve passed; 6 + 6 exceeds the daily cap of 10")
	}
	if got := m.GetDailyVolume(); got != 6*sol {
		t.Errorf("GetDailyVolume() = %d, want %d", got, uint64(6*sol))
	}
}

func TestDayRollover(t *testing.T) {
	m, clock := newTestManager(Limits{MaxTradeLamports: 10 * sol, MaxDailyLamports: 10 * sol})

	if r := m.Reserve(8*sol, 0); !r.Passed {
		t.Fatalf("reserve rejected: %v", r.Violations)
	}
	if r := m.Reserve(8*sol, 0); r.Passed {
		t.Fatal("second reserve should exceed the daily cap")
	}

	// Next calendar day: the counter resets lazily on the next access.
	*clock = clock.Add(24 * time.Hour)

	if got := m.GetDailyVolume(); got != 0 {
		t.Errorf("after rollover, GetDailyVolume() = %d, want 0", got)
	}
	if got := m.TradesToday(); got != 0 {
		t.Errorf("after rollover, TradesToday() = %d, want 0", got)
	}
	if r := m.Reserve(8*sol, 0); !r.Passed {
		t.Errorf("reserve on the new day rejected: %v", r.Violations)
	}
}

// A time jump within the same calendar day must not reset the counter.
func TestNoRolloverWithinSameDay(t *testing.T) {
	m, clock := newTestManager(Limits{MaxTradeLamports: 10 * sol, MaxDailyLamports: 10 * sol})

	m.Reserve(4*sol, 0)
	*clock = clock.Add(10 * time.Hour)

	if got := m.GetDailyVolume(); got != 4*sol {
		t.Errorf("GetDailyVolume() = %d, want %d", got, uint64(4*sol))
	}
}

func TestReserveAndRelease(t *testing.T) {
	m, _ := newTestManager(Limits{MaxTradeLamports: 10 * sol, MaxDailyLamports: 10 * sol})

	m.Reserve(6*sol, 0)
	m.Release(6 * sol)

	if got := m.GetDailyVolume(); got != 0 {
		t.Errorf("after release, GetDailyVolume() = %d, want 0", got)
	}
	if got := m.TradesToday(); got != 0 {
		t.Errorf("after release, TradesToday() = %d, want 0", got)
	}
	// Capacity handed back is usable again.
	if r := m.Reserve(10*sol, 0); !r.Passed {
		t.Errorf("reserve after release rejected: %v", r.Violations)
	}
}

func TestReservePerPairOverride(t *testing.T) {
	m, _ := newTestManager(Limits{MaxTradeLamports: 5 * sol, MaxDailyLamports: 100 * sol})

	// Override tightens the ceiling below the global one.
	if r := m.Reserve(3*sol, 2*sol); r.Passed {
		t.Error("reserve passed a tighter per-pair ceiling")
	}
	// Override loosens it.
	if r := m.Reserve(8*sol, 10*sol); !r.Passed {
		t.Errorf("reserve rejected under a looser per-pair ceiling: %v", r.Violations)
	}
	// Zero override falls back to the global ceiling.
	if r := m.Reserve(6*sol, 0); r.Passed {
		t.Error("reserve passed above the global per-trade ceiling")
	}
}

// Under concurrency the reserved total must never exceed the daily cap.
func TestReserveConcurrent(t *testing.T) {
	m, _ := newTestManager(Limits{MaxTradeLamports: 10 * sol, MaxDailyLamports: 10 * sol})

	var wg sync.WaitGroup
	var mu sync.Mutex
	passed := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r := m.Reserve(6*sol, 0); r.Passed {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if passed != 1 {
		t.Errorf("%d reservations of 6 SOL passed against a 10 SOL daily cap, want 1", passed)
	}
	if got := m.GetDailyVolume(); got != 6*sol {
		t.Errorf("GetDailyVolume() = %d, want %d", got, uint64(6*sol))
	}
}

func TestResetDailyCounters(t *testing.T) {
	m, _ := newTestManager(Limits{MaxTradeLamports: 10 * sol, MaxDailyLamports: 10 * sol})

	m.Reserve(6*sol, 0)
	m.ResetDailyCounters()

	if got := m.GetDailyVolume(); got != 0 {
		t.Errorf("after reset, GetDailyVolume() = %d, want 0", got)
	}
	if got := m.TradesToday(); got != 0 {
		t.Errorf("after reset, TradesToday() = %d, want 0", got)
	}
}

func TestViolationMessagesUseSOL(t *testing.T) {
	m, _ := newTestManager(Limits{MaxTradeLamports: 5 * sol, MaxDailyLamports: 50 * sol})

	result := m.CheckTradeRisk(6 * sol)
	if result.Passed {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(result.Violations[0], "6 SOL") || !strings.Contains(result.Violations[0], "5 SOL") {
		t.Errorf("violation message should carry both amounts in SOL: %q", result.Violations[0])
	}
}
