// Package risk enforces per-trade and per-day notional ceilings. The Manager
// is the single owner of the rolling daily counter; no other component
// mutates it.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonasrmichel/solcascade/pkg/solana"
)

// Limits holds the global risk limits in lamports.
type Limits struct {
	MaxTradeLamports uint64 // Per-trade notional ceiling
	MaxDailyLamports uint64 // Rolling daily notional ceiling
	MinTradeLamports uint64 // Minimum trade size
}

// CheckResult reports the outcome of a risk check. All violated limits are
// reported together so a caller sees every reason a trade is rejected.
type CheckResult struct {
	Passed                 bool     `json:"passed"`
	Violations             []string `json:"violations,omitempty"`
	CurrentDailyVolume     uint64   `json:"current_daily_volume"`
	RemainingDailyCapacity uint64   `json:"remaining_daily_capacity"`
}

// Manager tracks the rolling daily notional counter. The counter rolls over
// lazily: every access first compares the wall-clock date to the stored day
// and zeroes the accumulator when the date has advanced, so no background
// timer is needed and the counter is never stale when inspected.
type Manager struct {
	mu          sync.Mutex
	limits      Limits
	day         time.Time // Midnight of the day the counter covers
	accumulated uint64
	tradeCount  int

	now func() time.Time // Injected clock for tests
}

// NewManager creates a risk manager with the given global limits.
func NewManager(limits Limits) *Manager {
	return &Manager{
		limits: limits,
		now:    time.Now,
	}
}

// rollOverLocked zeroes the counter and trade log if the wall-clock date has
// advanced past the stored day. Caller must hold mu.
func (m *Manager) rollOverLocked() {
	today := dateOf(m.now())
	if !today.Equal(m.day) {
		m.day = today
		m.accumulated = 0
		m.tradeCount = 0
	}
}

// evaluateLocked runs the three independent checks without short-circuiting.
// Caller must hold mu and have rolled the counter over.
func (m *Manager) evaluateLocked(notional, maxTrade uint64) *CheckResult {
	result := &CheckResult{
		Passed:             true,
		CurrentDailyVolume: m.accumulated,
	}
	if m.limits.MaxDailyLamports > m.accumulated {
		result.RemainingDailyCapacity = m.limits.MaxDailyLamports - m.accumulated
	}

	if notional < m.limits.MinTradeLamports {
		result.Passed = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("trade size %s SOL below minimum %s SOL",
				solana.FormatSOL(notional), solana.FormatSOL(m.limits.MinTradeLamports)))
	}
	if notional > maxTrade {
		result.Passed = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("trade size %s SOL exceeds per-trade limit %s SOL",
				solana.FormatSOL(notional), solana.FormatSOL(maxTrade)))
	}
	if m.accumulated+notional > m.limits.MaxDailyLamports {
		result.Passed = false
		result.Violations = append(result.Violations,
			fmt.Sprintf("daily volume %s SOL plus trade %s SOL exceeds daily limit %s SOL",
				solana.FormatSOL(m.accumulated), solana.FormatSOL(notional),
				solana.FormatSOL(m.limits.MaxDailyLamports)))
	}

	return result
}

// CheckTradeRisk evaluates a notional against the limits without reserving
// capacity. Read-only: two concurrent callers can both pass; execution paths
// must use Reserve instead.
func (m *Manager) CheckTradeRisk(notional uint64) *CheckResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollOverLocked()
	return m.evaluateLocked(notional, m.limits.MaxTradeLamports)
}

// Reserve atomically checks the notional and, if every check passes, commits
// it to the daily counter in the same critical section. This closes the
// window where two concurrent callers both observe free capacity and both
// proceed past the daily ceiling.
//
// maxTradeOverride replaces the global per-trade ceiling when non-zero
// (per-pair risk config). A failed execution must hand the capacity back via
// Release.
func (m *Manager) Reserve(notional, maxTradeOverride uint64) *CheckResult {
	maxTrade := m.limits.MaxTradeLamports
	if maxTradeOverride > 0 {
		maxTrade = maxTradeOverride
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollOverLocked()

	result := m.evaluateLocked(notional, maxTrade)
	if !result.Passed {
		return result
	}

	m.accumulated += notional
	m.tradeCount++
	result.CurrentDailyVolume = m.accumulated
	result.RemainingDailyCapacity = 0
	if m.limits.MaxDailyLamports > m.accumulated {
		result.RemainingDailyCapacity = m.limits.MaxDailyLamports - m.accumulated
	}
	return result
}

// Release refunds a reservation whose execution did not happen. Never call it
// for a confirmed trade, and never for a submitted-but-unconfirmed one: funds
// may have moved, and over-counting is the safe direction.
func (m *Manager) Release(notional uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollOverLocked()

	if notional > m.accumulated {
		m.accumulated = 0
	} else {
		m.accumulated -= notional
	}
	if m.tradeCount > 0 {
		m.tradeCount--
	}
}

// RecordTrade adds a notional to the accumulated daily volume. Only for
// trades executed outside the Reserve path; a reserved trade is already
// counted.
func (m *Manager) RecordTrade(notional uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollOverLocked()

	m.accumulated += notional
	m.tradeCount++
}

// GetDailyVolume returns the accumulated notional for the current day.
func (m *Manager) GetDailyVolume() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollOverLocked()
	return m.accumulated
}

// TradesToday returns the number of trades counted for the current day.
func (m *Manager) TradesToday() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollOverLocked()
	return m.tradeCount
}

// Limits returns the configured global limits.
func (m *Manager) Limits() Limits {
	return m.limits
}

// ResetDailyCounters zeroes the daily counter and trade log immediately.
func (m *Manager) ResetDailyCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.day = dateOf(m.now())
	m.accumulated = 0
	m.tradeCount = 0
}

// dateOf truncates a time to its calendar date.
func dateOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
