package cascade

// StepState is the lifecycle state of a single cascade hop.
type StepState string

const (
	StatePending          StepState = "PENDING"
	StateBalanceVerified  StepState = "BALANCE_VERIFIED"
	StateRiskApproved     StepState = "RISK_APPROVED"
	StateQuoted           StepState = "QUOTED"
	StateTransactionBuilt StepState = "TRANSACTION_BUILT"
	StateSubmitted        StepState = "SUBMITTED"

	// StateConfirmed is the terminal success state.
	StateConfirmed StepState = "CONFIRMED"

	// StateFailed is terminal and reachable from any non-terminal state.
	StateFailed StepState = "FAILED"

	// StateUnconfirmed is terminal: the transaction was submitted but not
	// confirmed within the poll budget. The outcome on-chain is unknown, so
	// the hop is treated as failed for cascade purposes but flagged for
	// manual reconciliation; it is never resubmitted.
	StateUnconfirmed StepState = "UNCONFIRMED"
)

// validTransitions defines the allowed state machine edges for a hop.
var validTransitions = map[StepState][]StepState{
	StatePending:          {StateBalanceVerified, StateFailed},
	StateBalanceVerified:  {StateRiskApproved, StateFailed},
	StateRiskApproved:     {StateQuoted, StateFailed},
	StateQuoted:           {StateTransactionBuilt, StateFailed},
	StateTransactionBuilt: {StateSubmitted, StateFailed},
	StateSubmitted:        {StateConfirmed, StateFailed, StateUnconfirmed},
}

// CanTransition reports whether moving from one state to another is allowed.
func CanTransition(from, to StepState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a state ends the hop.
func IsTerminal(s StepState) bool {
	return s == StateConfirmed || s == StateFailed || s == StateUnconfirmed
}
