package valueobject

import "fmt"

// LoanState represents the lifecycle stage of a loan request.
type LoanState struct {
	value string
}

const (
	loanStateRequested        = "REQUESTED"
	loanStatePendingGuarantor = "PENDING_GUARANTOR_SIGNATURE"
	loanStateLiquidityQueue   = "LIQUIDITY_QUEUE"
	loanStatePendingTreasury  = "PENDING_TREASURY"
	loanStateActive           = "ACTIVE"
	loanStatePaid             = "PAID"
	loanStateDelinquent       = "DELINQUENT"
	loanStateRejected         = "REJECTED"
)

var (
	LoanStateRequested        = LoanState{value: loanStateRequested}
	LoanStatePendingGuarantor = LoanState{value: loanStatePendingGuarantor}
	LoanStateLiquidityQueue   = LoanState{value: loanStateLiquidityQueue}
	LoanStatePendingTreasury  = LoanState{value: loanStatePendingTreasury}
	LoanStateActive           = LoanState{value: loanStateActive}
	LoanStatePaid             = LoanState{value: loanStatePaid}
	LoanStateDelinquent       = LoanState{value: loanStateDelinquent}
	LoanStateRejected         = LoanState{value: loanStateRejected}
)

var validLoanStates = map[string]LoanState{
	loanStateRequested:        LoanStateRequested,
	loanStatePendingGuarantor: LoanStatePendingGuarantor,
	loanStateLiquidityQueue:   LoanStateLiquidityQueue,
	loanStatePendingTreasury:  LoanStatePendingTreasury,
	loanStateActive:           LoanStateActive,
	loanStatePaid:             LoanStatePaid,
	loanStateDelinquent:       LoanStateDelinquent,
	loanStateRejected:         LoanStateRejected,
}

// loanTransitions is the complete set of legal moves. PAID and REJECTED are terminal.
var loanTransitions = map[string][]string{
	loanStateRequested:        {loanStatePendingGuarantor, loanStateRejected},
	loanStatePendingGuarantor: {loanStateLiquidityQueue, loanStatePendingTreasury, loanStateRejected},
	loanStateLiquidityQueue:   {loanStatePendingTreasury, loanStateRejected},
	loanStatePendingTreasury:  {loanStateActive, loanStateRejected},
	loanStateActive:           {loanStatePaid, loanStateDelinquent},
	loanStateDelinquent:       {loanStateActive, loanStatePaid},
}

// NewLoanState creates a LoanState from a raw string.
func NewLoanState(s string) (LoanState, error) {
	v, ok := validLoanStates[s]
	if !ok {
		return LoanState{}, fmt.Errorf("invalid loan state: %q", s)
	}
	return v, nil
}

func (s LoanState) String() string { return s.value }

func (s LoanState) IsZero() bool { return s.value == "" }

func (s LoanState) Equal(other LoanState) bool { return s.value == other.value }

// CanTransitionTo reports whether next is a legal successor of s.
func (s LoanState) CanTransitionTo(next LoanState) bool {
	for _, allowed := range loanTransitions[s.value] {
		if allowed == next.value {
			return true
		}
	}
	return false
}

// IsTerminal returns true for states with no successors.
func (s LoanState) IsTerminal() bool {
	return len(loanTransitions[s.value]) == 0
}

// IsInFlight returns true while the request has not yet been disbursed or rejected.
func (s LoanState) IsInFlight() bool {
	switch s.value {
	case loanStateRequested, loanStatePendingGuarantor, loanStateLiquidityQueue, loanStatePendingTreasury:
		return true
	}
	return false
}

// IsOutstanding returns true when the loan still carries a balance the member owes.
func (s LoanState) IsOutstanding() bool {
	return s.value == loanStateActive || s.value == loanStateDelinquent
}

// DisbursedStates are the states whose approved principal has left the fund's cash.
func DisbursedStates() []LoanState {
	return []LoanState{LoanStateActive, LoanStatePaid, LoanStateDelinquent}
}

// InFlightStates are the states of a request that is neither disbursed nor rejected.
func InFlightStates() []LoanState {
	return []LoanState{LoanStateRequested, LoanStatePendingGuarantor, LoanStateLiquidityQueue, LoanStatePendingTreasury}
}
