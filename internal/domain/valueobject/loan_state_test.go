package valueobject_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fund/internal/domain/valueobject"
)

func TestNewLoanState_RoundTrip(t *testing.T) {
	for _, s := range []string{
		"REQUESTED", "PENDING_GUARANTOR_SIGNATURE", "LIQUIDITY_QUEUE", "PENDING_TREASURY",
		"ACTIVE", "PAID", "DELINQUENT", "REJECTED",
	} {
		t.Run(s, func(t *testing.T) {
			st, err := valueobject.NewLoanState(s)
			require.NoError(t, err)
			assert.Equal(t, s, st.String())
			assert.False(t, st.IsZero())
		})
	}

	_, err := valueobject.NewLoanState("active")
	assert.ErrorContains(t, err, "invalid loan state")
}

func TestLoanState_TransitionTable(t *testing.T) {
	tests := []struct {
		from, to valueobject.LoanState
		allowed  bool
	}{
		{valueobject.LoanStateRequested, valueobject.LoanStatePendingGuarantor, true},
		{valueobject.LoanStateRequested, valueobject.LoanStateActive, false},
		{valueobject.LoanStatePendingGuarantor, valueobject.LoanStateLiquidityQueue, true},
		{valueobject.LoanStatePendingGuarantor, valueobject.LoanStatePendingTreasury, true},
		{valueobject.LoanStateLiquidityQueue, valueobject.LoanStatePendingTreasury, true},
		{valueobject.LoanStateLiquidityQueue, valueobject.LoanStateActive, false},
		{valueobject.LoanStatePendingTreasury, valueobject.LoanStateActive, true},
		{valueobject.LoanStateActive, valueobject.LoanStatePaid, true},
		{valueobject.LoanStateActive, valueobject.LoanStateDelinquent, true},
		{valueobject.LoanStateActive, valueobject.LoanStateRejected, false},
		{valueobject.LoanStateDelinquent, valueobject.LoanStateActive, true},
		{valueobject.LoanStateDelinquent, valueobject.LoanStatePaid, true},
		{valueobject.LoanStatePaid, valueobject.LoanStateActive, false},
		{valueobject.LoanStateRejected, valueobject.LoanStateRequested, false},
	}

	for _, tc := range tests {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestLoanState_Classification(t *testing.T) {
	assert.True(t, valueobject.LoanStatePaid.IsTerminal())
	assert.True(t, valueobject.LoanStateRejected.IsTerminal())
	assert.False(t, valueobject.LoanStateDelinquent.IsTerminal())

	for _, s := range valueobject.InFlightStates() {
		assert.True(t, s.IsInFlight(), s.String())
		assert.False(t, s.IsOutstanding(), s.String())
	}
	assert.True(t, valueobject.LoanStateActive.IsOutstanding())
	assert.True(t, valueobject.LoanStateDelinquent.IsOutstanding())
	assert.False(t, valueobject.LoanStatePaid.IsOutstanding())
	assert.Len(t, valueobject.DisbursedStates(), 3)
}

func TestLoanType(t *testing.T) {
	express, err := valueobject.NewLoanType("EXPRESS")
	require.NoError(t, err)
	assert.True(t, express.IsExpress())
	assert.Equal(t, 1, express.FirstDueOffsetMonths())
	assert.Equal(t, 2, valueobject.LoanTypeStandard.FirstDueOffsetMonths())

	_, err = valueobject.NewLoanType("PAYDAY")
	assert.Error(t, err)
}
