package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/testutil"
)

func TestBuildSchedule_StandardTwoMillion(t *testing.T) {
	schedule, summary := model.BuildSchedule(model.ScheduleInput{
		Principal:      decimal.NewFromInt(2_000_000),
		MonthlyRatePct: decimal.NewFromInt(2),
		TermMonths:     12,
		StartDate:      testutil.Date(2025, time.January, 15),
		LoanType:       valueobject.LoanTypeStandard,
	})
	require.Len(t, schedule, 12)

	first := schedule[0]
	assert.Equal(t, testutil.Date(2025, time.March, 5), first.DueDate)
	// 2,000,000 * 2% / 30 * 49 days = 65,333.33
	testutil.AssertDecimal(t, "167000", first.Principal, "first principal")
	testutil.AssertDecimal(t, "66000", first.Interest, "first interest")
	testutil.AssertDecimal(t, "233000", first.Total, "first total")

	second := schedule[1]
	assert.Equal(t, testutil.Date(2025, time.April, 5), second.DueDate)
	testutil.AssertDecimal(t, "37000", second.Interest, "second interest")
	testutil.AssertDecimal(t, "204000", second.Total, "second total")

	last := schedule[11]
	assert.Equal(t, 12, last.Sequence)
	assert.Equal(t, testutil.Date(2026, time.February, 5), last.DueDate)
	testutil.AssertDecimal(t, "163000", last.Principal, "last principal")
	testutil.AssertDecimal(t, "4000", last.Interest, "last interest")
	testutil.AssertDecimal(t, "167000", last.Total, "last total")

	for i, inst := range schedule[:11] {
		testutil.AssertDecimal(t, "167000", inst.Principal, "principal")
		assert.Equal(t, valueobject.InstallmentPending, inst.State, "installment %d", i+1)
		assert.True(t, inst.PaidAmount.IsZero())
	}

	testutil.AssertDecimal(t, "2000000", summary.TotalPrincipal, "total principal")
	assert.Equal(t, 12, summary.Installments)
	assert.Equal(t, testutil.Date(2025, time.March, 5), summary.FirstDueDate)
	assert.Equal(t, testutil.Date(2026, time.February, 5), summary.LastDueDate)
	assert.True(t, summary.TotalPayable.Equal(summary.TotalPrincipal.Add(summary.TotalInterest)))
}

func TestBuildSchedule_FiguresAreMultiplesOfThousand(t *testing.T) {
	thousand := decimal.NewFromInt(1000)
	schedule, summary := model.BuildSchedule(model.ScheduleInput{
		Principal:      decimal.NewFromInt(1_000_000),
		MonthlyRatePct: decimal.NewFromInt(2),
		TermMonths:     12,
		StartDate:      testutil.Date(2025, time.January, 15),
		LoanType:       valueobject.LoanTypeStandard,
	})
	require.Len(t, schedule, 12)

	for _, inst := range schedule {
		for label, v := range map[string]decimal.Decimal{
			"principal": inst.Principal,
			"interest":  inst.Interest,
			"total":     inst.Total,
		} {
			assert.Truef(t, v.Mod(thousand).IsZero(), "installment %d %s %s is not a multiple of 1000", inst.Sequence, label, v)
		}
	}
	testutil.AssertDecimal(t, "84000", schedule[0].Principal, "base principal")
	testutil.AssertDecimal(t, "76000", schedule[11].Principal, "last principal")
	testutil.AssertDecimal(t, "1000000", summary.TotalPrincipal, "total principal")
}

func TestBuildSchedule_PrincipalSumsExactly(t *testing.T) {
	tests := []struct {
		name      string
		principal int64
		term      int
	}{
		{"even split", 1_200_000, 12},
		{"remainder", 2_000_000, 12},
		{"odd principal", 1_234_567, 7},
		{"single", 400_000, 1},
		{"long term", 5_000_000, 36},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, summary := model.BuildSchedule(model.ScheduleInput{
				Principal:      decimal.NewFromInt(tt.principal),
				MonthlyRatePct: decimal.NewFromInt(2),
				TermMonths:     tt.term,
				StartDate:      testutil.Date(2025, time.June, 1),
				LoanType:       valueobject.LoanTypeStandard,
			})
			require.Len(t, schedule, tt.term)
			assert.True(t, summary.TotalPrincipal.Equal(decimal.NewFromInt(tt.principal)),
				"principals sum to %s", summary.TotalPrincipal)
			for _, inst := range schedule {
				assert.False(t, inst.Principal.IsNegative())
			}
		})
	}
}

func TestBuildSchedule_ExpressDueOneMonthLater(t *testing.T) {
	schedule, _ := model.BuildSchedule(model.ScheduleInput{
		Principal:      decimal.NewFromInt(500_000),
		MonthlyRatePct: decimal.RequireFromString("1.5"),
		TermMonths:     1,
		StartDate:      testutil.Date(2025, time.January, 15),
		LoanType:       valueobject.LoanTypeExpress,
	})
	require.Len(t, schedule, 1)
	assert.Equal(t, testutil.Date(2025, time.February, 5), schedule[0].DueDate)
	// 500,000 * 1.5% / 30 * 21 days = 5,250
	testutil.AssertDecimal(t, "6000", schedule[0].Interest, "interest")
	testutil.AssertDecimal(t, "506000", schedule[0].Total, "total")
}

func TestBuildSchedule_DueDatesRollOverYear(t *testing.T) {
	schedule, _ := model.BuildSchedule(model.ScheduleInput{
		Principal:      decimal.NewFromInt(300_000),
		MonthlyRatePct: decimal.NewFromInt(2),
		TermMonths:     3,
		StartDate:      testutil.Date(2025, time.November, 28),
		LoanType:       valueobject.LoanTypeStandard,
	})
	require.Len(t, schedule, 3)
	assert.Equal(t, testutil.Date(2026, time.January, 5), schedule[0].DueDate)
	assert.Equal(t, testutil.Date(2026, time.February, 5), schedule[1].DueDate)
	assert.Equal(t, testutil.Date(2026, time.March, 5), schedule[2].DueDate)
}

func TestBuildSchedule_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name      string
		principal int64
		term      int
	}{
		{"zero term", 1_000_000, 0},
		{"negative term", 1_000_000, -3},
		{"zero principal", 0, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, summary := model.BuildSchedule(model.ScheduleInput{
				Principal:      decimal.NewFromInt(tt.principal),
				MonthlyRatePct: decimal.NewFromInt(2),
				TermMonths:     tt.term,
				StartDate:      testutil.Date(2025, time.January, 15),
				LoanType:       valueobject.LoanTypeStandard,
			})
			assert.Empty(t, schedule)
			assert.Equal(t, 0, summary.Installments)
		})
	}
}

func TestBuildSchedule_Backfill(t *testing.T) {
	schedule, _ := model.BuildSchedule(model.ScheduleInput{
		Principal:            decimal.NewFromInt(300_000),
		MonthlyRatePct:       decimal.NewFromInt(2),
		TermMonths:           3,
		StartDate:            testutil.Date(2025, time.January, 20),
		LoanType:             valueobject.LoanTypeStandard,
		AlreadyPaidPrincipal: decimal.NewFromInt(150_000),
	})
	require.Len(t, schedule, 3)

	assert.Equal(t, valueobject.InstallmentPaid, schedule[0].State)
	assert.True(t, schedule[0].PaidAmount.Equal(schedule[0].Total))
	testutil.AssertDecimal(t, "109000", schedule[0].PaidAmount, "paid amount")
	testutil.AssertDecimal(t, "9000", schedule[0].InterestPaid, "interest paid")
	testutil.AssertDecimal(t, "100000", schedule[0].PrincipalPaid, "principal paid")

	// 200,000 cumulative exceeds 150,000 already paid.
	assert.Equal(t, valueobject.InstallmentPending, schedule[1].State)
	assert.True(t, schedule[1].PaidAmount.IsZero())
	assert.Equal(t, valueobject.InstallmentPending, schedule[2].State)
}

func TestInstallment_UnpaidInterest(t *testing.T) {
	inst := model.Installment{
		Principal:     decimal.NewFromInt(100_000),
		Interest:      decimal.NewFromInt(30_000),
		Total:         decimal.NewFromInt(130_000),
		InterestPaid:  decimal.NewFromInt(10_000),
		PrincipalPaid: decimal.Zero,
		PaidAmount:    decimal.NewFromInt(10_000),
		State:         valueobject.InstallmentPartial,
	}
	testutil.AssertDecimal(t, "20000", inst.UnpaidInterest(), "unpaid interest")
	testutil.AssertDecimal(t, "100000", inst.UnpaidPrincipal(), "unpaid principal")
	testutil.AssertDecimal(t, "120000", inst.Remaining(), "remaining")

	// Principal payments never cover interest.
	inst.PrincipalPaid = decimal.NewFromInt(40_000)
	inst.PaidAmount = decimal.NewFromInt(50_000)
	testutil.AssertDecimal(t, "20000", inst.UnpaidInterest(), "unpaid interest after principal")
	testutil.AssertDecimal(t, "60000", inst.UnpaidPrincipal(), "unpaid principal after principal")

	inst.InterestPaid = decimal.NewFromInt(30_000)
	assert.True(t, inst.UnpaidInterest().IsZero())

	inst.State = valueobject.InstallmentPaid
	assert.True(t, inst.UnpaidInterest().IsZero())
	assert.True(t, inst.Remaining().IsZero())
}
