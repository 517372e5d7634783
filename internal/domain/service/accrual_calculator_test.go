package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bibbank/fund/internal/domain/service"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/testutil"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := testutil.Date(y, m, d)
	return &t
}

func TestAccrualCalculator_Accrue(t *testing.T) {
	calc := service.NewAccrualCalculator(valueobject.DefaultFundPolicy())

	tests := []struct {
		name        string
		shares      int
		last        *time.Time
		reference   time.Time
		wantSavings string
		wantFee     string
		wantPenalty string
		wantMonths  int
		wantLate    int
	}{
		{
			// Feb is 43 days late and Mar 15 days late on Mar 20.
			name:        "two months owed both late",
			shares:      2,
			last:        datePtr(2025, time.January, 1),
			reference:   testutil.Date(2025, time.March, 20),
			wantSavings: "200000", wantFee: "8000", wantPenalty: "116000",
			wantMonths: 2, wantLate: 2,
		},
		{
			name:        "current month not yet late",
			shares:      1,
			last:        datePtr(2025, time.February, 10),
			reference:   testutil.Date(2025, time.March, 5),
			wantSavings: "50000", wantFee: "2000", wantPenalty: "0",
			wantMonths: 1, wantLate: 0,
		},
		{
			name:        "contributed this month",
			shares:      3,
			last:        datePtr(2025, time.March, 2),
			reference:   testutil.Date(2025, time.March, 20),
			wantSavings: "0", wantFee: "0", wantPenalty: "0",
		},
		{
			name:        "no contribution on record before due day",
			shares:      2,
			reference:   testutil.Date(2025, time.March, 3),
			wantSavings: "0", wantFee: "0", wantPenalty: "0",
		},
		{
			name:        "no contribution on record after due day",
			shares:      2,
			reference:   testutil.Date(2025, time.March, 10),
			wantSavings: "100000", wantFee: "4000", wantPenalty: "10000",
			wantMonths: 1, wantLate: 1,
		},
		{
			name:        "year rollover",
			shares:      1,
			last:        datePtr(2024, time.November, 30),
			reference:   testutil.Date(2025, time.January, 6),
			wantSavings: "100000", wantFee: "4000", wantPenalty: "33000",
			wantMonths: 2, wantLate: 2,
		},
		{
			name:        "negative shares",
			shares:      -4,
			last:        datePtr(2024, time.January, 1),
			reference:   testutil.Date(2025, time.March, 20),
			wantSavings: "0", wantFee: "0", wantPenalty: "0",
		},
		{
			name:        "contribution after reference",
			shares:      1,
			last:        datePtr(2025, time.May, 1),
			reference:   testutil.Date(2025, time.March, 20),
			wantSavings: "0", wantFee: "0", wantPenalty: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Accrue(tt.shares, tt.last, tt.reference)
			testutil.AssertDecimal(t, tt.wantSavings, got.SavingsDue, "savings")
			testutil.AssertDecimal(t, tt.wantFee, got.FeeDue, "fee")
			testutil.AssertDecimal(t, tt.wantPenalty, got.PenaltyDue, "penalty")
			assert.Equal(t, tt.wantMonths, got.MonthsOwed)
			assert.Equal(t, tt.wantLate, got.LateMonths)
			assert.False(t, got.Total().IsNegative())
		})
	}
}

func TestAccrualCalculator_TwoMonthsBack(t *testing.T) {
	calc := service.NewAccrualCalculator(valueobject.DefaultFundPolicy())
	reference := testutil.Date(2025, time.June, 18)
	last := datePtr(2025, time.April, 1)
	shares := 3

	got := calc.Accrue(shares, last, reference)

	// May 5 -> Jun 18 is 44 days, Jun 5 -> Jun 18 is 13 days.
	assert.Equal(t, 2, got.MonthsOwed)
	assert.Equal(t, 57, got.DaysLate)
	testutil.AssertDecimal(t, "300000", got.SavingsDue, "savings")
	testutil.AssertDecimal(t, "12000", got.FeeDue, "fee")
	testutil.AssertDecimal(t, "171000", got.PenaltyDue, "penalty")
}

func TestAccrualCalculator_IgnoresTimeOfDay(t *testing.T) {
	calc := service.NewAccrualCalculator(valueobject.DefaultFundPolicy())
	last := datePtr(2025, time.January, 15)

	morning := calc.Accrue(1, last, time.Date(2025, time.February, 7, 0, 0, 1, 0, time.UTC))
	evening := calc.Accrue(1, last, time.Date(2025, time.February, 7, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, morning, evening)
	testutil.AssertDecimal(t, "2000", morning.PenaltyDue, "penalty")
}

func TestAccrualCalculator_Idempotent(t *testing.T) {
	calc := service.NewAccrualCalculator(valueobject.DefaultFundPolicy())
	last := datePtr(2024, time.August, 20)
	ref := testutil.Date(2025, time.February, 11)

	assert.Equal(t, calc.Accrue(4, last, ref), calc.Accrue(4, last, ref))
	assert.True(t, calc.IsDelinquent(4, last, ref))
	assert.False(t, calc.IsDelinquent(4, datePtr(2025, time.February, 1), ref))
}

func TestIsCurrent(t *testing.T) {
	march, err := valueobject.NewPeriod(2025, time.March)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, service.IsCurrent(datePtr(2025, time.March, 1), march))
	assert.True(t, service.IsCurrent(datePtr(2025, time.April, 2), march))
	assert.False(t, service.IsCurrent(datePtr(2025, time.February, 28), march))
	assert.False(t, service.IsCurrent(nil, march))
}
