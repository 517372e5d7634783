package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// Accrual is what a member owes in dues as of a reference date.
type Accrual struct {
	SavingsDue decimal.Decimal
	FeeDue     decimal.Decimal
	PenaltyDue decimal.Decimal
	MonthsOwed int
	LateMonths int
	DaysLate   int
}

// Total is savings, fee and penalty together.
func (a Accrual) Total() decimal.Decimal {
	return a.SavingsDue.Add(a.FeeDue).Add(a.PenaltyDue)
}

// IsDelinquent reports whether any owed month is past its due day.
func (a Accrual) IsDelinquent() bool { return a.LateMonths > 0 }

// AccrualCalculator is a pure domain service computing member dues. The
// display path and the enforcement path both call it, so it must never
// depend on the wall clock.
type AccrualCalculator struct {
	policy valueobject.FundPolicy
}

// NewAccrualCalculator creates an AccrualCalculator using the fund's tariff.
func NewAccrualCalculator(policy valueobject.FundPolicy) *AccrualCalculator {
	return &AccrualCalculator{policy: policy}
}

// Accrue walks whole calendar months from the month after lastContribution
// through the month containing reference. Every month owes savings and fee
// per share; a month whose due day has passed also owes a daily penalty per
// share for each day since that due day.
//
// A nil lastContribution stands for the first day of the reference month, so
// only the reference month itself can be owed, and only once it is late.
func (c *AccrualCalculator) Accrue(shares int, lastContribution *time.Time, reference time.Time) Accrual {
	out := Accrual{
		SavingsDue: decimal.Zero,
		FeeDue:     decimal.Zero,
		PenaltyDue: decimal.Zero,
	}
	if shares <= 0 {
		return out
	}

	ref := model.CivilDate(reference)
	refPeriod := valueobject.PeriodOf(ref)

	var start valueobject.Period
	if lastContribution == nil {
		if !ref.After(refPeriod.DueDate()) {
			return out
		}
		start = refPeriod
	} else {
		start = valueobject.PeriodOf(model.CivilDate(*lastContribution)).Next()
	}

	n := decimal.NewFromInt(int64(shares))
	savings := n.Mul(c.policy.SavingsPerShare)
	fee := n.Mul(c.policy.AdminFeePerShare)
	dailyPenalty := n.Mul(c.policy.PenaltyPerShareDay)

	for p := start; !refPeriod.Before(p); p = p.Next() {
		out.MonthsOwed++
		out.SavingsDue = out.SavingsDue.Add(savings)
		out.FeeDue = out.FeeDue.Add(fee)

		due := p.DueDate()
		if !ref.After(due) {
			continue
		}
		days := model.DaysBetween(due, ref)
		out.LateMonths++
		out.DaysLate += int(days)
		out.PenaltyDue = out.PenaltyDue.Add(dailyPenalty.Mul(decimal.NewFromInt(days)))
	}
	return out
}

// IsDelinquent reports whether the member has a late owed month at reference.
func (c *AccrualCalculator) IsDelinquent(shares int, lastContribution *time.Time, reference time.Time) bool {
	return c.Accrue(shares, lastContribution, reference).IsDelinquent()
}

// IsCurrent reports whether the member contributed on or after the first day
// of period, which makes them eligible for that month's profit.
func IsCurrent(lastContribution *time.Time, period valueobject.Period) bool {
	if lastContribution == nil {
		return false
	}
	return !model.CivilDate(*lastContribution).Before(period.Start())
}
