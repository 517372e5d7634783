package valueobject

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FundPolicy carries the fund's tariff and lending parameters. Amounts are in
// the fund's currency; rates are monthly percentages (2 means 2%).
type FundPolicy struct {
	SavingsPerShare    decimal.Decimal
	AdminFeePerShare   decimal.Decimal
	PenaltyPerShareDay decimal.Decimal
	PaymentTolerance   decimal.Decimal

	StandardRatePct       decimal.Decimal
	ExpressRatePct        decimal.Decimal
	MaxStandardTermMonths int
	RefinanceThreshold    decimal.Decimal

	// ClosingMonth is the year-end month during which loan admissions are deferred.
	ClosingMonth time.Month
}

// DefaultFundPolicy returns the tariff the fund operates with unless configured otherwise.
func DefaultFundPolicy() FundPolicy {
	return FundPolicy{
		SavingsPerShare:       decimal.NewFromInt(50_000),
		AdminFeePerShare:      decimal.NewFromInt(2_000),
		PenaltyPerShareDay:    decimal.NewFromInt(1_000),
		PaymentTolerance:      decimal.NewFromInt(1_000),
		StandardRatePct:       decimal.NewFromInt(2),
		ExpressRatePct:        decimal.RequireFromString("1.5"),
		MaxStandardTermMonths: 36,
		RefinanceThreshold:    decimal.RequireFromString("0.70"),
		ClosingMonth:          time.December,
	}
}

// Validate rejects a policy that would make the engine's arithmetic meaningless.
func (p FundPolicy) Validate() error {
	for name, v := range map[string]decimal.Decimal{
		"savings per share":     p.SavingsPerShare,
		"admin fee per share":   p.AdminFeePerShare,
		"penalty per share day": p.PenaltyPerShareDay,
		"payment tolerance":     p.PaymentTolerance,
		"standard rate":         p.StandardRatePct,
		"express rate":          p.ExpressRatePct,
	} {
		if v.IsNegative() {
			return fmt.Errorf("fund policy: %s must not be negative", name)
		}
	}
	if !p.StandardRatePct.IsPositive() || !p.ExpressRatePct.IsPositive() {
		return fmt.Errorf("fund policy: loan rates must be positive")
	}
	if p.MaxStandardTermMonths <= 0 {
		return fmt.Errorf("fund policy: max standard term must be positive")
	}
	if !p.RefinanceThreshold.IsPositive() || p.RefinanceThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("fund policy: refinance threshold must be in (0, 1]")
	}
	if p.ClosingMonth < time.January || p.ClosingMonth > time.December {
		return fmt.Errorf("fund policy: closing month %d out of range", p.ClosingMonth)
	}
	return nil
}

// RatePctFor returns the monthly rate for a loan type.
func (p FundPolicy) RatePctFor(t LoanType) decimal.Decimal {
	if t.IsExpress() {
		return p.ExpressRatePct
	}
	return p.StandardRatePct
}

// IsClosingMonth reports whether at falls in the year-end closing month.
func (p FundPolicy) IsClosingMonth(at time.Time) bool {
	return at.UTC().Month() == p.ClosingMonth
}
