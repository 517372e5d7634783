package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/money"
)

// DebtSnapshot is everything a member owes as of a reference date.
type DebtSnapshot struct {
	ReferenceDate time.Time
	Dues          Accrual
	// HasLoan is set when the member has an ACTIVE or DELINQUENT loan.
	HasLoan         bool
	LoanInterestDue decimal.Decimal
	LoanOutstanding decimal.Decimal
}

// AdminDebt is penalty, fee and savings due.
func (d DebtSnapshot) AdminDebt() decimal.Decimal { return d.Dues.Total() }

// LoanDebt is unpaid interest due plus outstanding principal.
func (d DebtSnapshot) LoanDebt() decimal.Decimal {
	if !d.HasLoan {
		return decimal.Zero
	}
	return money.Sum(d.LoanInterestDue, d.LoanOutstanding)
}

// TotalDebt is admin debt plus loan debt.
func (d DebtSnapshot) TotalDebt() decimal.Decimal {
	return d.AdminDebt().Add(d.LoanDebt())
}

// WaterfallResult is the allocation of one payment.
type WaterfallResult struct {
	Lines []model.Allocation
	// AdvancesContribution is true when a positive savings due was paid in full.
	AdvancesContribution bool
}

// Amount returns the amount allocated to concept.
func (r WaterfallResult) Amount(concept valueobject.Concept) decimal.Decimal {
	for _, l := range r.Lines {
		if l.Concept == concept {
			return l.Amount
		}
	}
	return decimal.Zero
}

// SavingsCredit is what the member's savings balance grows by.
func (r WaterfallResult) SavingsCredit() decimal.Decimal {
	return r.Amount(valueobject.ConceptSavings).Add(r.Amount(valueobject.ConceptSavingsSurplus))
}

// PaymentWaterfall splits one payment across obligations in strict priority:
// penalty, admin fee, savings, then loan interest and principal. Whatever is
// left goes to savings.
type PaymentWaterfall struct {
	policy valueobject.FundPolicy
}

// NewPaymentWaterfall creates a PaymentWaterfall.
func NewPaymentWaterfall(policy valueobject.FundPolicy) *PaymentWaterfall {
	return &PaymentWaterfall{policy: policy}
}

// Allocate applies amount to debt. A payment exceeding total debt by more
// than the tolerance is rejected before anything is allocated.
func (w *PaymentWaterfall) Allocate(amount decimal.Decimal, debt DebtSnapshot) (WaterfallResult, error) {
	if !amount.IsPositive() {
		return WaterfallResult{}, valueobject.Invalid("payment amount must be positive")
	}
	if total := debt.TotalDebt(); amount.GreaterThan(total.Add(w.policy.PaymentTolerance)) {
		return WaterfallResult{}, valueobject.NewPolicyViolation(
			"payment exceeds owed amount: paid %s, owed %s", amount, total)
	}

	var res WaterfallResult
	remaining := amount
	take := func(concept valueobject.Concept, due decimal.Decimal) decimal.Decimal {
		portion := money.Min(remaining, money.Floor0(due))
		if portion.IsPositive() {
			res.Lines = append(res.Lines, model.Allocation{Concept: concept, Amount: portion})
			remaining = remaining.Sub(portion)
		}
		return portion
	}

	take(valueobject.ConceptPenalty, debt.Dues.PenaltyDue)
	take(valueobject.ConceptAdminFee, debt.Dues.FeeDue)
	savings := take(valueobject.ConceptSavings, debt.Dues.SavingsDue)
	res.AdvancesContribution = debt.Dues.SavingsDue.IsPositive() && savings.Equal(debt.Dues.SavingsDue)

	if debt.HasLoan {
		take(valueobject.ConceptLoanInterest, debt.LoanInterestDue)
		take(valueobject.ConceptLoanPrincipal, debt.LoanOutstanding)
	}
	take(valueobject.ConceptSavingsSurplus, remaining)

	return res, nil
}
