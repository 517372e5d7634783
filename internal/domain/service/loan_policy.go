package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// LoanApplication is what the policy needs to judge a new loan request.
type LoanApplication struct {
	Requester model.MemberAccount
	// Guarantor is nil when the guarantor ID does not resolve to an account.
	Guarantor  *model.MemberAccount
	Type       valueobject.LoanType
	Amount     decimal.Decimal
	TermMonths int
	// Loans are the requester's existing loans in any state.
	Loans []model.Loan
	At    time.Time
}

// LoanPolicy gates loan requests before any state is created.
type LoanPolicy struct {
	policy valueobject.FundPolicy
}

// NewLoanPolicy creates a LoanPolicy.
func NewLoanPolicy(policy valueobject.FundPolicy) *LoanPolicy {
	return &LoanPolicy{policy: policy}
}

// Check validates the application and returns the ID of the loan being
// refinanced, or uuid.Nil for a fresh loan.
func (p *LoanPolicy) Check(app LoanApplication) (uuid.UUID, error) {
	if app.Type.IsZero() {
		return uuid.Nil, valueobject.Invalid("loan type is required")
	}
	if !app.Amount.IsPositive() {
		return uuid.Nil, valueobject.Invalid("amount must be positive")
	}
	if !app.Type.IsExpress() && (app.TermMonths < 1 || app.TermMonths > p.policy.MaxStandardTermMonths) {
		return uuid.Nil, valueobject.Invalid("standard loan term must be between 1 and %d months, got %d",
			p.policy.MaxStandardTermMonths, app.TermMonths)
	}

	requester := app.Requester
	if requester.IsSanctioned(app.At) {
		return uuid.Nil, valueobject.NewPolicyViolation("sanction window active until %s",
			requester.SanctionedUntil().Format(time.DateOnly))
	}
	if !requester.IsActive() {
		return uuid.Nil, valueobject.NewPolicyViolation("member %s is %s", requester.MemberID(), requester.Status())
	}

	if app.Guarantor == nil {
		return uuid.Nil, valueobject.Invalid("guarantor is required")
	}
	if app.Guarantor.MemberID() == requester.MemberID() {
		return uuid.Nil, valueobject.Invalid("guarantor must be a different member")
	}
	if !app.Guarantor.IsActive() {
		return uuid.Nil, valueobject.NewPolicyViolation("guarantor %s is not an active member", app.Guarantor.MemberID())
	}

	var current *model.Loan
	for i := range app.Loans {
		l := app.Loans[i]
		if l.State().IsInFlight() {
			return uuid.Nil, valueobject.NewPolicyViolation("loan %s is already in progress", l.TrackingCode())
		}
		if l.State().IsOutstanding() {
			current = &l
		}
	}
	if current == nil {
		return uuid.Nil, nil
	}

	if app.Type.IsExpress() {
		return uuid.Nil, valueobject.NewPolicyViolation("express loans cannot be used for refinancing")
	}
	if current.State().Equal(valueobject.LoanStateDelinquent) {
		return uuid.Nil, valueobject.NewPolicyViolation("delinquent loan %s cannot be refinanced", current.TrackingCode())
	}
	ratio := current.RepaidRatio()
	if ratio.LessThan(p.policy.RefinanceThreshold) {
		return uuid.Nil, valueobject.NewPolicyViolation("refinancing threshold not met: %s%% repaid, %s%% required",
			ratio.Mul(decimal.NewFromInt(100)).StringFixed(2),
			p.policy.RefinanceThreshold.Mul(decimal.NewFromInt(100)).StringFixed(2))
	}
	return current.ID(), nil
}
