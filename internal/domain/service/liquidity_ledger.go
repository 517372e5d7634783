package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/money"
)

// LiquiditySnapshot is the fund's cash position derived from the ledger and
// the loan book. It is never persisted.
type LiquiditySnapshot struct {
	Totals model.CashTotals
	// DisbursedPrincipal is the approved principal of ACTIVE, PAID and DELINQUENT loans.
	DisbursedPrincipal decimal.Decimal
	// Reserved is the requested principal of loans admitted to treasury but not yet disbursed.
	Reserved decimal.Decimal
}

// GrossCash is all recognized inflows minus all recognized outflows.
func (s LiquiditySnapshot) GrossCash() decimal.Decimal {
	return s.Totals.Inflows.Sub(s.Totals.Outflows)
}

// SecretarialReserve is the ring-fenced balance of admin fees minus
// secretarial expenses.
func (s LiquiditySnapshot) SecretarialReserve() decimal.Decimal {
	return s.Totals.SecretarialInflows.Sub(s.Totals.SecretarialOutflows)
}

// LendableCash is gross cash minus disbursed principal minus the
// secretarial reserve, floored at zero.
func (s LiquiditySnapshot) LendableCash() decimal.Decimal {
	return money.Floor0(s.GrossCash().Sub(s.DisbursedPrincipal).Sub(s.SecretarialReserve()))
}

// Headroom is lendable cash not yet claimed by admitted requests.
func (s LiquiditySnapshot) Headroom() decimal.Decimal {
	return money.Floor0(s.LendableCash().Sub(s.Reserved))
}

// AdmissionDecision is the outcome of checking a new request against liquidity.
type AdmissionDecision struct {
	Admitted bool
	Queued   bool
	// Deferred is set during the closing month; the request is also queued.
	Deferred bool
	Reason   string
}

// SweepPlan lists the queued loans a sweep pass may promote, in FIFO order.
type SweepPlan struct {
	Admitted  []model.Loan
	Skipped   []model.Loan
	Deferred  bool
	Remaining decimal.Decimal
}

// LiquidityLedger decides loan admissions against a liquidity snapshot.
type LiquidityLedger struct {
	policy valueobject.FundPolicy
}

// NewLiquidityLedger creates a LiquidityLedger.
func NewLiquidityLedger(policy valueobject.FundPolicy) *LiquidityLedger {
	return &LiquidityLedger{policy: policy}
}

// Snapshot assembles a snapshot from ledger totals and loan sums.
func (l *LiquidityLedger) Snapshot(totals model.CashTotals, disbursedPrincipal, reserved decimal.Decimal) LiquiditySnapshot {
	return LiquiditySnapshot{
		Totals:             totals,
		DisbursedPrincipal: disbursedPrincipal,
		Reserved:           reserved,
	}
}

// Admit decides whether a request of amount can go straight to treasury.
// Requests are never rejected for lack of funds; they wait in the queue.
func (l *LiquidityLedger) Admit(snapshot LiquiditySnapshot, amount decimal.Decimal, asOf time.Time) AdmissionDecision {
	if l.policy.IsClosingMonth(asOf) {
		return AdmissionDecision{
			Queued:   true,
			Deferred: true,
			Reason:   fmt.Sprintf("admissions deferred during closing month %s", asOf.UTC().Month()),
		}
	}
	headroom := snapshot.Headroom()
	if amount.LessThanOrEqual(headroom) {
		return AdmissionDecision{Admitted: true}
	}
	return AdmissionDecision{
		Queued: true,
		Reason: fmt.Sprintf("requested %s exceeds available %s", amount, headroom),
	}
}

// PlanSweep walks the queue oldest first, reserving each admitted request
// against a local balance. A request that does not fit is skipped and later,
// smaller ones may still be admitted.
func (l *LiquidityLedger) PlanSweep(snapshot LiquiditySnapshot, queue []model.Loan, asOf time.Time) SweepPlan {
	ordered := make([]model.Loan, len(queue))
	copy(ordered, queue)
	SortFIFO(ordered)

	available := snapshot.Headroom()
	if l.policy.IsClosingMonth(asOf) {
		return SweepPlan{Skipped: ordered, Deferred: true, Remaining: available}
	}

	plan := SweepPlan{}
	for _, loan := range ordered {
		amount := loan.PrincipalRequested()
		if amount.LessThanOrEqual(available) {
			plan.Admitted = append(plan.Admitted, loan)
			available = available.Sub(amount)
			continue
		}
		plan.Skipped = append(plan.Skipped, loan)
	}
	plan.Remaining = available
	return plan
}

// CanDisburse reports whether releasing principal minus netted still fits in
// lendable cash. Netted principal never leaves the fund.
func (l *LiquidityLedger) CanDisburse(snapshot LiquiditySnapshot, principal, netted decimal.Decimal, asOf time.Time) error {
	if l.policy.IsClosingMonth(asOf) {
		return valueobject.NewPolicyViolation("disbursements are deferred during closing month %s", asOf.UTC().Month())
	}
	release := principal.Sub(netted)
	if snapshot.LendableCash().LessThan(release) {
		return valueobject.NewPolicyViolation("insufficient liquidity: %s lendable, %s to release",
			snapshot.LendableCash(), release)
	}
	return nil
}

// SortFIFO orders loans by request time, breaking ties by ID.
func SortFIFO(loans []model.Loan) {
	sort.SliceStable(loans, func(i, j int) bool {
		a, b := loans[i], loans[j]
		if !a.RequestedAt().Equal(b.RequestedAt()) {
			return a.RequestedAt().Before(b.RequestedAt())
		}
		return a.ID().String() < b.ID().String()
	})
}
