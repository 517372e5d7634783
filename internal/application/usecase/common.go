package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/fund/internal/domain/event"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/service"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/events"
)

// Deps bundles the ports and policy shared by the use cases.
type Deps struct {
	Members     port.MemberRepository
	Loans       port.LoanRepository
	Payments    port.PaymentRepository
	Cash        port.CashMovementRepository
	Profits     port.ProfitRepository
	Withdrawals port.WithdrawalRepository
	Outbox      port.OutboxRepository
	Tx          port.Transactor
	Locker      port.Locker

	Policy valueobject.FundPolicy
	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger *slog.Logger
}

func (d Deps) now() time.Time {
	if d.Clock == nil {
		return time.Now().UTC()
	}
	return d.Clock().UTC()
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// acquire takes the locks in the order given and returns a release for all
// of them. Callers always lock the member before any of its loans.
func acquire(ctx context.Context, locker port.Locker, keys ...string) (func(), error) {
	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		release, err := locker.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// storeEvents writes the events to the outbox of the transaction in ctx.
func storeEvents(ctx context.Context, outbox port.OutboxRepository, evts ...event.DomainEvent) error {
	if len(evts) == 0 {
		return nil
	}
	entries, err := events.NewOutboxEntries(evts...)
	if err != nil {
		return fmt.Errorf("build outbox entries: %w", err)
	}
	if err := outbox.Store(ctx, entries); err != nil {
		return fmt.Errorf("store outbox entries: %w", err)
	}
	return nil
}

// outstandingLoan returns the member's ACTIVE or DELINQUENT loan, if any.
func outstandingLoan(loans []model.Loan) (model.Loan, bool) {
	for _, l := range loans {
		if l.State().IsOutstanding() {
			return l, true
		}
	}
	return model.Loan{}, false
}

// liquiditySnapshot reads the ledger totals and loan sums the liquidity
// ledger works from.
func liquiditySnapshot(ctx context.Context, d Deps, ledger *service.LiquidityLedger) (service.LiquiditySnapshot, error) {
	totals, err := d.Cash.Totals(ctx)
	if err != nil {
		return service.LiquiditySnapshot{}, fmt.Errorf("cash totals: %w", err)
	}
	disbursed, err := d.Loans.SumApprovedPrincipal(ctx, valueobject.DisbursedStates()...)
	if err != nil {
		return service.LiquiditySnapshot{}, fmt.Errorf("sum disbursed principal: %w", err)
	}
	reserved, err := d.Loans.SumRequestedPrincipal(ctx, valueobject.LoanStatePendingTreasury)
	if err != nil {
		return service.LiquiditySnapshot{}, fmt.Errorf("sum reserved principal: %w", err)
	}
	return ledger.Snapshot(totals, disbursed, reserved), nil
}

// debtSnapshot is what the member owes as of ref.
func debtSnapshot(
	ctx context.Context, d Deps, accrual *service.AccrualCalculator,
	account model.MemberAccount, ref time.Time,
) (service.DebtSnapshot, model.Loan, bool, error) {
	loans, err := d.Loans.ListByMember(ctx, account.MemberID())
	if err != nil {
		return service.DebtSnapshot{}, model.Loan{}, false, fmt.Errorf("list loans: %w", err)
	}
	debt := service.DebtSnapshot{
		ReferenceDate: ref,
		Dues:          accrual.Accrue(account.Shares(), account.LastContribution(), ref),
	}
	loan, ok := outstandingLoan(loans)
	if ok {
		debt.HasLoan = true
		debt.LoanInterestDue = loan.InterestDue(ref)
		debt.LoanOutstanding = loan.OutstandingBalance()
	}
	return debt, loan, ok, nil
}

func isNotFound(err error) bool { return errors.Is(err, valueobject.ErrNotFound) }

func requireID(id uuid.UUID, name string) error {
	if id == uuid.Nil {
		return valueobject.Invalid("%s is required", name)
	}
	return nil
}
