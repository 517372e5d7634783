package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/events"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------
//
// Save upserts an aggregate. Updates only apply when the stored version still
// equals the aggregate's version; otherwise they fail with
// valueobject.ErrConcurrentModification. Finders return valueobject.ErrNotFound
// for missing rows. All methods join the transaction carried by ctx, if any.

// MemberRepository persists member accounts.
type MemberRepository interface {
	Save(ctx context.Context, account model.MemberAccount) error
	FindByMemberID(ctx context.Context, memberID uuid.UUID) (model.MemberAccount, error)
	// ListEnrolled returns ACTIVE and SUSPENDED members ordered by member ID.
	ListEnrolled(ctx context.Context) ([]model.MemberAccount, error)
}

// LoanRepository persists loans with their installment schedules.
type LoanRepository interface {
	Save(ctx context.Context, loan model.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Loan, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]model.Loan, error)
	// ListByState returns loans oldest request first, ties broken by ID.
	ListByState(ctx context.Context, state valueobject.LoanState) ([]model.Loan, error)
	// ListContractPending returns disbursed loans still missing a contract,
	// oldest disbursement first, at most limit of them.
	ListContractPending(ctx context.Context, limit int) ([]model.Loan, error)
	SumApprovedPrincipal(ctx context.Context, states ...valueobject.LoanState) (decimal.Decimal, error)
	SumRequestedPrincipal(ctx context.Context, states ...valueobject.LoanState) (decimal.Decimal, error)
}

// PaymentRepository persists payment reports.
type PaymentRepository interface {
	Save(ctx context.Context, payment model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Payment, error)
	NonceExists(ctx context.Context, memberID uuid.UUID, nonce string) (bool, error)
}

// CashMovementRepository is the append-only running-balance ledger.
type CashMovementRepository interface {
	Append(ctx context.Context, movements ...model.CashMovement) error
	Totals(ctx context.Context) (model.CashTotals, error)
	// SumByCategories sums movements in [from, to) of the given categories.
	SumByCategories(ctx context.Context, from, to time.Time, categories ...valueobject.CashCategory) (decimal.Decimal, error)
}

// ProfitRepository persists monthly profit records and close markers.
type ProfitRepository interface {
	SaveMonthlyClose(ctx context.Context, summary model.ProfitClose, records []model.ProfitRecord) error
	FindMonthlyClose(ctx context.Context, period valueobject.Period) (model.ProfitClose, error)
	ListRecordsByYear(ctx context.Context, year int) ([]model.ProfitRecord, error)
	UpdateRecords(ctx context.Context, records []model.ProfitRecord) error
	SaveAnnualClose(ctx context.Context, marker model.AnnualClose) error
	FindAnnualClose(ctx context.Context, year int) (model.AnnualClose, error)
}

// WithdrawalRepository persists withdrawal requests.
type WithdrawalRepository interface {
	Save(ctx context.Context, w model.Withdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (model.Withdrawal, error)
	FindPendingByMember(ctx context.Context, memberID uuid.UUID) (model.Withdrawal, error)
}

// OutboxRepository stores outbound events with the mutation that raised them.
type OutboxRepository = events.OutboxRepository

// ---------------------------------------------------------------------------
// Unit of work and concurrency ports
// ---------------------------------------------------------------------------

// Transactor runs fn atomically. A nested call joins the outer transaction
// through a savepoint, so its failure rolls back only its own writes.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes writers of one aggregate. The returned function releases
// the lock and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Lock keys.
func MemberLockKey(id uuid.UUID) string { return "member:" + id.String() }
func LoanLockKey(id uuid.UUID) string   { return "loan:" + id.String() }

const (
	SweepLockKey       = "liquidity-sweep"
	ProfitCloseLockKey = "profit-close"
)

// ---------------------------------------------------------------------------
// External collaborator ports
// ---------------------------------------------------------------------------

// DocumentGenerator renders a loan contract and returns its storage reference.
// It runs after commit; a failure leaves the loan contract-pending for the
// retry job and never undoes the disbursement.
type DocumentGenerator interface {
	GenerateContract(ctx context.Context, loan model.Loan) (string, error)
}

// EventPublisher delivers outbox entries to a topic.
type EventPublisher = events.EventPublisher
