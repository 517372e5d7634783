// Package postgres implements the fund storage ports on PostgreSQL through
// pgx. Every repository joins the transaction carried by the context, so a
// use case that runs inside Transactor.WithinTx commits or rolls back as one
// unit.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
	pgpkg "github.com/bibbank/fund/pkg/postgres"
)

// Migrations holds the schema, applied at startup by pkg/postgres.RunMigrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files.
const MigrationsDir = "migrations"

const uniqueViolation = "23505"

// Transactor implements port.Transactor on a pgx pool. Nested calls run in a
// savepoint of the outer transaction.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor creates a Transactor.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTx implements port.Transactor.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return pgpkg.InTx(ctx, t.pool, fn)
}

var _ port.Transactor = (*Transactor)(nil)

// Repositories bundles every repository over one pool.
type Repositories struct {
	Members     *MemberRepo
	Loans       *LoanRepo
	Payments    *PaymentRepo
	Cash        *CashRepo
	Profits     *ProfitRepo
	Withdrawals *WithdrawalRepo
	Outbox      *OutboxRepo
}

// NewRepositories creates all repositories over pool.
func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Members:     NewMemberRepo(pool),
		Loans:       NewLoanRepo(pool),
		Payments:    NewPaymentRepo(pool),
		Cash:        NewCashRepo(pool),
		Profits:     NewProfitRepo(pool),
		Withdrawals: NewWithdrawalRepo(pool),
		Outbox:      NewOutboxRepo(pool),
	}
}

func db(ctx context.Context, pool *pgxpool.Pool) pgpkg.Querier {
	return pgpkg.QuerierFrom(ctx, pool)
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%w: %s %v", valueobject.ErrNotFound, kind, id)
}

func conflict(kind string, id any) error {
	return fmt.Errorf("%w: %s %v was modified concurrently", valueobject.ErrConcurrentModification, kind, id)
}

// mapNoRows turns pgx.ErrNoRows into ErrNotFound and wraps anything else.
func mapNoRows(err error, kind string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(kind, id)
	}
	return fmt.Errorf("query %s: %w", kind, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func fromNullTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
