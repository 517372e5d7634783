package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

var _ port.CashMovementRepository = (*CashRepo)(nil)

// CashRepo implements port.CashMovementRepository over an append-only table.
type CashRepo struct {
	pool *pgxpool.Pool
}

// NewCashRepo creates a new PostgreSQL-backed cash movement ledger.
func NewCashRepo(pool *pgxpool.Pool) *CashRepo {
	return &CashRepo{pool: pool}
}

// Append inserts movements in one batch.
func (r *CashRepo) Append(ctx context.Context, movements ...model.CashMovement) error {
	if len(movements) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range movements {
		batch.Queue(`
			INSERT INTO cash_movements (id, direction, category, amount, member_id, loan_id, payment_id, occurred_at, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, m.ID, string(m.Direction), string(m.Category), m.Amount, m.MemberID, m.LoanID, m.PaymentID, m.OccurredAt.UTC(), m.Note)
	}
	if err := db(ctx, r.pool).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("append cash movements: %w", err)
	}
	return nil
}

// Totals returns the historical inflow and outflow sums.
func (r *CashRepo) Totals(ctx context.Context) (model.CashTotals, error) {
	var t model.CashTotals
	err := db(ctx, r.pool).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE direction = $2), 0),
			COALESCE(SUM(amount) FILTER (WHERE direction = $1 AND category = ANY($3)), 0),
			COALESCE(SUM(amount) FILTER (WHERE direction = $2 AND category = ANY($3)), 0)
		FROM cash_movements
	`, string(valueobject.DirectionInflow), string(valueobject.DirectionOutflow), secretarialCategories(),
	).Scan(&t.Inflows, &t.Outflows, &t.SecretarialInflows, &t.SecretarialOutflows)
	if err != nil {
		return model.CashTotals{}, fmt.Errorf("sum cash totals: %w", err)
	}
	return t, nil
}

// SumByCategories sums movements in [from, to) of the given categories.
func (r *CashRepo) SumByCategories(ctx context.Context, from, to time.Time, categories ...valueobject.CashCategory) (decimal.Decimal, error) {
	if len(categories) == 0 {
		return decimal.Zero, nil
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	var total decimal.Decimal
	err := db(ctx, r.pool).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM cash_movements
		WHERE occurred_at >= $1 AND occurred_at < $2 AND category = ANY($3)
	`, from.UTC(), to.UTC(), names).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum cash movements: %w", err)
	}
	return total, nil
}

// secretarialCategories are the categories IsSecretarial accepts.
func secretarialCategories() []string {
	return []string{string(valueobject.CategoryAdminFee), string(valueobject.CategorySecretarialExpense)}
}
