package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
	pgpkg "github.com/bibbank/fund/pkg/postgres"
)

var _ port.ProfitRepository = (*ProfitRepo)(nil)

// ProfitRepo implements port.ProfitRepository.
type ProfitRepo struct {
	pool *pgxpool.Pool
}

// NewProfitRepo creates a new PostgreSQL-backed profit repository.
func NewProfitRepo(pool *pgxpool.Pool) *ProfitRepo {
	return &ProfitRepo{pool: pool}
}

// SaveMonthlyClose writes the close marker and its records atomically. A
// period that is already closed fails with ErrConcurrentModification.
func (r *ProfitRepo) SaveMonthlyClose(ctx context.Context, summary model.ProfitClose, records []model.ProfitRecord) error {
	return pgpkg.InTx(ctx, r.pool, func(ctx context.Context) error {
		q := db(ctx, r.pool)
		_, err := q.Exec(ctx, `
			INSERT INTO profit_closes (
				period_year, period_month, income, expenses, net_profit, eligible_shares,
				value_per_share, total_allocated, members_covered, eligible_members, closed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, summary.Period.Year(), int(summary.Period.Month()), summary.Income, summary.Expenses, summary.NetProfit,
			summary.EligibleShares, summary.ValuePerShare, summary.TotalAllocated,
			summary.MembersCovered, summary.EligibleMembers, summary.ClosedAt.UTC())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: period %s is already closed", valueobject.ErrConcurrentModification, summary.Period)
			}
			return fmt.Errorf("insert profit close %s: %w", summary.Period, err)
		}

		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(`
				INSERT INTO profit_records (
					id, member_id, period_year, period_month, shares_snapshot, eligible,
					allocated_amount, state, created_at, settled_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, rec.ID, rec.MemberID, rec.Period.Year(), int(rec.Period.Month()), rec.SharesSnapshot, rec.Eligible,
				rec.AllocatedAmount, string(rec.State), rec.CreatedAt.UTC(), utcPtr(rec.SettledAt))
		}
		if err := q.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert profit records %s: %w", summary.Period, err)
		}
		return nil
	})
}

// FindMonthlyClose loads the close marker of period.
func (r *ProfitRepo) FindMonthlyClose(ctx context.Context, period valueobject.Period) (model.ProfitClose, error) {
	var (
		c     model.ProfitClose
		year  int
		month int
	)
	err := db(ctx, r.pool).QueryRow(ctx, `
		SELECT period_year, period_month, income, expenses, net_profit, eligible_shares,
		       value_per_share, total_allocated, members_covered, eligible_members, closed_at
		FROM profit_closes
		WHERE period_year = $1 AND period_month = $2
	`, period.Year(), int(period.Month())).Scan(
		&year, &month, &c.Income, &c.Expenses, &c.NetProfit, &c.EligibleShares,
		&c.ValuePerShare, &c.TotalAllocated, &c.MembersCovered, &c.EligibleMembers, &c.ClosedAt,
	)
	if err != nil {
		return model.ProfitClose{}, mapNoRows(err, "monthly close", period)
	}
	c.Period, err = valueobject.NewPeriod(year, time.Month(month))
	if err != nil {
		return model.ProfitClose{}, fmt.Errorf("monthly close: %w", err)
	}
	c.ClosedAt = c.ClosedAt.UTC()
	return c, nil
}

// ListRecordsByYear returns a year's records ordered by period, then member.
func (r *ProfitRepo) ListRecordsByYear(ctx context.Context, year int) ([]model.ProfitRecord, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT id, member_id, period_year, period_month, shares_snapshot, eligible,
		       allocated_amount, state, created_at, settled_at
		FROM profit_records
		WHERE period_year = $1
		ORDER BY period_month, member_id::text
	`, year)
	if err != nil {
		return nil, fmt.Errorf("query profit records %d: %w", year, err)
	}
	defer rows.Close()

	var out []model.ProfitRecord
	for rows.Next() {
		var (
			rec       model.ProfitRecord
			y, m      int
			state     string
			settledAt *time.Time
		)
		if err := rows.Scan(
			&rec.ID, &rec.MemberID, &y, &m, &rec.SharesSnapshot, &rec.Eligible,
			&rec.AllocatedAmount, &state, &rec.CreatedAt, &settledAt,
		); err != nil {
			return nil, fmt.Errorf("scan profit record: %w", err)
		}
		if rec.Period, err = valueobject.NewPeriod(y, time.Month(m)); err != nil {
			return nil, fmt.Errorf("profit record %s: %w", rec.ID, err)
		}
		rec.State = valueobject.ProfitState(state)
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.SettledAt = utcPtr(settledAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateRecords rewrites the state of existing records.
func (r *ProfitRepo) UpdateRecords(ctx context.Context, records []model.ProfitRecord) error {
	q := db(ctx, r.pool)
	for _, rec := range records {
		tag, err := q.Exec(ctx, `
			UPDATE profit_records
			SET allocated_amount = $2, state = $3, settled_at = $4
			WHERE id = $1
		`, rec.ID, rec.AllocatedAmount, string(rec.State), utcPtr(rec.SettledAt))
		if err != nil {
			return fmt.Errorf("update profit record %s: %w", rec.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return notFound("profit record", rec.ID)
		}
	}
	return nil
}

// SaveAnnualClose writes the year marker once.
func (r *ProfitRepo) SaveAnnualClose(ctx context.Context, marker model.AnnualClose) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO annual_closes (year, members_credited, total_settled, closed_at)
		VALUES ($1, $2, $3, $4)
	`, marker.Year, marker.MembersCredited, marker.TotalSettled, marker.ClosedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: year %d is already closed", valueobject.ErrConcurrentModification, marker.Year)
		}
		return fmt.Errorf("insert annual close %d: %w", marker.Year, err)
	}
	return nil
}

// FindAnnualClose loads the year marker.
func (r *ProfitRepo) FindAnnualClose(ctx context.Context, year int) (model.AnnualClose, error) {
	var c model.AnnualClose
	err := db(ctx, r.pool).QueryRow(ctx, `
		SELECT year, members_credited, total_settled, closed_at
		FROM annual_closes WHERE year = $1
	`, year).Scan(&c.Year, &c.MembersCredited, &c.TotalSettled, &c.ClosedAt)
	if err != nil {
		return model.AnnualClose{}, mapNoRows(err, "annual close", year)
	}
	c.ClosedAt = c.ClosedAt.UTC()
	return c, nil
}
