package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

var _ port.MemberRepository = (*MemberRepo)(nil)

// MemberRepo implements port.MemberRepository.
type MemberRepo struct {
	pool *pgxpool.Pool
}

// NewMemberRepo creates a new PostgreSQL-backed member repository.
func NewMemberRepo(pool *pgxpool.Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

const memberColumns = `
	member_id, id, full_name, shares, savings_balance, retained_earnings,
	last_contribution, status, sanctioned_until, version, created_at, updated_at`

// Save upserts an account. Updates require the stored version to match.
func (r *MemberRepo) Save(ctx context.Context, account model.MemberAccount) error {
	rec := account.Record()
	tag, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO member_accounts (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (member_id) DO UPDATE SET
			full_name         = EXCLUDED.full_name,
			shares            = EXCLUDED.shares,
			savings_balance   = EXCLUDED.savings_balance,
			retained_earnings = EXCLUDED.retained_earnings,
			last_contribution = EXCLUDED.last_contribution,
			status            = EXCLUDED.status,
			sanctioned_until  = EXCLUDED.sanctioned_until,
			version           = member_accounts.version + 1,
			updated_at        = EXCLUDED.updated_at
		WHERE member_accounts.version = EXCLUDED.version
	`, rec.MemberID, rec.ID, rec.FullName, rec.Shares, rec.SavingsBalance, rec.RetainedEarnings,
		utcPtr(rec.LastContribution), rec.Status.String(), utcPtr(rec.SanctionedUntil),
		rec.Version, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save member %s: %w", rec.MemberID, err)
	}
	if tag.RowsAffected() == 0 {
		return conflict("member", rec.MemberID)
	}
	return nil
}

// FindByMemberID loads one account.
func (r *MemberRepo) FindByMemberID(ctx context.Context, memberID uuid.UUID) (model.MemberAccount, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `SELECT `+memberColumns+` FROM member_accounts WHERE member_id = $1`, memberID)
	account, err := scanMember(row)
	if err != nil {
		return model.MemberAccount{}, mapNoRows(err, "member", memberID)
	}
	return account, nil
}

// ListEnrolled returns ACTIVE and SUSPENDED members ordered by member ID.
func (r *MemberRepo) ListEnrolled(ctx context.Context) ([]model.MemberAccount, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT `+memberColumns+`
		FROM member_accounts
		WHERE status IN ($1, $2)
		ORDER BY member_id::text
	`, valueobject.MembershipActive.String(), valueobject.MembershipSuspended.String())
	if err != nil {
		return nil, fmt.Errorf("query enrolled members: %w", err)
	}
	defer rows.Close()

	var out []model.MemberAccount
	for rows.Next() {
		account, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

func scanMember(row pgx.Row) (model.MemberAccount, error) {
	var (
		rec              model.MemberAccountRecord
		savings, retain  decimal.Decimal
		lastContribution *time.Time
		sanctionedUntil  *time.Time
		status           string
	)
	if err := row.Scan(
		&rec.MemberID, &rec.ID, &rec.FullName, &rec.Shares, &savings, &retain,
		&lastContribution, &status, &sanctionedUntil, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return model.MemberAccount{}, err
	}
	st, err := valueobject.NewMembershipStatus(status)
	if err != nil {
		return model.MemberAccount{}, fmt.Errorf("member %s: %w", rec.MemberID, err)
	}
	rec.SavingsBalance = savings
	rec.RetainedEarnings = retain
	rec.LastContribution = utcPtr(lastContribution)
	rec.SanctionedUntil = utcPtr(sanctionedUntil)
	rec.Status = st
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return model.ReconstructMemberAccount(rec), nil
}
