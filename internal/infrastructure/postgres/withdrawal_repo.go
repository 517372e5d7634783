package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

var _ port.WithdrawalRepository = (*WithdrawalRepo)(nil)

// WithdrawalRepo implements port.WithdrawalRepository.
type WithdrawalRepo struct {
	pool *pgxpool.Pool
}

// NewWithdrawalRepo creates a new PostgreSQL-backed withdrawal repository.
func NewWithdrawalRepo(pool *pgxpool.Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, member_id, reason, state, payout, decided_by, note, requested_at, decided_at`

// Save upserts a withdrawal request.
func (r *WithdrawalRepo) Save(ctx context.Context, w model.Withdrawal) error {
	rec := w.Record()
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO withdrawals (`+withdrawalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			state      = EXCLUDED.state,
			payout     = EXCLUDED.payout,
			decided_by = EXCLUDED.decided_by,
			note       = EXCLUDED.note,
			decided_at = EXCLUDED.decided_at
	`, rec.ID, rec.MemberID, rec.Reason, string(rec.State), rec.Payout, rec.DecidedBy, rec.Note,
		rec.RequestedAt.UTC(), nullTime(rec.DecidedAt))
	if err != nil {
		return fmt.Errorf("save withdrawal %s: %w", rec.ID, err)
	}
	return nil
}

// FindByID loads one withdrawal request.
func (r *WithdrawalRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Withdrawal, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		return model.Withdrawal{}, mapNoRows(err, "withdrawal", id)
	}
	return w, nil
}

// FindPendingByMember returns the member's undecided request, if any.
func (r *WithdrawalRepo) FindPendingByMember(ctx context.Context, memberID uuid.UUID) (model.Withdrawal, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE member_id = $1 AND state = $2
		ORDER BY requested_at
		LIMIT 1
	`, memberID, string(valueobject.ApprovalPending))
	w, err := scanWithdrawal(row)
	if err != nil {
		return model.Withdrawal{}, mapNoRows(err, "pending withdrawal for member", memberID)
	}
	return w, nil
}

func scanWithdrawal(row pgx.Row) (model.Withdrawal, error) {
	var (
		rec       model.WithdrawalRecord
		state     string
		decidedAt *time.Time
	)
	if err := row.Scan(
		&rec.ID, &rec.MemberID, &rec.Reason, &state, &rec.Payout, &rec.DecidedBy, &rec.Note,
		&rec.RequestedAt, &decidedAt,
	); err != nil {
		return model.Withdrawal{}, err
	}
	st, err := valueobject.ParseApprovalState(state)
	if err != nil {
		return model.Withdrawal{}, fmt.Errorf("withdrawal %s: %w", rec.ID, err)
	}
	rec.State = st
	rec.RequestedAt = rec.RequestedAt.UTC()
	rec.DecidedAt = fromNullTime(decidedAt)
	return model.ReconstructWithdrawal(rec), nil
}
