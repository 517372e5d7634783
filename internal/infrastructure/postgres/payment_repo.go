package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

var _ port.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo implements port.PaymentRepository.
type PaymentRepo struct {
	pool *pgxpool.Pool
}

// NewPaymentRepo creates a new PostgreSQL-backed payment repository.
func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `
	id, member_id, amount, proof_reference, nonce, state, breakdown,
	approver_id, reason, reported_at, decided_at, version`

// Save upserts a payment report. A reused (member, nonce) pair on insert is
// reported as a validation error.
func (r *PaymentRepo) Save(ctx context.Context, payment model.Payment) error {
	rec := payment.Record()
	breakdown, err := json.Marshal(rec.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown of payment %s: %w", rec.ID, err)
	}

	tag, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			state       = EXCLUDED.state,
			breakdown   = EXCLUDED.breakdown,
			approver_id = EXCLUDED.approver_id,
			reason      = EXCLUDED.reason,
			decided_at  = EXCLUDED.decided_at,
			version     = payments.version + 1
		WHERE payments.version = EXCLUDED.version
	`, rec.ID, rec.MemberID, rec.Amount, rec.ProofReference, rec.Nonce, string(rec.State), breakdown,
		rec.ApproverID, rec.Reason, rec.ReportedAt.UTC(), nullTime(rec.DecidedAt), rec.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return valueobject.Invalid("payment nonce %q was already used by member %s", rec.Nonce, rec.MemberID)
		}
		return fmt.Errorf("save payment %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return conflict("payment", rec.ID)
	}
	return nil
}

// FindByID loads one payment report.
func (r *PaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Payment, error) {
	var (
		rec       model.PaymentRecord
		state     string
		breakdown []byte
		decidedAt *time.Time
	)
	err := db(ctx, r.pool).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id).Scan(
		&rec.ID, &rec.MemberID, &rec.Amount, &rec.ProofReference, &rec.Nonce, &state, &breakdown,
		&rec.ApproverID, &rec.Reason, &rec.ReportedAt, &decidedAt, &rec.Version,
	)
	if err != nil {
		return model.Payment{}, mapNoRows(err, "payment", id)
	}

	st, err := valueobject.ParseApprovalState(state)
	if err != nil {
		return model.Payment{}, fmt.Errorf("payment %s: %w", id, err)
	}
	if err := json.Unmarshal(breakdown, &rec.Breakdown); err != nil {
		return model.Payment{}, fmt.Errorf("decode breakdown of payment %s: %w", id, err)
	}
	rec.State = st
	rec.ReportedAt = rec.ReportedAt.UTC()
	rec.DecidedAt = fromNullTime(decidedAt)
	return model.ReconstructPayment(rec), nil
}

// NonceExists reports whether memberID already used nonce on any payment.
func (r *PaymentRepo) NonceExists(ctx context.Context, memberID uuid.UUID, nonce string) (bool, error) {
	var exists bool
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE member_id = $1 AND nonce = $2)`, memberID, nonce,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check payment nonce: %w", err)
	}
	return exists, nil
}
