package postgres

import (
	"context"
	"encoding/json"
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

var _ port.LoanRepository = (*LoanRepo)(nil)

// LoanRepo implements port.LoanRepository. The installment schedule is kept
// as a JSONB column on the loan row.
type LoanRepo struct {
	pool *pgxpool.Pool
}

// NewLoanRepo creates a new PostgreSQL-backed loan repository.
func NewLoanRepo(pool *pgxpool.Pool) *LoanRepo {
	return &LoanRepo{pool: pool}
}

const loanColumns = `
	id, tracking_code, member_id, guarantor_id, loan_type,
	principal_requested, principal_approved, outstanding_balance,
	term_months, monthly_rate_pct, state, queued_at_request,
	signature_ref, request_ip, user_agent, guarantor_token, guarantor_signature_ref,
	refinances_loan_id, netted_amount, disbursement_note, decision_note,
	schedule, requested_at, approved_at, version, created_at, updated_at,
	contract_pending, contract_ref`

// Save persists a loan and its schedule.
func (r *LoanRepo) Save(ctx context.Context, loan model.Loan) error {
	rec := loan.Record()
	schedule, err := json.Marshal(rec.Schedule)
	if err != nil {
		return fmt.Errorf("marshal schedule of loan %s: %w", rec.ID, err)
	}

	tag, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO loans (`+loanColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
		ON CONFLICT (id) DO UPDATE SET
			principal_approved      = EXCLUDED.principal_approved,
			outstanding_balance     = EXCLUDED.outstanding_balance,
			monthly_rate_pct        = EXCLUDED.monthly_rate_pct,
			state                   = EXCLUDED.state,
			guarantor_token         = EXCLUDED.guarantor_token,
			guarantor_signature_ref = EXCLUDED.guarantor_signature_ref,
			netted_amount           = EXCLUDED.netted_amount,
			disbursement_note       = EXCLUDED.disbursement_note,
			decision_note           = EXCLUDED.decision_note,
			schedule                = EXCLUDED.schedule,
			approved_at             = EXCLUDED.approved_at,
			contract_pending        = EXCLUDED.contract_pending,
			contract_ref            = EXCLUDED.contract_ref,
			version                 = loans.version + 1,
			updated_at              = EXCLUDED.updated_at
		WHERE loans.version = EXCLUDED.version
	`,
		rec.ID, rec.TrackingCode, rec.MemberID, rec.GuarantorID, rec.Type.String(),
		rec.PrincipalRequested, rec.PrincipalApproved, rec.OutstandingBalance,
		rec.TermMonths, rec.MonthlyRatePct, rec.State.String(), rec.QueuedAtRequest,
		rec.SignatureRef, rec.RequestIP, rec.UserAgent, rec.GuarantorToken, rec.GuarantorSignatureRef,
		rec.RefinancesLoanID, rec.NettedAmount, rec.DisbursementNote, rec.DecisionNote,
		schedule, rec.RequestedAt.UTC(), nullTime(rec.ApprovedAt), rec.Version, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
		rec.ContractPending, rec.ContractRef,
	)
	if err != nil {
		return fmt.Errorf("save loan %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return conflict("loan", rec.ID)
	}
	return nil
}

// FindByID loads one loan with its schedule.
func (r *LoanRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Loan, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	loan, err := scanLoan(row)
	if err != nil {
		return model.Loan{}, mapNoRows(err, "loan", id)
	}
	return loan, nil
}

// ListByMember returns a member's loans oldest first.
func (r *LoanRepo) ListByMember(ctx context.Context, memberID uuid.UUID) ([]model.Loan, error) {
	return r.list(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE member_id = $1
		ORDER BY requested_at, id::text
	`, memberID)
}

// ListByState returns loans in state oldest request first, ties broken by ID.
func (r *LoanRepo) ListByState(ctx context.Context, state valueobject.LoanState) ([]model.Loan, error) {
	return r.list(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE state = $1
		ORDER BY requested_at, id::text
	`, state.String())
}

// ListContractPending returns loans whose contract has not been rendered yet.
func (r *LoanRepo) ListContractPending(ctx context.Context, limit int) ([]model.Loan, error) {
	return r.list(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE contract_pending
		ORDER BY approved_at, id::text
		LIMIT $1
	`, limit)
}

// SumApprovedPrincipal sums principal_approved over loans in states.
func (r *LoanRepo) SumApprovedPrincipal(ctx context.Context, states ...valueobject.LoanState) (decimal.Decimal, error) {
	return r.sum(ctx, "principal_approved", states)
}

// SumRequestedPrincipal sums principal_requested over loans in states.
func (r *LoanRepo) SumRequestedPrincipal(ctx context.Context, states ...valueobject.LoanState) (decimal.Decimal, error) {
	return r.sum(ctx, "principal_requested", states)
}

// column is one of two constants above, never caller input.
func (r *LoanRepo) sum(ctx context.Context, column string, states []valueobject.LoanState) (decimal.Decimal, error) {
	if len(states) == 0 {
		return decimal.Zero, nil
	}
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, s.String())
	}
	var total decimal.Decimal
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE(SUM(`+column+`), 0) FROM loans WHERE state = ANY($1)`, names,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum %s: %w", column, err)
	}
	return total, nil
}

func (r *LoanRepo) list(ctx context.Context, query string, args ...any) ([]model.Loan, error) {
	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var out []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, loan)
	}
	return out, rows.Err()
}

func scanLoan(row pgx.Row) (model.Loan, error) {
	var (
		rec               model.LoanRecord
		loanType, state   string
		schedule          []byte
		approvedAt        *time.Time
		requested, approv decimal.Decimal
		outstanding, rate decimal.Decimal
		netted            decimal.Decimal
	)
	if err := row.Scan(
		&rec.ID, &rec.TrackingCode, &rec.MemberID, &rec.GuarantorID, &loanType,
		&requested, &approv, &outstanding,
		&rec.TermMonths, &rate, &state, &rec.QueuedAtRequest,
		&rec.SignatureRef, &rec.RequestIP, &rec.UserAgent, &rec.GuarantorToken, &rec.GuarantorSignatureRef,
		&rec.RefinancesLoanID, &netted, &rec.DisbursementNote, &rec.DecisionNote,
		&schedule, &rec.RequestedAt, &approvedAt, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
		&rec.ContractPending, &rec.ContractRef,
	); err != nil {
		return model.Loan{}, err
	}

	t, err := valueobject.NewLoanType(loanType)
	if err != nil {
		return model.Loan{}, fmt.Errorf("loan %s: %w", rec.ID, err)
	}
	st, err := valueobject.NewLoanState(state)
	if err != nil {
		return model.Loan{}, fmt.Errorf("loan %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(schedule, &rec.Schedule); err != nil {
		return model.Loan{}, fmt.Errorf("decode schedule of loan %s: %w", rec.ID, err)
	}
	for i := range rec.Schedule {
		rec.Schedule[i].DueDate = rec.Schedule[i].DueDate.UTC()
	}

	rec.Type = t
	rec.State = st
	rec.PrincipalRequested = requested
	rec.PrincipalApproved = approv
	rec.OutstandingBalance = outstanding
	rec.MonthlyRatePct = rate
	rec.NettedAmount = netted
	rec.RequestedAt = rec.RequestedAt.UTC()
	rec.ApprovedAt = fromNullTime(approvedAt)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return model.ReconstructLoan(rec), nil
}
