package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
)

// transitionLoan applies one lifecycle transition to a loan under its locks.
func transitionLoan(
	ctx context.Context, deps Deps, loanID uuid.UUID,
	apply func(model.Loan, time.Time) (model.Loan, error),
) (model.Loan, error) {
	loan, err := deps.Loans.FindByID(ctx, loanID)
	if err != nil {
		return model.Loan{}, fmt.Errorf("find loan: %w", err)
	}
	release, err := acquire(ctx, deps.Locker, port.MemberLockKey(loan.MemberID()), port.LoanLockKey(loanID))
	if err != nil {
		return model.Loan{}, err
	}
	defer release()

	now := deps.now()
	err = deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err = deps.Loans.FindByID(ctx, loanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		loan, err = apply(loan, now)
		if err != nil {
			return err
		}
		if err := deps.Loans.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return storeEvents(ctx, deps.Outbox, loan.DomainEvents()...)
	})
	if err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}

// RejectLoanUseCase closes an in-flight loan, whether treasury rejects it or
// the guarantor declines.
type RejectLoanUseCase struct {
	deps Deps
}

// NewRejectLoanUseCase wires dependencies.
func NewRejectLoanUseCase(deps Deps) *RejectLoanUseCase {
	return &RejectLoanUseCase{deps: deps}
}

// Execute rejects the loan with a note.
func (uc *RejectLoanUseCase) Execute(ctx context.Context, req dto.RejectLoanRequest) (resp dto.LoanResponse, err error) {
	defer func() { recordOutcome(ctx, "reject_loan", err) }()

	loan, err := transitionLoan(ctx, uc.deps, req.LoanID, func(l model.Loan, now time.Time) (model.Loan, error) {
		next, err := l.Reject(req.Note, now)
		if err != nil {
			return l, fmt.Errorf("reject loan: %w", err)
		}
		return next, nil
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}
	return toLoanResponse(loan), nil
}

// MarkLoanDelinquentUseCase flags an overdue loan reported by external
// detection.
type MarkLoanDelinquentUseCase struct {
	deps Deps
}

// NewMarkLoanDelinquentUseCase wires dependencies.
func NewMarkLoanDelinquentUseCase(deps Deps) *MarkLoanDelinquentUseCase {
	return &MarkLoanDelinquentUseCase{deps: deps}
}

// Execute moves ACTIVE to DELINQUENT and marks overdue installments LATE.
func (uc *MarkLoanDelinquentUseCase) Execute(ctx context.Context, req dto.MarkLoanDelinquentRequest) (resp dto.LoanResponse, err error) {
	defer func() { recordOutcome(ctx, "mark_loan_delinquent", err) }()

	loan, err := transitionLoan(ctx, uc.deps, req.LoanID, func(l model.Loan, now time.Time) (model.Loan, error) {
		asOf := req.AsOf
		if asOf.IsZero() {
			asOf = now
		}
		next, err := l.MarkDelinquent(asOf, req.Note, now)
		if err != nil {
			return l, fmt.Errorf("mark delinquent: %w", err)
		}
		return next, nil
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}
	uc.deps.logger().Warn("loan marked delinquent", "loan_id", loan.ID(), "member_id", loan.MemberID())
	return toLoanResponse(loan), nil
}

// CureLoanUseCase returns a delinquent loan to ACTIVE once arrears clear.
type CureLoanUseCase struct {
	deps Deps
}

// NewCureLoanUseCase wires dependencies.
func NewCureLoanUseCase(deps Deps) *CureLoanUseCase {
	return &CureLoanUseCase{deps: deps}
}

// Execute cures the loan.
func (uc *CureLoanUseCase) Execute(ctx context.Context, req dto.CureLoanRequest) (resp dto.LoanResponse, err error) {
	defer func() { recordOutcome(ctx, "cure_loan", err) }()

	loan, err := transitionLoan(ctx, uc.deps, req.LoanID, func(l model.Loan, now time.Time) (model.Loan, error) {
		next, err := l.Cure(now)
		if err != nil {
			return l, fmt.Errorf("cure loan: %w", err)
		}
		return next, nil
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}
	return toLoanResponse(loan), nil
}
