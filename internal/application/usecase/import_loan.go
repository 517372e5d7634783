package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// ImportLoanUseCase back-fills a loan disbursed before the fund moved onto
// this ledger.
type ImportLoanUseCase struct {
	deps Deps
}

// NewImportLoanUseCase wires dependencies.
func NewImportLoanUseCase(deps Deps) *ImportLoanUseCase {
	return &ImportLoanUseCase{deps: deps}
}

// Execute creates the loan ACTIVE, with installments covered by the already
// paid principal marked as paid. No events are emitted for imports.
func (uc *ImportLoanUseCase) Execute(ctx context.Context, req dto.ImportLoanRequest) (resp dto.LoanResponse, err error) {
	defer func() { recordOutcome(ctx, "import_loan", err) }()

	loanType, err := valueobject.NewLoanType(req.Type)
	if err != nil {
		return dto.LoanResponse{}, err
	}
	if err := requireID(req.MemberID, "member ID"); err != nil {
		return dto.LoanResponse{}, err
	}
	release, err := acquire(ctx, uc.deps.Locker, port.MemberLockKey(req.MemberID))
	if err != nil {
		return dto.LoanResponse{}, err
	}
	defer release()

	now := uc.deps.now()
	var loan model.Loan
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := uc.deps.Members.FindByMemberID(ctx, req.MemberID); err != nil {
			return fmt.Errorf("find member: %w", err)
		}
		loans, err := uc.deps.Loans.ListByMember(ctx, req.MemberID)
		if err != nil {
			return fmt.Errorf("list loans: %w", err)
		}
		if current, ok := outstandingLoan(loans); ok {
			return valueobject.NewPolicyViolation("member %s already has outstanding loan %s", req.MemberID, current.ID())
		}

		loan, err = model.NewImportedLoan(model.ImportedLoan{
			MemberID:             req.MemberID,
			GuarantorID:          req.GuarantorID,
			Type:                 loanType,
			Principal:            req.Principal,
			TermMonths:           req.TermMonths,
			MonthlyRatePct:       uc.deps.Policy.RatePctFor(loanType),
			DisbursedAt:          req.DisbursedAt,
			AlreadyPaidPrincipal: req.AlreadyPaidPrincipal,
			Note:                 req.Note,
		}, now)
		if err != nil {
			return fmt.Errorf("import loan: %w", err)
		}
		if err := uc.deps.Loans.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}
	return toLoanResponse(loan), nil
}
