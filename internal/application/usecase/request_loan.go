package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/service"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// RequestLoanUseCase gates a credit request through the loan policy and the
// liquidity admission, then asks the guarantor to co-sign.
type RequestLoanUseCase struct {
	deps      Deps
	policy    *service.LoanPolicy
	liquidity *service.LiquidityLedger
}

// NewRequestLoanUseCase wires dependencies.
func NewRequestLoanUseCase(deps Deps) *RequestLoanUseCase {
	return &RequestLoanUseCase{
		deps:      deps,
		policy:    service.NewLoanPolicy(deps.Policy),
		liquidity: service.NewLiquidityLedger(deps.Policy),
	}
}

// Execute creates the loan in PENDING_GUARANTOR_SIGNATURE. Requests that do
// not fit in the available liquidity are accepted with the queue flag set.
func (uc *RequestLoanUseCase) Execute(ctx context.Context, req dto.RequestLoanRequest) (resp dto.LoanResponse, err error) {
	defer func() { recordOutcome(ctx, "request_loan", err) }()

	if err := requireID(req.MemberID, "member ID"); err != nil {
		return dto.LoanResponse{}, err
	}
	loanType, err := valueobject.NewLoanType(req.Type)
	if err != nil {
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
		requester, err := uc.deps.Members.FindByMemberID(ctx, req.MemberID)
		if err != nil {
			return fmt.Errorf("find member: %w", err)
		}
		var guarantor *model.MemberAccount
		if req.GuarantorID != uuid.Nil {
			g, err := uc.deps.Members.FindByMemberID(ctx, req.GuarantorID)
			if err != nil {
				return fmt.Errorf("find guarantor: %w", err)
			}
			guarantor = &g
		}
		loans, err := uc.deps.Loans.ListByMember(ctx, req.MemberID)
		if err != nil {
			return fmt.Errorf("list loans: %w", err)
		}

		refinances, err := uc.policy.Check(service.LoanApplication{
			Requester:  requester,
			Guarantor:  guarantor,
			Type:       loanType,
			Amount:     req.Amount,
			TermMonths: req.TermMonths,
			Loans:      loans,
			At:         now,
		})
		if err != nil {
			return err
		}

		snapshot, err := liquiditySnapshot(ctx, uc.deps, uc.liquidity)
		if err != nil {
			return err
		}
		admission := uc.liquidity.Admit(snapshot, req.Amount, now)

		loan, err = model.NewLoanRequest(model.LoanRequest{
			MemberID:           req.MemberID,
			GuarantorID:        req.GuarantorID,
			Type:               loanType,
			Amount:             req.Amount,
			TermMonths:         req.TermMonths,
			MonthlyRatePct:     uc.deps.Policy.RatePctFor(loanType),
			SignatureReference: req.SignatureReference,
			RequestIP:          req.RequestIP,
			UserAgent:          req.UserAgent,
			Queued:             !admission.Admitted,
			RefinancesLoanID:   refinances,
		}, now)
		if err != nil {
			return fmt.Errorf("create loan request: %w", err)
		}
		loan, err = loan.AwaitGuarantor(uuid.NewString(), now)
		if err != nil {
			return fmt.Errorf("await guarantor: %w", err)
		}

		if err := uc.deps.Loans.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		if admission.Queued {
			uc.deps.logger().Info("loan request queued for liquidity",
				"loan_id", loan.ID(),
				"member_id", req.MemberID,
				"reason", admission.Reason,
			)
		}
		return storeEvents(ctx, uc.deps.Outbox, loan.DomainEvents()...)
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}
	return toLoanResponse(loan), nil
}
