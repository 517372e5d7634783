package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/event"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/service"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// ApprovePaymentUseCase applies an approved payment: the waterfall split,
// the member's balances, the ledger and the loan move together.
type ApprovePaymentUseCase struct {
	deps      Deps
	accrual   *service.AccrualCalculator
	waterfall *service.PaymentWaterfall
}

// NewApprovePaymentUseCase wires dependencies.
func NewApprovePaymentUseCase(deps Deps) *ApprovePaymentUseCase {
	return &ApprovePaymentUseCase{
		deps:      deps,
		accrual:   service.NewAccrualCalculator(deps.Policy),
		waterfall: service.NewPaymentWaterfall(deps.Policy),
	}
}

// Execute approves the payment. Debt is measured as of the report date so
// penalties stop growing while treasury reviews.
func (uc *ApprovePaymentUseCase) Execute(ctx context.Context, req dto.ApprovePaymentRequest) (resp dto.PaymentResponse, err error) {
	defer func() { recordOutcome(ctx, "approve_payment", err) }()

	if err := requireID(req.ApproverID, "approver ID"); err != nil {
		return dto.PaymentResponse{}, err
	}
	payment, err := uc.deps.Payments.FindByID(ctx, req.PaymentID)
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("find payment: %w", err)
	}

	keys := []string{port.MemberLockKey(payment.MemberID())}
	loans, err := uc.deps.Loans.ListByMember(ctx, payment.MemberID())
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("list loans: %w", err)
	}
	if loan, ok := outstandingLoan(loans); ok {
		keys = append(keys, port.LoanLockKey(loan.ID()))
	}
	release, err := acquire(ctx, uc.deps.Locker, keys...)
	if err != nil {
		return dto.PaymentResponse{}, err
	}
	defer release()

	now := uc.deps.now()
	var result service.WaterfallResult
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		// Reload under the lock.
		payment, err = uc.deps.Payments.FindByID(ctx, req.PaymentID)
		if err != nil {
			return fmt.Errorf("find payment: %w", err)
		}
		if payment.State() != valueobject.ApprovalPending {
			return fmt.Errorf("%w: payment %s is already %s",
				valueobject.ErrInvalidStatusTransition, payment.ID(), payment.State())
		}
		account, err := uc.deps.Members.FindByMemberID(ctx, payment.MemberID())
		if err != nil {
			return fmt.Errorf("find member: %w", err)
		}

		ref := payment.ReportedAt()
		debt, loan, hasLoan, err := debtSnapshot(ctx, uc.deps, uc.accrual, account, ref)
		if err != nil {
			return err
		}
		result, err = uc.waterfall.Allocate(payment.Amount(), debt)
		if err != nil {
			return fmt.Errorf("allocate payment: %w", err)
		}

		payment, err = payment.Approve(req.ApproverID, result.Lines, now)
		if err != nil {
			return fmt.Errorf("approve payment: %w", err)
		}

		var advanceTo *time.Time
		if result.AdvancesContribution {
			advanceTo = &ref
		}
		account, err = account.ApplyContribution(result.SavingsCredit(), advanceTo, now)
		if err != nil {
			return fmt.Errorf("apply contribution: %w", err)
		}

		interest := result.Amount(valueobject.ConceptLoanInterest)
		principal := result.Amount(valueobject.ConceptLoanPrincipal)
		if hasLoan && (interest.IsPositive() || principal.IsPositive()) {
			loan, err = loan.ApplyRepayment(interest, principal, now)
			if err != nil {
				return fmt.Errorf("apply repayment: %w", err)
			}
			if err := uc.deps.Loans.Save(ctx, loan); err != nil {
				return fmt.Errorf("save loan: %w", err)
			}
		}

		movements, err := paymentMovements(payment, result, loan, hasLoan, now)
		if err != nil {
			return err
		}
		if err := uc.deps.Cash.Append(ctx, movements...); err != nil {
			return fmt.Errorf("append cash movements: %w", err)
		}
		if err := uc.deps.Members.Save(ctx, account); err != nil {
			return fmt.Errorf("save member: %w", err)
		}
		if err := uc.deps.Payments.Save(ctx, payment); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		evts := append([]event.DomainEvent{}, payment.DomainEvents()...)
		if hasLoan {
			evts = append(evts, loan.DomainEvents()...)
		}
		return storeEvents(ctx, uc.deps.Outbox, evts...)
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	addAmount(ctx, paymentsApprovedAmount, payment.Amount())
	uc.deps.logger().Info("payment approved",
		"payment_id", payment.ID(),
		"member_id", payment.MemberID(),
		"amount", payment.Amount().String(),
	)
	return toPaymentResponse(payment), nil
}

// paymentMovements books one ledger inflow per breakdown line.
func paymentMovements(
	payment model.Payment, result service.WaterfallResult,
	loan model.Loan, hasLoan bool, at time.Time,
) ([]model.CashMovement, error) {
	out := make([]model.CashMovement, 0, len(result.Lines))
	for _, line := range result.Lines {
		m, err := model.NewCashMovement(line.Concept.CashCategory(), line.Amount, at,
			fmt.Sprintf("payment %s: %s", payment.ID(), line.Concept))
		if err != nil {
			return nil, fmt.Errorf("cash movement for %s: %w", line.Concept, err)
		}
		m = m.ForMember(payment.MemberID()).ForPayment(payment.ID())
		if hasLoan && (line.Concept == valueobject.ConceptLoanInterest || line.Concept == valueobject.ConceptLoanPrincipal) {
			m = m.ForLoan(loan.ID())
		}
		out = append(out, m)
	}
	return out, nil
}
