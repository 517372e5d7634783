package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// ReportPaymentUseCase records a member's payment report for treasury review.
type ReportPaymentUseCase struct {
	deps Deps
}

// NewReportPaymentUseCase wires dependencies.
func NewReportPaymentUseCase(deps Deps) *ReportPaymentUseCase {
	return &ReportPaymentUseCase{deps: deps}
}

// Execute stores the report. A nonce already used by the member is rejected.
func (uc *ReportPaymentUseCase) Execute(ctx context.Context, req dto.ReportPaymentRequest) (resp dto.PaymentResponse, err error) {
	defer func() { recordOutcome(ctx, "report_payment", err) }()

	if err := requireID(req.MemberID, "member ID"); err != nil {
		return dto.PaymentResponse{}, err
	}
	release, err := acquire(ctx, uc.deps.Locker, port.MemberLockKey(req.MemberID))
	if err != nil {
		return dto.PaymentResponse{}, err
	}
	defer release()

	now := uc.deps.now()
	var payment model.Payment
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		account, err := uc.deps.Members.FindByMemberID(ctx, req.MemberID)
		if err != nil {
			return fmt.Errorf("find member: %w", err)
		}
		if account.Status().Equal(valueobject.MembershipWithdrawn) {
			return valueobject.NewPolicyViolation("member %s has withdrawn", req.MemberID)
		}

		used, err := uc.deps.Payments.NonceExists(ctx, req.MemberID, req.Nonce)
		if err != nil {
			return fmt.Errorf("check nonce: %w", err)
		}
		if used {
			return valueobject.Invalid("payment nonce failure: nonce %q already used", req.Nonce)
		}

		payment, err = model.NewPayment(req.MemberID, req.Amount, req.ProofReference, req.Nonce, now)
		if err != nil {
			return fmt.Errorf("report payment: %w", err)
		}
		if err := uc.deps.Payments.Save(ctx, payment); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		return storeEvents(ctx, uc.deps.Outbox, payment.DomainEvents()...)
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	return toPaymentResponse(payment), nil
}
