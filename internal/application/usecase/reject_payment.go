package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/port"
)

// RejectPaymentUseCase closes a payment report without touching balances.
type RejectPaymentUseCase struct {
	deps Deps
}

// NewRejectPaymentUseCase wires dependencies.
func NewRejectPaymentUseCase(deps Deps) *RejectPaymentUseCase {
	return &RejectPaymentUseCase{deps: deps}
}

// Execute rejects a pending payment with a reason.
func (uc *RejectPaymentUseCase) Execute(ctx context.Context, req dto.RejectPaymentRequest) (resp dto.PaymentResponse, err error) {
	defer func() { recordOutcome(ctx, "reject_payment", err) }()

	payment, err := uc.deps.Payments.FindByID(ctx, req.PaymentID)
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("find payment: %w", err)
	}
	release, err := acquire(ctx, uc.deps.Locker, port.MemberLockKey(payment.MemberID()))
	if err != nil {
		return dto.PaymentResponse{}, err
	}
	defer release()

	now := uc.deps.now()
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		payment, err = uc.deps.Payments.FindByID(ctx, req.PaymentID)
		if err != nil {
			return fmt.Errorf("find payment: %w", err)
		}
		payment, err = payment.Reject(req.Reason, now)
		if err != nil {
			return fmt.Errorf("reject payment: %w", err)
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
