package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// SignGuarantorUseCase records the guarantor's signature and routes the loan
// to treasury or to the liquidity queue.
type SignGuarantorUseCase struct {
	deps  Deps
	sweep *SweepLiquidityQueueUseCase
}

// NewSignGuarantorUseCase wires dependencies. sweep may be nil, in which case
// queued loans wait for the next scheduled pass.
func NewSignGuarantorUseCase(deps Deps, sweep *SweepLiquidityQueueUseCase) *SignGuarantorUseCase {
	return &SignGuarantorUseCase{deps: deps, sweep: sweep}
}

// Execute signs the loan. A loan landing in the queue triggers a sweep once
// the signature has committed; a sweep failure does not undo the signature.
func (uc *SignGuarantorUseCase) Execute(ctx context.Context, req dto.SignGuarantorRequest) (resp dto.LoanResponse, err error) {
	defer func() { recordOutcome(ctx, "sign_guarantor", err) }()

	loan, err := uc.sign(ctx, req)
	if err != nil {
		return dto.LoanResponse{}, err
	}

	if uc.sweep != nil && loan.State().Equal(valueobject.LoanStateLiquidityQueue) {
		if _, err := uc.sweep.Execute(ctx, dto.SweepLiquidityQueueRequest{}); err != nil {
			uc.deps.logger().Error("sweep after guarantor signature failed",
				"loan_id", loan.ID(),
				"error", err,
			)
		} else if reloaded, err := uc.deps.Loans.FindByID(ctx, loan.ID()); err == nil {
			loan = reloaded
		}
	}
	return toLoanResponse(loan), nil
}

func (uc *SignGuarantorUseCase) sign(ctx context.Context, req dto.SignGuarantorRequest) (model.Loan, error) {
	if strings.TrimSpace(req.Token) == "" {
		return model.Loan{}, valueobject.Invalid("guarantor token is required")
	}
	loan, err := uc.deps.Loans.FindByID(ctx, req.LoanID)
	if err != nil {
		return model.Loan{}, fmt.Errorf("find loan: %w", err)
	}
	release, err := acquire(ctx, uc.deps.Locker,
		port.MemberLockKey(loan.MemberID()), port.LoanLockKey(loan.ID()))
	if err != nil {
		return model.Loan{}, err
	}
	defer release()

	now := uc.deps.now()
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err = uc.deps.Loans.FindByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		loan, err = loan.SignByGuarantor(req.GuarantorID, req.Token, req.SignatureReference, now)
		if err != nil {
			return fmt.Errorf("sign loan: %w", err)
		}
		if err := uc.deps.Loans.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return storeEvents(ctx, uc.deps.Outbox, loan.DomainEvents()...)
	})
	if err != nil {
		return model.Loan{}, err
	}
	return loan, nil
}
