package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// RequestWithdrawalUseCase records a member's request to leave the fund.
type RequestWithdrawalUseCase struct {
	deps Deps
}

// NewRequestWithdrawalUseCase wires dependencies.
func NewRequestWithdrawalUseCase(deps Deps) *RequestWithdrawalUseCase {
	return &RequestWithdrawalUseCase{deps: deps}
}

// Execute opens a pending withdrawal. Members with an outstanding loan or an
// undecided withdrawal are turned away.
func (uc *RequestWithdrawalUseCase) Execute(ctx context.Context, req dto.RequestWithdrawalRequest) (resp dto.WithdrawalResponse, err error) {
	defer func() { recordOutcome(ctx, "request_withdrawal", err) }()

	if err := requireID(req.MemberID, "member ID"); err != nil {
		return dto.WithdrawalResponse{}, err
	}
	release, err := acquire(ctx, uc.deps.Locker, port.MemberLockKey(req.MemberID))
	if err != nil {
		return dto.WithdrawalResponse{}, err
	}
	defer release()

	now := uc.deps.now()
	var w model.Withdrawal
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		account, err := uc.deps.Members.FindByMemberID(ctx, req.MemberID)
		if err != nil {
			return fmt.Errorf("find member: %w", err)
		}
		if !account.Status().IsEnrolled() {
			return valueobject.NewPolicyViolation("member %s is %s and cannot withdraw", req.MemberID, account.Status())
		}
		if err := ensureNoOutstandingLoan(ctx, uc.deps, req.MemberID); err != nil {
			return err
		}

		_, err = uc.deps.Withdrawals.FindPendingByMember(ctx, req.MemberID)
		switch {
		case err == nil:
			return valueobject.NewPolicyViolation("duplicate pending withdrawal for member %s", req.MemberID)
		case !isNotFound(err):
			return fmt.Errorf("find pending withdrawal: %w", err)
		}

		w, err = model.NewWithdrawal(req.MemberID, req.Reason, now)
		if err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}
		if err := uc.deps.Withdrawals.Save(ctx, w); err != nil {
			return fmt.Errorf("save withdrawal: %w", err)
		}
		return storeEvents(ctx, uc.deps.Outbox, w.DomainEvents()...)
	})
	if err != nil {
		return dto.WithdrawalResponse{}, err
	}
	return toWithdrawalResponse(w), nil
}

// DecideWithdrawalUseCase is treasury's decision on a pending withdrawal.
type DecideWithdrawalUseCase struct {
	deps Deps
}

// NewDecideWithdrawalUseCase wires dependencies.
func NewDecideWithdrawalUseCase(deps Deps) *DecideWithdrawalUseCase {
	return &DecideWithdrawalUseCase{deps: deps}
}

// Execute approves or rejects the withdrawal. Approval pays out savings and
// retained earnings, books the payout as an outflow, and marks the member
// WITHDRAWN.
func (uc *DecideWithdrawalUseCase) Execute(ctx context.Context, req dto.DecideWithdrawalRequest) (resp dto.WithdrawalResponse, err error) {
	defer func() { recordOutcome(ctx, "decide_withdrawal", err) }()

	if err := requireID(req.ApproverID, "approver ID"); err != nil {
		return dto.WithdrawalResponse{}, err
	}
	w, err := uc.deps.Withdrawals.FindByID(ctx, req.WithdrawalID)
	if err != nil {
		return dto.WithdrawalResponse{}, fmt.Errorf("find withdrawal: %w", err)
	}
	release, err := acquire(ctx, uc.deps.Locker, port.MemberLockKey(w.MemberID()))
	if err != nil {
		return dto.WithdrawalResponse{}, err
	}
	defer release()

	now := uc.deps.now()
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		w, err = uc.deps.Withdrawals.FindByID(ctx, req.WithdrawalID)
		if err != nil {
			return fmt.Errorf("find withdrawal: %w", err)
		}
		if !req.Approve {
			w, err = w.Reject(req.ApproverID, req.Note, now)
			if err != nil {
				return fmt.Errorf("reject withdrawal: %w", err)
			}
			if err := uc.deps.Withdrawals.Save(ctx, w); err != nil {
				return fmt.Errorf("save withdrawal: %w", err)
			}
			return storeEvents(ctx, uc.deps.Outbox, w.DomainEvents()...)
		}

		if w.State() != valueobject.ApprovalPending {
			return fmt.Errorf("%w: withdrawal %s is already %s",
				valueobject.ErrInvalidStatusTransition, w.ID(), w.State())
		}
		if err := ensureNoOutstandingLoan(ctx, uc.deps, w.MemberID()); err != nil {
			return err
		}
		account, err := uc.deps.Members.FindByMemberID(ctx, w.MemberID())
		if err != nil {
			return fmt.Errorf("find member: %w", err)
		}
		account, payout, err := account.SettleWithdrawal(now)
		if err != nil {
			return fmt.Errorf("settle account: %w", err)
		}
		w, err = w.Approve(req.ApproverID, payout, req.Note, now)
		if err != nil {
			return fmt.Errorf("approve withdrawal: %w", err)
		}

		if payout.IsPositive() {
			m, err := model.NewCashMovement(valueobject.CategoryWithdrawal, payout, now,
				fmt.Sprintf("withdrawal %s payout", w.ID()))
			if err != nil {
				return fmt.Errorf("payout movement: %w", err)
			}
			if err := uc.deps.Cash.Append(ctx, m.ForMember(w.MemberID())); err != nil {
				return fmt.Errorf("append payout movement: %w", err)
			}
		}
		if err := uc.deps.Members.Save(ctx, account); err != nil {
			return fmt.Errorf("save member: %w", err)
		}
		if err := uc.deps.Withdrawals.Save(ctx, w); err != nil {
			return fmt.Errorf("save withdrawal: %w", err)
		}
		return storeEvents(ctx, uc.deps.Outbox, w.DomainEvents()...)
	})
	if err != nil {
		return dto.WithdrawalResponse{}, err
	}
	return toWithdrawalResponse(w), nil
}

func ensureNoOutstandingLoan(ctx context.Context, deps Deps, memberID uuid.UUID) error {
	loans, err := deps.Loans.ListByMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("list loans: %w", err)
	}
	if loan, ok := outstandingLoan(loans); ok {
		return valueobject.NewPolicyViolation("outstanding loan blocks withdrawal: loan %s owes %s",
			loan.ID(), loan.OutstandingBalance())
	}
	return nil
}
