package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// RegisterMemberUseCase opens a member account with its opening balances.
type RegisterMemberUseCase struct {
	deps Deps
}

// NewRegisterMemberUseCase wires dependencies.
func NewRegisterMemberUseCase(deps Deps) *RegisterMemberUseCase {
	return &RegisterMemberUseCase{deps: deps}
}

// Execute registers the member. A non-empty SanctionedUntil imports an open
// sanction window and suspends the account.
func (uc *RegisterMemberUseCase) Execute(ctx context.Context, req dto.RegisterMemberRequest) (resp dto.MemberResponse, err error) {
	defer func() { recordOutcome(ctx, "register_member", err) }()

	reg := model.MemberRegistration{
		MemberID:         req.MemberID,
		FullName:         req.FullName,
		Shares:           req.Shares,
		OpeningSavings:   req.OpeningSavings,
		LastContribution: req.LastContribution,
	}
	if req.Status != "" {
		reg.Status, err = valueobject.NewMembershipStatus(req.Status)
		if err != nil {
			return dto.MemberResponse{}, err
		}
	}
	if err := requireID(req.MemberID, "member ID"); err != nil {
		return dto.MemberResponse{}, err
	}

	release, err := acquire(ctx, uc.deps.Locker, port.MemberLockKey(req.MemberID))
	if err != nil {
		return dto.MemberResponse{}, err
	}
	defer release()

	now := uc.deps.now()
	var account model.MemberAccount
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := uc.deps.Members.FindByMemberID(ctx, req.MemberID)
		switch {
		case err == nil:
			return valueobject.Invalid("member %s is already registered", req.MemberID)
		case !isNotFound(err):
			return fmt.Errorf("find member: %w", err)
		}

		account, err = model.NewMemberAccount(reg, now)
		if err != nil {
			return fmt.Errorf("register member: %w", err)
		}
		if req.SanctionedUntil != nil {
			account, err = account.Sanction(*req.SanctionedUntil, now)
			if err != nil {
				return fmt.Errorf("import sanction: %w", err)
			}
		}
		if err := uc.deps.Members.Save(ctx, account); err != nil {
			return fmt.Errorf("save member: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.MemberResponse{}, err
	}
	return toMemberResponse(account), nil
}
