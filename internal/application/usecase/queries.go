package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/service"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// GetDebtSnapshotUseCase reports what a member owes.
type GetDebtSnapshotUseCase struct {
	deps    Deps
	accrual *service.AccrualCalculator
}

// NewGetDebtSnapshotUseCase wires dependencies.
func NewGetDebtSnapshotUseCase(deps Deps) *GetDebtSnapshotUseCase {
	return &GetDebtSnapshotUseCase{deps: deps, accrual: service.NewAccrualCalculator(deps.Policy)}
}

// Execute computes the snapshot as of the reference date.
func (uc *GetDebtSnapshotUseCase) Execute(ctx context.Context, req dto.GetDebtSnapshotRequest) (dto.DebtSnapshotResponse, error) {
	account, err := uc.deps.Members.FindByMemberID(ctx, req.MemberID)
	if err != nil {
		return dto.DebtSnapshotResponse{}, fmt.Errorf("find member: %w", err)
	}
	ref := req.ReferenceDate
	if ref.IsZero() {
		ref = uc.deps.now()
	}
	debt, _, _, err := debtSnapshot(ctx, uc.deps, uc.accrual, account, ref)
	if err != nil {
		return dto.DebtSnapshotResponse{}, err
	}
	return dto.DebtSnapshotResponse{
		MemberID:        account.MemberID(),
		ReferenceDate:   ref,
		SavingsDue:      debt.Dues.SavingsDue,
		AdminFeeDue:     debt.Dues.FeeDue,
		PenaltyDue:      debt.Dues.PenaltyDue,
		MonthsOwed:      debt.Dues.MonthsOwed,
		DaysLate:        debt.Dues.DaysLate,
		LoanInterestDue: debt.LoanInterestDue,
		LoanOutstanding: debt.LoanOutstanding,
		AdminDebt:       debt.AdminDebt(),
		LoanDebt:        debt.LoanDebt(),
		TotalDebt:       debt.TotalDebt(),
		Delinquent:      debt.Dues.IsDelinquent(),
	}, nil
}

// GetLendableCashUseCase reports the fund's liquidity.
type GetLendableCashUseCase struct {
	deps      Deps
	liquidity *service.LiquidityLedger
}

// NewGetLendableCashUseCase wires dependencies.
func NewGetLendableCashUseCase(deps Deps) *GetLendableCashUseCase {
	return &GetLendableCashUseCase{deps: deps, liquidity: service.NewLiquidityLedger(deps.Policy)}
}

// Execute derives a fresh snapshot from the ledger.
func (uc *GetLendableCashUseCase) Execute(ctx context.Context, _ dto.GetLendableCashRequest) (dto.LendableCashResponse, error) {
	snap, err := liquiditySnapshot(ctx, uc.deps, uc.liquidity)
	if err != nil {
		return dto.LendableCashResponse{}, err
	}
	return dto.LendableCashResponse{
		Inflows:            snap.Totals.Inflows,
		Outflows:           snap.Totals.Outflows,
		DisbursedPrincipal: snap.DisbursedPrincipal,
		SecretarialReserve: snap.SecretarialReserve(),
		LendableCash:       snap.LendableCash(),
		Reserved:           snap.Reserved,
		Headroom:           snap.Headroom(),
	}, nil
}

// GetLoanScheduleUseCase returns a loan's materialized schedule.
type GetLoanScheduleUseCase struct {
	deps Deps
}

// NewGetLoanScheduleUseCase wires dependencies.
func NewGetLoanScheduleUseCase(deps Deps) *GetLoanScheduleUseCase {
	return &GetLoanScheduleUseCase{deps: deps}
}

// Execute loads the loan and summarizes its schedule.
func (uc *GetLoanScheduleUseCase) Execute(ctx context.Context, req dto.GetLoanScheduleRequest) (dto.ScheduleResponse, error) {
	loan, err := uc.deps.Loans.FindByID(ctx, req.LoanID)
	if err != nil {
		return dto.ScheduleResponse{}, fmt.Errorf("find loan: %w", err)
	}
	return toScheduleResponse(loan.ID(), loan), nil
}

// PreviewScheduleUseCase shows the schedule a loan would get if disbursed on
// the start date, at the fund's rate for its type.
type PreviewScheduleUseCase struct {
	deps Deps
}

// NewPreviewScheduleUseCase wires dependencies.
func NewPreviewScheduleUseCase(deps Deps) *PreviewScheduleUseCase {
	return &PreviewScheduleUseCase{deps: deps}
}

// Execute builds the schedule without persisting anything.
func (uc *PreviewScheduleUseCase) Execute(_ context.Context, req dto.PreviewScheduleRequest) (dto.ScheduleResponse, error) {
	loanType, err := valueobject.NewLoanType(req.Type)
	if err != nil {
		return dto.ScheduleResponse{}, err
	}
	if !req.Amount.IsPositive() {
		return dto.ScheduleResponse{}, valueobject.Invalid("amount must be positive")
	}
	term := req.TermMonths
	if loanType.IsExpress() {
		term = 1
	} else if term < 1 || term > uc.deps.Policy.MaxStandardTermMonths {
		return dto.ScheduleResponse{}, valueobject.Invalid("standard loan term must be between 1 and %d months",
			uc.deps.Policy.MaxStandardTermMonths)
	}
	start := req.StartDate
	if start.IsZero() {
		start = uc.deps.now()
	}

	rate := uc.deps.Policy.RatePctFor(loanType)
	schedule, summary := model.BuildSchedule(model.ScheduleInput{
		Principal:      req.Amount,
		MonthlyRatePct: rate,
		TermMonths:     term,
		StartDate:      start,
		LoanType:       loanType,
	})
	return dto.ScheduleResponse{
		LoanID:         uuid.Nil,
		MonthlyRatePct: rate,
		Installments:   toInstallments(schedule),
		TotalPrincipal: summary.TotalPrincipal,
		TotalInterest:  summary.TotalInterest,
		TotalPayable:   summary.TotalPayable,
	}, nil
}
