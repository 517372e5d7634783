package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/event"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/service"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// DisburseLoanUseCase releases an approved loan. It materializes the
// amortization schedule and nets out a refinanced loan, then renders the
// contract once the disbursement has committed.
type DisburseLoanUseCase struct {
	deps      Deps
	liquidity *service.LiquidityLedger
	documents port.DocumentGenerator
}

// NewDisburseLoanUseCase wires dependencies. documents may be nil.
func NewDisburseLoanUseCase(deps Deps, documents port.DocumentGenerator) *DisburseLoanUseCase {
	return &DisburseLoanUseCase{
		deps:      deps,
		liquidity: service.NewLiquidityLedger(deps.Policy),
		documents: documents,
	}
}

// Execute disburses a loan in PENDING_TREASURY.
func (uc *DisburseLoanUseCase) Execute(ctx context.Context, req dto.DisburseLoanRequest) (resp dto.LoanResponse, err error) {
	defer func() { recordOutcome(ctx, "disburse_loan", err) }()

	// 1. Retrieve the loan to learn which aggregates to lock.
	loan, err := uc.deps.Loans.FindByID(ctx, req.LoanID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("find loan: %w", err)
	}
	keys := []string{port.MemberLockKey(loan.MemberID()), port.LoanLockKey(loan.ID())}
	if loan.IsRefinancing() {
		keys = append(keys, port.LoanLockKey(loan.RefinancesLoanID()))
	}
	release, err := acquire(ctx, uc.deps.Locker, keys...)
	if err != nil {
		return dto.LoanResponse{}, err
	}
	defer release()

	now := uc.deps.now()
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err = uc.deps.Loans.FindByID(ctx, req.LoanID)
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		if !loan.State().Equal(valueobject.LoanStatePendingTreasury) {
			return fmt.Errorf("%w: loan %s is %s, not %s", valueobject.ErrInvalidStatusTransition,
				loan.ID(), loan.State(), valueobject.LoanStatePendingTreasury)
		}

		// 2. Settle the refinanced loan by netting.
		netted := decimal.Zero
		var prior model.Loan
		settled := false
		if loan.IsRefinancing() {
			prior, err = uc.deps.Loans.FindByID(ctx, loan.RefinancesLoanID())
			if err != nil {
				return fmt.Errorf("find refinanced loan: %w", err)
			}
			if prior.State().IsOutstanding() {
				prior, netted, err = prior.SettleByRefinancing(loan.ID(), now)
				if err != nil {
					return fmt.Errorf("settle refinanced loan: %w", err)
				}
				settled = true
			}
		}

		// 3. Check the release fits in lendable cash.
		snapshot, err := liquiditySnapshot(ctx, uc.deps, uc.liquidity)
		if err != nil {
			return err
		}
		if err := uc.liquidity.CanDisburse(snapshot, loan.PrincipalRequested(), netted, now); err != nil {
			return err
		}

		// 4. Materialize the schedule and activate the loan.
		schedule, _ := model.BuildSchedule(model.ScheduleInput{
			Principal:      loan.PrincipalRequested(),
			MonthlyRatePct: loan.MonthlyRatePct(),
			TermMonths:     loan.TermMonths(),
			StartDate:      now,
			LoanType:       loan.Type(),
		})
		loan, err = loan.Disburse(req.DisbursementNote, netted, schedule, now)
		if err != nil {
			return fmt.Errorf("disburse loan: %w", err)
		}

		// 5. Persist.
		if err := uc.deps.Loans.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		evts := append([]event.DomainEvent{}, loan.DomainEvents()...)
		if settled {
			if err := uc.deps.Loans.Save(ctx, prior); err != nil {
				return fmt.Errorf("save refinanced loan: %w", err)
			}
			movement, err := model.NewCashMovement(valueobject.CategoryLoanRepayment, netted, now,
				fmt.Sprintf("refinancing netting by loan %s", loan.ID()))
			if err != nil {
				return fmt.Errorf("netting movement: %w", err)
			}
			if err := uc.deps.Cash.Append(ctx, movement.ForMember(loan.MemberID()).ForLoan(prior.ID())); err != nil {
				return fmt.Errorf("append netting movement: %w", err)
			}
			evts = append(evts, prior.DomainEvents()...)
		}
		return storeEvents(ctx, uc.deps.Outbox, evts...)
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}

	addAmount(ctx, loansDisbursedAmount, loan.PrincipalApproved())
	// Contract rendering takes the loan lock itself.
	release()
	resp = toLoanResponse(loan)
	if ref := uc.generateContract(ctx, loan); ref != "" {
		resp.ContractPending = false
		resp.ContractRef = ref
	}
	return resp, nil
}

// generateContract runs after commit. On failure the loan stays
// contract-pending and GenerateContractsUseCase picks it up later.
func (uc *DisburseLoanUseCase) generateContract(ctx context.Context, loan model.Loan) string {
	if uc.documents == nil {
		return ""
	}
	ref, err := attachContract(ctx, uc.deps, uc.documents, loan)
	if err != nil {
		uc.deps.logger().Error("contract generation failed",
			"loan_id", loan.ID(),
			"member_id", loan.MemberID(),
			"error", err,
		)
		return ""
	}
	uc.deps.logger().Info("contract generated", "loan_id", loan.ID(), "document_ref", ref)
	return ref
}
