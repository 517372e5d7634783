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

// SweepLiquidityQueueUseCase promotes queued loans to treasury as liquidity
// frees up, oldest request first.
type SweepLiquidityQueueUseCase struct {
	deps      Deps
	liquidity *service.LiquidityLedger
}

// NewSweepLiquidityQueueUseCase wires dependencies.
func NewSweepLiquidityQueueUseCase(deps Deps) *SweepLiquidityQueueUseCase {
	return &SweepLiquidityQueueUseCase{
		deps:      deps,
		liquidity: service.NewLiquidityLedger(deps.Policy),
	}
}

// Execute runs one pass. The plan is computed from a single snapshot taken
// under the sweep lock; every promotion then commits on its own, so a failed
// promotion leaves earlier ones in place. Requests arriving mid-pass wait for
// the next one.
func (uc *SweepLiquidityQueueUseCase) Execute(ctx context.Context, req dto.SweepLiquidityQueueRequest) (resp dto.SweepResponse, err error) {
	defer func() { recordOutcome(ctx, "sweep_liquidity_queue", err) }()

	release, err := acquire(ctx, uc.deps.Locker, port.SweepLockKey)
	if err != nil {
		return dto.SweepResponse{}, err
	}
	defer release()

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = uc.deps.now()
	}

	snapshot, err := liquiditySnapshot(ctx, uc.deps, uc.liquidity)
	if err != nil {
		return dto.SweepResponse{}, err
	}
	queue, err := uc.deps.Loans.ListByState(ctx, valueobject.LoanStateLiquidityQueue)
	if err != nil {
		return dto.SweepResponse{}, fmt.Errorf("list queued loans: %w", err)
	}
	plan := uc.liquidity.PlanSweep(snapshot, queue, asOf)

	resp = dto.SweepResponse{
		Promoted:  []uuid.UUID{},
		Skipped:   loanIDs(plan.Skipped),
		Deferred:  plan.Deferred,
		Remaining: plan.Remaining,
	}
	for _, loan := range plan.Admitted {
		if err := uc.promote(ctx, loan); err != nil {
			uc.deps.logger().Error("liquidity promotion failed",
				"loan_id", loan.ID(),
				"member_id", loan.MemberID(),
				"error", err,
			)
			resp.Failed = append(resp.Failed, loan.ID())
			continue
		}
		resp.Promoted = append(resp.Promoted, loan.ID())
	}

	queuePromotions.Add(ctx, int64(len(resp.Promoted)))
	if len(resp.Promoted) > 0 || len(resp.Failed) > 0 {
		uc.deps.logger().Info("liquidity sweep finished",
			"promoted", len(resp.Promoted),
			"skipped", len(resp.Skipped),
			"failed", len(resp.Failed),
			"remaining", plan.Remaining.String(),
		)
	}
	return resp, nil
}

// promote moves one planned loan to treasury in its own transaction. The
// version check guards against a loan changed since the snapshot.
func (uc *SweepLiquidityQueueUseCase) promote(ctx context.Context, planned model.Loan) error {
	release, err := acquire(ctx, uc.deps.Locker,
		port.MemberLockKey(planned.MemberID()), port.LoanLockKey(planned.ID()))
	if err != nil {
		return err
	}
	defer release()

	now := uc.deps.now()
	return uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		loan, err := uc.deps.Loans.FindByID(ctx, planned.ID())
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		if loan.Version() != planned.Version() {
			return fmt.Errorf("%w: loan %s changed since the sweep snapshot",
				valueobject.ErrConcurrentModification, loan.ID())
		}
		loan, err = loan.PromoteFromQueue(now)
		if err != nil {
			return fmt.Errorf("promote loan: %w", err)
		}
		if err := uc.deps.Loans.Save(ctx, loan); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return storeEvents(ctx, uc.deps.Outbox, loan.DomainEvents()...)
	})
}

func loanIDs(loans []model.Loan) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(loans))
	for _, l := range loans {
		out = append(out, l.ID())
	}
	return out
}
