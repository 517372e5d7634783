package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/service"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// MonthlyCloseUseCase computes the month's net profit and writes one
// provisional record per enrolled member.
type MonthlyCloseUseCase struct {
	deps        Deps
	distributor *service.ProfitDistributor
}

// NewMonthlyCloseUseCase wires dependencies.
func NewMonthlyCloseUseCase(deps Deps) *MonthlyCloseUseCase {
	return &MonthlyCloseUseCase{
		deps:        deps,
		distributor: service.NewProfitDistributor(service.NewAccrualCalculator(deps.Policy)),
	}
}

// Execute closes the period. Closing a period twice returns the first summary.
func (uc *MonthlyCloseUseCase) Execute(ctx context.Context, req dto.MonthlyCloseRequest) (resp dto.MonthlyCloseResponse, err error) {
	defer func() { recordOutcome(ctx, "monthly_close", err) }()

	period, err := valueobject.NewPeriod(req.Year, req.Month)
	if err != nil {
		return dto.MonthlyCloseResponse{}, err
	}
	now := uc.deps.now()
	if now.Before(period.End()) {
		return dto.MonthlyCloseResponse{}, valueobject.NewPolicyViolation("period %s has not ended", period)
	}

	release, err := acquire(ctx, uc.deps.Locker, port.ProfitCloseLockKey)
	if err != nil {
		return dto.MonthlyCloseResponse{}, err
	}
	defer release()

	existing, err := uc.deps.Profits.FindMonthlyClose(ctx, period)
	switch {
	case err == nil:
		return toMonthlyCloseResponse(existing, true), nil
	case !isNotFound(err):
		return dto.MonthlyCloseResponse{}, fmt.Errorf("find monthly close: %w", err)
	}

	var summary model.ProfitClose
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		income, err := uc.deps.Cash.SumByCategories(ctx, period.Start(), period.End(),
			valueobject.ProfitIncomeCategories()...)
		if err != nil {
			return fmt.Errorf("sum income: %w", err)
		}
		expenses, err := uc.deps.Cash.SumByCategories(ctx, period.Start(), period.End(),
			valueobject.CategoryOperatingExpense)
		if err != nil {
			return fmt.Errorf("sum expenses: %w", err)
		}
		members, err := uc.deps.Members.ListEnrolled(ctx)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}

		dist := uc.distributor.Distribute(period, income, expenses, members, now)
		if err := uc.deps.Profits.SaveMonthlyClose(ctx, dist.Summary, dist.Records); err != nil {
			return fmt.Errorf("save monthly close: %w", err)
		}
		summary = dist.Summary
		return nil
	})
	if err != nil {
		return dto.MonthlyCloseResponse{}, err
	}

	uc.deps.logger().Info("monthly close",
		"period", period.String(),
		"net_profit", summary.NetProfit.String(),
		"value_per_share", summary.ValuePerShare.String(),
		"members", summary.MembersCovered,
	)
	return toMonthlyCloseResponse(summary, false), nil
}

// AnnualCloseUseCase settles a year's provisional profit into members'
// retained earnings.
type AnnualCloseUseCase struct {
	deps        Deps
	distributor *service.ProfitDistributor
}

// NewAnnualCloseUseCase wires dependencies.
func NewAnnualCloseUseCase(deps Deps) *AnnualCloseUseCase {
	return &AnnualCloseUseCase{
		deps:        deps,
		distributor: service.NewProfitDistributor(service.NewAccrualCalculator(deps.Policy)),
	}
}

// Execute finalizes the year. It is blocked while any active member is
// delinquent on dues, and a second close of the same year is a no-op.
func (uc *AnnualCloseUseCase) Execute(ctx context.Context, req dto.AnnualCloseRequest) (resp dto.AnnualCloseResponse, err error) {
	defer func() { recordOutcome(ctx, "annual_close", err) }()

	if req.Year <= 0 {
		return dto.AnnualCloseResponse{}, valueobject.Invalid("year must be positive, got %d", req.Year)
	}
	release, err := acquire(ctx, uc.deps.Locker, port.ProfitCloseLockKey)
	if err != nil {
		return dto.AnnualCloseResponse{}, err
	}
	defer release()

	existing, err := uc.deps.Profits.FindAnnualClose(ctx, req.Year)
	switch {
	case err == nil:
		return toAnnualCloseResponse(existing, true), nil
	case !isNotFound(err):
		return dto.AnnualCloseResponse{}, fmt.Errorf("find annual close: %w", err)
	}

	now := uc.deps.now()
	members, err := uc.deps.Members.ListEnrolled(ctx)
	if err != nil {
		return dto.AnnualCloseResponse{}, fmt.Errorf("list members: %w", err)
	}
	if err := uc.distributor.CheckFinalization(members, now); err != nil {
		return dto.AnnualCloseResponse{}, err
	}

	records, err := uc.deps.Profits.ListRecordsByYear(ctx, req.Year)
	if err != nil {
		return dto.AnnualCloseResponse{}, fmt.Errorf("list profit records: %w", err)
	}
	settled, credits, err := uc.distributor.Finalize(req.Year, records, now)
	if err != nil {
		return dto.AnnualCloseResponse{}, err
	}

	keys := make([]string, 0, len(credits))
	for _, c := range credits {
		keys = append(keys, port.MemberLockKey(c.MemberID))
	}
	releaseMembers, err := acquire(ctx, uc.deps.Locker, keys...)
	if err != nil {
		return dto.AnnualCloseResponse{}, err
	}
	defer releaseMembers()

	marker := model.AnnualClose{Year: req.Year, TotalSettled: decimal.Zero, ClosedAt: now}
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.deps.Profits.UpdateRecords(ctx, settled); err != nil {
			return fmt.Errorf("settle profit records: %w", err)
		}
		for _, credit := range credits {
			if !credit.Amount.IsPositive() {
				continue
			}
			account, err := uc.deps.Members.FindByMemberID(ctx, credit.MemberID)
			if err != nil {
				return fmt.Errorf("find member: %w", err)
			}
			account, err = account.CreditRetainedEarnings(credit.Amount, now)
			if err != nil {
				return fmt.Errorf("credit retained earnings: %w", err)
			}
			if err := uc.deps.Members.Save(ctx, account); err != nil {
				return fmt.Errorf("save member: %w", err)
			}
			marker.MembersCredited++
			marker.TotalSettled = marker.TotalSettled.Add(credit.Amount)
		}
		if err := uc.deps.Profits.SaveAnnualClose(ctx, marker); err != nil {
			return fmt.Errorf("save annual close: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.AnnualCloseResponse{}, err
	}

	uc.deps.logger().Info("annual close",
		"year", req.Year,
		"members_credited", marker.MembersCredited,
		"total_settled", marker.TotalSettled.String(),
	)
	return toAnnualCloseResponse(marker, false), nil
}

func toAnnualCloseResponse(c model.AnnualClose, already bool) dto.AnnualCloseResponse {
	return dto.AnnualCloseResponse{
		Year:            c.Year,
		MembersCredited: c.MembersCredited,
		TotalSettled:    c.TotalSettled,
		ClosedAt:        c.ClosedAt,
		AlreadyClosed:   already,
	}
}
