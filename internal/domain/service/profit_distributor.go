package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/money"
)

// valuePerSharePlaces is the precision of the per-share profit before it is
// multiplied back out and rounded to cents.
const valuePerSharePlaces = 8

// ProfitDistribution is the result of one monthly close.
type ProfitDistribution struct {
	Summary model.ProfitClose
	Records []model.ProfitRecord
}

// MemberCredit is one member's settled profit for a year.
type MemberCredit struct {
	MemberID uuid.UUID
	Amount   decimal.Decimal
}

// ProfitDistributor allocates monthly net profit to members current on dues.
type ProfitDistributor struct {
	accrual *AccrualCalculator
}

// NewProfitDistributor creates a ProfitDistributor.
func NewProfitDistributor(accrual *AccrualCalculator) *ProfitDistributor {
	return &ProfitDistributor{accrual: accrual}
}

// Distribute allocates net profit pro rata by shares among current members.
// Every enrolled member gets exactly one record; members who are not current,
// and everyone when there is no profit, get an explicit zero.
func (d *ProfitDistributor) Distribute(
	period valueobject.Period,
	income, expenses decimal.Decimal,
	members []model.MemberAccount,
	now time.Time,
) ProfitDistribution {
	net := income.Sub(expenses)

	enrolled := make([]model.MemberAccount, 0, len(members))
	eligibleShares := 0
	for _, m := range members {
		if !m.Status().IsEnrolled() {
			continue
		}
		enrolled = append(enrolled, m)
		if IsCurrent(m.LastContribution(), period) {
			eligibleShares += m.Shares()
		}
	}
	sort.Slice(enrolled, func(i, j int) bool {
		return enrolled[i].MemberID().String() < enrolled[j].MemberID().String()
	})

	vps := decimal.Zero
	if net.IsPositive() && eligibleShares > 0 {
		vps = net.DivRound(decimal.NewFromInt(int64(eligibleShares)), valuePerSharePlaces)
	}

	summary := model.ProfitClose{
		Period:         period,
		Income:         income,
		Expenses:       expenses,
		NetProfit:      net,
		EligibleShares: eligibleShares,
		ValuePerShare:  vps,
		TotalAllocated: decimal.Zero,
		MembersCovered: len(enrolled),
		ClosedAt:       now,
	}
	records := make([]model.ProfitRecord, 0, len(enrolled))
	for _, m := range enrolled {
		eligible := IsCurrent(m.LastContribution(), period)
		amount := decimal.Zero
		if eligible {
			summary.EligibleMembers++
			amount = money.Round2(decimal.NewFromInt(int64(m.Shares())).Mul(vps))
		}
		summary.TotalAllocated = summary.TotalAllocated.Add(amount)
		records = append(records, model.ProfitRecord{
			ID:              uuid.New(),
			MemberID:        m.MemberID(),
			Period:          period,
			SharesSnapshot:  m.Shares(),
			Eligible:        eligible,
			AllocatedAmount: amount,
			State:           valueobject.ProfitProvisional,
			CreatedAt:       now,
		})
	}
	return ProfitDistribution{Summary: summary, Records: records}
}

// CheckFinalization blocks the annual close for the whole fund if any active
// member is delinquent on dues at asOf.
func (d *ProfitDistributor) CheckFinalization(members []model.MemberAccount, asOf time.Time) error {
	for _, m := range members {
		if !m.IsActive() {
			continue
		}
		if d.accrual.IsDelinquent(m.Shares(), m.LastContribution(), asOf) {
			return valueobject.NewPolicyViolation("annual close blocked: member %s is delinquent on dues", m.MemberID())
		}
	}
	return nil
}

// Finalize settles the provisional records of a year and returns the credit
// per member, ordered by member ID.
func (d *ProfitDistributor) Finalize(year int, records []model.ProfitRecord, now time.Time) ([]model.ProfitRecord, []MemberCredit, error) {
	totals := make(map[uuid.UUID]decimal.Decimal)
	settled := make([]model.ProfitRecord, 0, len(records))
	for _, r := range records {
		if r.Period.Year() != year || r.State != valueobject.ProfitProvisional {
			continue
		}
		s, err := r.Settle(now)
		if err != nil {
			return nil, nil, fmt.Errorf("settle profit record %s: %w", r.ID, err)
		}
		settled = append(settled, s)
		totals[r.MemberID] = totals[r.MemberID].Add(r.AllocatedAmount)
	}

	credits := make([]MemberCredit, 0, len(totals))
	for id, amount := range totals {
		credits = append(credits, MemberCredit{MemberID: id, Amount: amount})
	}
	sort.Slice(credits, func(i, j int) bool {
		return credits[i].MemberID.String() < credits[j].MemberID.String()
	})
	return settled, credits, nil
}
