package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/valueobject"
)

// ProfitRecord is one member's share of one month's net profit. Every
// enrolled member gets a record, with a zero allocation when not current.
type ProfitRecord struct {
	ID              uuid.UUID
	MemberID        uuid.UUID
	Period          valueobject.Period
	SharesSnapshot  int
	Eligible        bool
	AllocatedAmount decimal.Decimal
	State           valueobject.ProfitState
	CreatedAt       time.Time
	SettledAt       *time.Time
}

// Settle marks a provisional record as settled.
func (r ProfitRecord) Settle(now time.Time) (ProfitRecord, error) {
	if r.State != valueobject.ProfitProvisional {
		return r, fmt.Errorf("%w: profit record %s is already %s",
			valueobject.ErrInvalidStatusTransition, r.ID, r.State)
	}
	r.State = valueobject.ProfitSettled
	at := now
	r.SettledAt = &at
	return r, nil
}

// ProfitClose summarizes one monthly close. Its presence makes the close of
// that period a no-op.
type ProfitClose struct {
	Period          valueobject.Period
	Income          decimal.Decimal
	Expenses        decimal.Decimal
	NetProfit       decimal.Decimal
	EligibleShares  int
	ValuePerShare   decimal.Decimal
	TotalAllocated  decimal.Decimal
	MembersCovered  int
	EligibleMembers int
	ClosedAt        time.Time
}

// AnnualClose marks a finalized year.
type AnnualClose struct {
	Year            int
	MembersCredited int
	TotalSettled    decimal.Decimal
	ClosedAt        time.Time
}
