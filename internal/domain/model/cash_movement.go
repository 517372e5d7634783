package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/valueobject"
)

// CashMovement is one append-only entry of the fund's running-balance ledger.
// The direction follows from the category.
type CashMovement struct {
	ID         uuid.UUID
	Direction  valueobject.Direction
	Category   valueobject.CashCategory
	Amount     decimal.Decimal
	MemberID   uuid.UUID
	LoanID     uuid.UUID
	PaymentID  uuid.UUID
	OccurredAt time.Time
	Note       string
}

// NewCashMovement validates and builds a ledger entry.
func NewCashMovement(category valueobject.CashCategory, amount decimal.Decimal, occurredAt time.Time, note string) (CashMovement, error) {
	if _, err := valueobject.ParseCashCategory(string(category)); err != nil {
		return CashMovement{}, valueobject.Invalid("%s", err)
	}
	if !amount.IsPositive() {
		return CashMovement{}, valueobject.Invalid("cash movement amount must be positive")
	}
	if occurredAt.IsZero() {
		return CashMovement{}, valueobject.Invalid("cash movement date is required")
	}
	return CashMovement{
		ID:         uuid.New(),
		Direction:  category.Direction(),
		Category:   category,
		Amount:     amount,
		OccurredAt: occurredAt,
		Note:       note,
	}, nil
}

// ForMember tags the movement with the member it concerns.
func (m CashMovement) ForMember(id uuid.UUID) CashMovement {
	m.MemberID = id
	return m
}

// ForLoan tags the movement with a loan.
func (m CashMovement) ForLoan(id uuid.UUID) CashMovement {
	m.LoanID = id
	return m
}

// ForPayment tags the movement with the payment that produced it.
func (m CashMovement) ForPayment(id uuid.UUID) CashMovement {
	m.PaymentID = id
	return m
}

// CashTotals are the historical sums the liquidity snapshot is derived from.
type CashTotals struct {
	Inflows             decimal.Decimal
	Outflows            decimal.Decimal
	SecretarialInflows  decimal.Decimal
	SecretarialOutflows decimal.Decimal
}

// Add folds one movement into the totals.
func (t CashTotals) Add(m CashMovement) CashTotals {
	switch m.Direction {
	case valueobject.DirectionInflow:
		t.Inflows = t.Inflows.Add(m.Amount)
		if m.Category.IsSecretarial() {
			t.SecretarialInflows = t.SecretarialInflows.Add(m.Amount)
		}
	case valueobject.DirectionOutflow:
		t.Outflows = t.Outflows.Add(m.Amount)
		if m.Category.IsSecretarial() {
			t.SecretarialOutflows = t.SecretarialOutflows.Add(m.Amount)
		}
	}
	return t
}

// TotalsOf sums a list of movements.
func TotalsOf(movements []CashMovement) CashTotals {
	t := CashTotals{
		Inflows:             decimal.Zero,
		Outflows:            decimal.Zero,
		SecretarialInflows:  decimal.Zero,
		SecretarialOutflows: decimal.Zero,
	}
	for _, m := range movements {
		t = t.Add(m)
	}
	return t
}
