package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/valueobject"
)

// MemberAccount holds a member's equity in the fund. Balances never go
// negative; only withdrawal settlement brings them back to zero.
type MemberAccount struct {
	id               uuid.UUID
	memberID         uuid.UUID
	fullName         string
	shares           int
	savingsBalance   decimal.Decimal
	retainedEarnings decimal.Decimal
	lastContribution *time.Time
	status           valueobject.MembershipStatus
	sanctionedUntil  *time.Time
	version          int
	createdAt        time.Time
	updatedAt        time.Time
}

// MemberRegistration carries the opening state of a member account.
type MemberRegistration struct {
	MemberID         uuid.UUID
	FullName         string
	Shares           int
	OpeningSavings   decimal.Decimal
	LastContribution *time.Time
	Status           valueobject.MembershipStatus
}

// NewMemberAccount validates a registration and opens the account.
func NewMemberAccount(reg MemberRegistration, now time.Time) (MemberAccount, error) {
	if reg.MemberID == uuid.Nil {
		return MemberAccount{}, valueobject.Invalid("member ID is required")
	}
	if reg.Shares < 0 {
		return MemberAccount{}, valueobject.Invalid("share count must not be negative, got %d", reg.Shares)
	}
	if reg.OpeningSavings.IsNegative() {
		return MemberAccount{}, valueobject.Invalid("opening savings must not be negative")
	}
	status := reg.Status
	if status.IsZero() {
		status = valueobject.MembershipPending
	}
	return MemberAccount{
		id:               uuid.New(),
		memberID:         reg.MemberID,
		fullName:         reg.FullName,
		shares:           reg.Shares,
		savingsBalance:   reg.OpeningSavings,
		retainedEarnings: decimal.Zero,
		lastContribution: copyTime(reg.LastContribution),
		status:           status,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// MemberAccountRecord is the persisted form of a MemberAccount.
type MemberAccountRecord struct {
	ID               uuid.UUID
	MemberID         uuid.UUID
	FullName         string
	Shares           int
	SavingsBalance   decimal.Decimal
	RetainedEarnings decimal.Decimal
	LastContribution *time.Time
	Status           valueobject.MembershipStatus
	SanctionedUntil  *time.Time
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ReconstructMemberAccount rebuilds an account from persistence.
func ReconstructMemberAccount(r MemberAccountRecord) MemberAccount {
	return MemberAccount{
		id:               r.ID,
		memberID:         r.MemberID,
		fullName:         r.FullName,
		shares:           r.Shares,
		savingsBalance:   r.SavingsBalance,
		retainedEarnings: r.RetainedEarnings,
		lastContribution: copyTime(r.LastContribution),
		status:           r.Status,
		sanctionedUntil:  copyTime(r.SanctionedUntil),
		version:          r.Version,
		createdAt:        r.CreatedAt,
		updatedAt:        r.UpdatedAt,
	}
}

// Record returns the persisted form of the account.
func (a MemberAccount) Record() MemberAccountRecord {
	return MemberAccountRecord{
		ID:               a.id,
		MemberID:         a.memberID,
		FullName:         a.fullName,
		Shares:           a.shares,
		SavingsBalance:   a.savingsBalance,
		RetainedEarnings: a.retainedEarnings,
		LastContribution: copyTime(a.lastContribution),
		Status:           a.status,
		SanctionedUntil:  copyTime(a.sanctionedUntil),
		Version:          a.version,
		CreatedAt:        a.createdAt,
		UpdatedAt:        a.updatedAt,
	}
}

// ApplyContribution credits the savings part of an approved payment. When
// advanceTo is non-nil the last contribution date moves forward to it.
func (a MemberAccount) ApplyContribution(savings decimal.Decimal, advanceTo *time.Time, now time.Time) (MemberAccount, error) {
	if savings.IsNegative() {
		return a, valueobject.Invalid("savings credit must not be negative")
	}
	next := a
	next.savingsBalance = a.savingsBalance.Add(savings)
	if advanceTo != nil && (a.lastContribution == nil || advanceTo.After(*a.lastContribution)) {
		next.lastContribution = copyTime(advanceTo)
	}
	next.updatedAt = now
	return next, nil
}

// CreditRetainedEarnings adds settled profit at annual finalization.
func (a MemberAccount) CreditRetainedEarnings(amount decimal.Decimal, now time.Time) (MemberAccount, error) {
	if amount.IsNegative() {
		return a, valueobject.Invalid("retained earnings credit must not be negative")
	}
	next := a
	next.retainedEarnings = a.retainedEarnings.Add(amount)
	next.updatedAt = now
	return next, nil
}

// SettleWithdrawal zeroes both balances, marks the member WITHDRAWN and
// returns the payout.
func (a MemberAccount) SettleWithdrawal(now time.Time) (MemberAccount, decimal.Decimal, error) {
	if !a.status.IsEnrolled() {
		return a, decimal.Zero, valueobject.NewPolicyViolation("member %s is %s and cannot withdraw", a.memberID, a.status)
	}
	payout := a.savingsBalance.Add(a.retainedEarnings)
	next := a
	next.savingsBalance = decimal.Zero
	next.retainedEarnings = decimal.Zero
	next.status = valueobject.MembershipWithdrawn
	next.updatedAt = now
	return next, payout, nil
}

// Activate moves a pending or suspended member to ACTIVE.
func (a MemberAccount) Activate(now time.Time) (MemberAccount, error) {
	if !a.status.Equal(valueobject.MembershipPending) && !a.status.Equal(valueobject.MembershipSuspended) {
		return a, valueobject.NewPolicyViolation("member %s is %s and cannot be activated", a.memberID, a.status)
	}
	next := a
	next.status = valueobject.MembershipActive
	next.updatedAt = now
	return next, nil
}

// Sanction suspends the member and blocks new loans until the given date.
func (a MemberAccount) Sanction(until time.Time, now time.Time) (MemberAccount, error) {
	if !a.status.IsEnrolled() {
		return a, valueobject.NewPolicyViolation("member %s is %s and cannot be sanctioned", a.memberID, a.status)
	}
	next := a
	next.status = valueobject.MembershipSuspended
	u := until
	next.sanctionedUntil = &u
	next.updatedAt = now
	return next, nil
}

// IsSanctioned reports whether a sanction window covers at.
func (a MemberAccount) IsSanctioned(at time.Time) bool {
	return a.sanctionedUntil != nil && at.Before(*a.sanctionedUntil)
}

// IsActive reports whether the member is in good standing.
func (a MemberAccount) IsActive() bool {
	return a.status.Equal(valueobject.MembershipActive)
}

func (a MemberAccount) ID() uuid.UUID                        { return a.id }
func (a MemberAccount) MemberID() uuid.UUID                  { return a.memberID }
func (a MemberAccount) FullName() string                     { return a.fullName }
func (a MemberAccount) Shares() int                          { return a.shares }
func (a MemberAccount) SavingsBalance() decimal.Decimal      { return a.savingsBalance }
func (a MemberAccount) RetainedEarnings() decimal.Decimal    { return a.retainedEarnings }
func (a MemberAccount) LastContribution() *time.Time         { return copyTime(a.lastContribution) }
func (a MemberAccount) Status() valueobject.MembershipStatus { return a.status }
func (a MemberAccount) SanctionedUntil() *time.Time          { return copyTime(a.sanctionedUntil) }
func (a MemberAccount) Version() int                         { return a.version }
func (a MemberAccount) CreatedAt() time.Time                 { return a.createdAt }
func (a MemberAccount) UpdatedAt() time.Time                 { return a.updatedAt }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
