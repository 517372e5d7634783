package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/event"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// Withdrawal is a member's request to leave the fund and be paid out.
type Withdrawal struct {
	id          uuid.UUID
	memberID    uuid.UUID
	reason      string
	state       valueobject.ApprovalState
	payout      decimal.Decimal
	decidedBy   uuid.UUID
	note        string
	requestedAt time.Time
	decidedAt   time.Time

	domainEvents []event.DomainEvent
}

// NewWithdrawal opens a pending withdrawal request.
func NewWithdrawal(memberID uuid.UUID, reason string, now time.Time) (Withdrawal, error) {
	if memberID == uuid.Nil {
		return Withdrawal{}, valueobject.Invalid("member ID is required")
	}
	w := Withdrawal{
		id:          uuid.New(),
		memberID:    memberID,
		reason:      reason,
		state:       valueobject.ApprovalPending,
		payout:      decimal.Zero,
		requestedAt: now,
	}
	w.domainEvents = append(w.domainEvents,
		event.NewWithdrawalStatusChanged(w.id, memberID, string(w.state), decimal.Zero, reason, now))
	return w, nil
}

// WithdrawalRecord is the persisted form of a Withdrawal.
type WithdrawalRecord struct {
	ID          uuid.UUID
	MemberID    uuid.UUID
	Reason      string
	State       valueobject.ApprovalState
	Payout      decimal.Decimal
	DecidedBy   uuid.UUID
	Note        string
	RequestedAt time.Time
	DecidedAt   time.Time
}

// ReconstructWithdrawal rebuilds a Withdrawal from persistence.
func ReconstructWithdrawal(r WithdrawalRecord) Withdrawal {
	return Withdrawal{
		id:          r.ID,
		memberID:    r.MemberID,
		reason:      r.Reason,
		state:       r.State,
		payout:      r.Payout,
		decidedBy:   r.DecidedBy,
		note:        r.Note,
		requestedAt: r.RequestedAt,
		decidedAt:   r.DecidedAt,
	}
}

// Record returns the persisted form of the withdrawal.
func (w Withdrawal) Record() WithdrawalRecord {
	return WithdrawalRecord{
		ID:          w.id,
		MemberID:    w.memberID,
		Reason:      w.reason,
		State:       w.state,
		Payout:      w.payout,
		DecidedBy:   w.decidedBy,
		Note:        w.note,
		RequestedAt: w.requestedAt,
		DecidedAt:   w.decidedAt,
	}
}

// Approve records the settled payout.
func (w Withdrawal) Approve(approverID uuid.UUID, payout decimal.Decimal, note string, now time.Time) (Withdrawal, error) {
	if payout.IsNegative() {
		return w, valueobject.Invalid("payout must not be negative")
	}
	return w.decide(valueobject.ApprovalApproved, approverID, payout, note, now)
}

// Reject closes the request with a note.
func (w Withdrawal) Reject(approverID uuid.UUID, note string, now time.Time) (Withdrawal, error) {
	if strings.TrimSpace(note) == "" {
		return w, valueobject.Invalid("rejection note is required")
	}
	return w.decide(valueobject.ApprovalRejected, approverID, decimal.Zero, note, now)
}

func (w Withdrawal) decide(state valueobject.ApprovalState, by uuid.UUID, payout decimal.Decimal, note string, now time.Time) (Withdrawal, error) {
	if w.state != valueobject.ApprovalPending {
		return w, fmt.Errorf("%w: withdrawal %s is already %s", valueobject.ErrInvalidStatusTransition, w.id, w.state)
	}
	if by == uuid.Nil {
		return w, valueobject.Invalid("approver ID is required")
	}
	next := w
	next.state = state
	next.decidedBy = by
	next.payout = payout
	next.note = note
	next.decidedAt = now
	next.domainEvents = append(copyEvents(w.domainEvents),
		event.NewWithdrawalStatusChanged(w.id, w.memberID, string(state), payout, note, now))
	return next, nil
}

func (w Withdrawal) ID() uuid.UUID                     { return w.id }
func (w Withdrawal) MemberID() uuid.UUID               { return w.memberID }
func (w Withdrawal) Reason() string                    { return w.reason }
func (w Withdrawal) State() valueobject.ApprovalState  { return w.state }
func (w Withdrawal) Payout() decimal.Decimal           { return w.payout }
func (w Withdrawal) DecidedBy() uuid.UUID              { return w.decidedBy }
func (w Withdrawal) Note() string                      { return w.note }
func (w Withdrawal) RequestedAt() time.Time            { return w.requestedAt }
func (w Withdrawal) DecidedAt() time.Time              { return w.decidedAt }
func (w Withdrawal) DomainEvents() []event.DomainEvent { return w.domainEvents }

// ClearEvents returns a copy with an empty event list.
func (w Withdrawal) ClearEvents() Withdrawal {
	next := w
	next.domainEvents = nil
	return next
}
