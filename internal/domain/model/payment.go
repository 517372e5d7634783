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

// Allocation is one line of a payment breakdown.
type Allocation struct {
	Concept valueobject.Concept
	Amount  decimal.Decimal
}

// Payment is a member-reported payment awaiting a single treasury decision.
// Once approved or rejected it is immutable.
type Payment struct {
	id             uuid.UUID
	memberID       uuid.UUID
	amount         decimal.Decimal
	proofReference string
	nonce          string
	state          valueobject.ApprovalState
	breakdown      []Allocation
	approverID     uuid.UUID
	reason         string
	reportedAt     time.Time
	decidedAt      time.Time
	version        int

	domainEvents []event.DomainEvent
}

// NewPayment validates a payment report and emits PaymentReported.
func NewPayment(memberID uuid.UUID, amount decimal.Decimal, proofReference, nonce string, reportedAt time.Time) (Payment, error) {
	if memberID == uuid.Nil {
		return Payment{}, valueobject.Invalid("member ID is required")
	}
	if !amount.IsPositive() {
		return Payment{}, valueobject.Invalid("payment amount must be positive")
	}
	if strings.TrimSpace(nonce) == "" {
		return Payment{}, valueobject.Invalid("payment nonce is required")
	}
	if reportedAt.IsZero() {
		return Payment{}, valueobject.Invalid("reported timestamp is required")
	}
	p := Payment{
		id:             uuid.New(),
		memberID:       memberID,
		amount:         amount,
		proofReference: proofReference,
		nonce:          nonce,
		state:          valueobject.ApprovalPending,
		reportedAt:     reportedAt,
		version:        1,
	}
	p.domainEvents = append(p.domainEvents, event.NewPaymentReported(p.id, memberID, amount, proofReference, reportedAt))
	return p, nil
}

// PaymentRecord is the persisted form of a Payment.
type PaymentRecord struct {
	ID             uuid.UUID
	MemberID       uuid.UUID
	Amount         decimal.Decimal
	ProofReference string
	Nonce          string
	State          valueobject.ApprovalState
	Breakdown      []Allocation
	ApproverID     uuid.UUID
	Reason         string
	ReportedAt     time.Time
	DecidedAt      time.Time
	Version        int
}

// ReconstructPayment rebuilds a Payment from persistence.
func ReconstructPayment(r PaymentRecord) Payment {
	return Payment{
		id:             r.ID,
		memberID:       r.MemberID,
		amount:         r.Amount,
		proofReference: r.ProofReference,
		nonce:          r.Nonce,
		state:          r.State,
		breakdown:      append([]Allocation(nil), r.Breakdown...),
		approverID:     r.ApproverID,
		reason:         r.Reason,
		reportedAt:     r.ReportedAt,
		decidedAt:      r.DecidedAt,
		version:        r.Version,
	}
}

// Record returns the persisted form of the payment.
func (p Payment) Record() PaymentRecord {
	return PaymentRecord{
		ID:             p.id,
		MemberID:       p.memberID,
		Amount:         p.amount,
		ProofReference: p.proofReference,
		Nonce:          p.nonce,
		State:          p.state,
		Breakdown:      p.Breakdown(),
		ApproverID:     p.approverID,
		Reason:         p.reason,
		ReportedAt:     p.reportedAt,
		DecidedAt:      p.decidedAt,
		Version:        p.version,
	}
}

// Approve records the allocation breakdown and the approver. The breakdown
// must add up to the payment amount.
func (p Payment) Approve(approverID uuid.UUID, breakdown []Allocation, now time.Time) (Payment, error) {
	if err := p.ensurePending(); err != nil {
		return p, err
	}
	if approverID == uuid.Nil {
		return p, valueobject.Invalid("approver ID is required")
	}
	sum := decimal.Zero
	lines := make([]event.AllocationLine, 0, len(breakdown))
	for _, a := range breakdown {
		sum = sum.Add(a.Amount)
		lines = append(lines, event.AllocationLine{Concept: string(a.Concept), Amount: a.Amount})
	}
	if !sum.Equal(p.amount) {
		return p, fmt.Errorf("breakdown sums to %s, payment is %s", sum, p.amount)
	}

	next := p
	next.state = valueobject.ApprovalApproved
	next.approverID = approverID
	next.breakdown = append([]Allocation(nil), breakdown...)
	next.decidedAt = now
	next.domainEvents = append(copyEvents(p.domainEvents),
		event.NewPaymentApproved(p.id, p.memberID, approverID, p.amount, lines, now))
	return next, nil
}

// Reject closes the payment with a reason.
func (p Payment) Reject(reason string, now time.Time) (Payment, error) {
	if err := p.ensurePending(); err != nil {
		return p, err
	}
	if strings.TrimSpace(reason) == "" {
		return p, valueobject.Invalid("rejection reason is required")
	}
	next := p
	next.state = valueobject.ApprovalRejected
	next.reason = reason
	next.decidedAt = now
	next.domainEvents = append(copyEvents(p.domainEvents),
		event.NewPaymentRejected(p.id, p.memberID, reason, now))
	return next, nil
}

func (p Payment) ensurePending() error {
	if p.state != valueobject.ApprovalPending {
		return fmt.Errorf("%w: payment %s is already %s", valueobject.ErrInvalidStatusTransition, p.id, p.state)
	}
	return nil
}

func (p Payment) ID() uuid.UUID                     { return p.id }
func (p Payment) MemberID() uuid.UUID               { return p.memberID }
func (p Payment) Amount() decimal.Decimal           { return p.amount }
func (p Payment) ProofReference() string            { return p.proofReference }
func (p Payment) Nonce() string                     { return p.nonce }
func (p Payment) State() valueobject.ApprovalState  { return p.state }
func (p Payment) ApproverID() uuid.UUID             { return p.approverID }
func (p Payment) Reason() string                    { return p.reason }
func (p Payment) ReportedAt() time.Time             { return p.reportedAt }
func (p Payment) DecidedAt() time.Time              { return p.decidedAt }
func (p Payment) Version() int                      { return p.version }
func (p Payment) DomainEvents() []event.DomainEvent { return p.domainEvents }

// Breakdown returns a copy of the allocation lines.
func (p Payment) Breakdown() []Allocation {
	if p.breakdown == nil {
		return nil
	}
	return append([]Allocation(nil), p.breakdown...)
}

// ClearEvents returns a copy with an empty event list.
func (p Payment) ClearEvents() Payment {
	next := p
	next.domainEvents = nil
	return next
}
