package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

// Aggregate type names carried on every event.
const (
	AggregatePayment    = "Payment"
	AggregateLoan       = "Loan"
	AggregateWithdrawal = "Withdrawal"
)

// ---------------------------------------------------------------------------
// Payment Events
// ---------------------------------------------------------------------------

// AllocationLine is one concept of a payment breakdown as published.
type AllocationLine struct {
	Concept string          `json:"concept"`
	Amount  decimal.Decimal `json:"amount"`
}

// PaymentReported is raised when a member reports a payment for review.
type PaymentReported struct {
	events.BaseEvent
	MemberID       uuid.UUID       `json:"member_id"`
	Amount         decimal.Decimal `json:"amount"`
	ProofReference string          `json:"proof_reference"`
}

func NewPaymentReported(paymentID, memberID uuid.UUID, amount decimal.Decimal, proof string, at time.Time) PaymentReported {
	return PaymentReported{
		BaseEvent:      events.NewBaseEvent("fund.payment.reported", paymentID, AggregatePayment, at),
		MemberID:       memberID,
		Amount:         amount,
		ProofReference: proof,
	}
}

// PaymentApproved is raised once treasury approves a payment and the
// waterfall has been applied.
type PaymentApproved struct {
	events.BaseEvent
	MemberID   uuid.UUID        `json:"member_id"`
	ApproverID uuid.UUID        `json:"approver_id"`
	Amount     decimal.Decimal  `json:"amount"`
	Breakdown  []AllocationLine `json:"breakdown"`
}

func NewPaymentApproved(
	paymentID, memberID, approverID uuid.UUID,
	amount decimal.Decimal, breakdown []AllocationLine, at time.Time,
) PaymentApproved {
	return PaymentApproved{
		BaseEvent:  events.NewBaseEvent("fund.payment.approved", paymentID, AggregatePayment, at),
		MemberID:   memberID,
		ApproverID: approverID,
		Amount:     amount,
		Breakdown:  breakdown,
	}
}

// PaymentRejected is raised when treasury rejects a reported payment.
type PaymentRejected struct {
	events.BaseEvent
	MemberID uuid.UUID `json:"member_id"`
	Reason   string    `json:"reason"`
}

func NewPaymentRejected(paymentID, memberID uuid.UUID, reason string, at time.Time) PaymentRejected {
	return PaymentRejected{
		BaseEvent: events.NewBaseEvent("fund.payment.rejected", paymentID, AggregatePayment, at),
		MemberID:  memberID,
		Reason:    reason,
	}
}

// ---------------------------------------------------------------------------
// Loan Events
// ---------------------------------------------------------------------------

// LoanRequested is raised when a loan request is accepted for processing.
// Queued is true when liquidity was short at request time.
type LoanRequested struct {
	events.BaseEvent
	MemberID     uuid.UUID       `json:"member_id"`
	GuarantorID  uuid.UUID       `json:"guarantor_id"`
	TrackingCode string          `json:"tracking_code"`
	Amount       decimal.Decimal `json:"amount"`
	TermMonths   int             `json:"term_months"`
	LoanType     string          `json:"loan_type"`
	Queued       bool            `json:"queued"`
	Refinancing  bool            `json:"refinancing"`
}

func NewLoanRequested(
	loanID, memberID, guarantorID uuid.UUID, trackingCode string,
	amount decimal.Decimal, termMonths int, loanType string,
	queued, refinancing bool, at time.Time,
) LoanRequested {
	return LoanRequested{
		BaseEvent:    events.NewBaseEvent("fund.loan.requested", loanID, AggregateLoan, at),
		MemberID:     memberID,
		GuarantorID:  guarantorID,
		TrackingCode: trackingCode,
		Amount:       amount,
		TermMonths:   termMonths,
		LoanType:     loanType,
		Queued:       queued,
		Refinancing:  refinancing,
	}
}

// GuarantorNotificationNeeded asks the notification collaborator to contact
// the guarantor with a one-time signing token.
type GuarantorNotificationNeeded struct {
	events.BaseEvent
	GuarantorID uuid.UUID `json:"guarantor_id"`
	Token       string    `json:"token"`
}

func NewGuarantorNotificationNeeded(loanID, guarantorID uuid.UUID, token string, at time.Time) GuarantorNotificationNeeded {
	return GuarantorNotificationNeeded{
		BaseEvent:   events.NewBaseEvent("fund.loan.guarantor_notification_needed", loanID, AggregateLoan, at),
		GuarantorID: guarantorID,
		Token:       token,
	}
}

// LoanDecision is raised on every lifecycle transition after the request.
type LoanDecision struct {
	events.BaseEvent
	MemberID uuid.UUID `json:"member_id"`
	State    string    `json:"state"`
	Note     string    `json:"note"`
}

func NewLoanDecision(loanID, memberID uuid.UUID, state, note string, at time.Time) LoanDecision {
	return LoanDecision{
		BaseEvent: events.NewBaseEvent("fund.loan.decision", loanID, AggregateLoan, at),
		MemberID:  memberID,
		State:     state,
		Note:      note,
	}
}

// LoanDisbursed is raised when treasury releases the funds.
type LoanDisbursed struct {
	events.BaseEvent
	MemberID        uuid.UUID       `json:"member_id"`
	Principal       decimal.Decimal `json:"principal"`
	NettedAmount    decimal.Decimal `json:"netted_amount"`
	ReleasedAmount  decimal.Decimal `json:"released_amount"`
	FirstDueDate    time.Time       `json:"first_due_date"`
	Installments    int             `json:"installments"`
	DisbursementRef string          `json:"disbursement_note"`
}

func NewLoanDisbursed(
	loanID, memberID uuid.UUID,
	principal, netted decimal.Decimal,
	firstDue time.Time, installments int, note string, at time.Time,
) LoanDisbursed {
	return LoanDisbursed{
		BaseEvent:       events.NewBaseEvent("fund.loan.disbursed", loanID, AggregateLoan, at),
		MemberID:        memberID,
		Principal:       principal,
		NettedAmount:    netted,
		ReleasedAmount:  principal.Sub(netted),
		FirstDueDate:    firstDue,
		Installments:    installments,
		DisbursementRef: note,
	}
}

// ---------------------------------------------------------------------------
// Withdrawal Events
// ---------------------------------------------------------------------------

// WithdrawalStatusChanged is raised when a withdrawal is requested or decided.
type WithdrawalStatusChanged struct {
	events.BaseEvent
	MemberID uuid.UUID       `json:"member_id"`
	Status   string          `json:"status"`
	Payout   decimal.Decimal `json:"payout"`
	Note     string          `json:"note"`
}

func NewWithdrawalStatusChanged(
	withdrawalID, memberID uuid.UUID, status string, payout decimal.Decimal, note string, at time.Time,
) WithdrawalStatusChanged {
	return WithdrawalStatusChanged{
		BaseEvent: events.NewBaseEvent("fund.withdrawal.status_changed", withdrawalID, AggregateWithdrawal, at),
		MemberID:  memberID,
		Status:    status,
		Payout:    payout,
		Note:      note,
	}
}

// ---------------------------------------------------------------------------
// Topics
// ---------------------------------------------------------------------------

const (
	TopicPaymentEvents = "fund.payment.events"
	TopicLoanEvents    = "fund.loan.events"
	TopicMemberEvents  = "fund.member.events"
)

// TopicFor returns the outbound topic for an aggregate type. Withdrawal
// events travel on the member topic.
func TopicFor(aggregateType string) string {
	switch aggregateType {
	case AggregatePayment:
		return TopicPaymentEvents
	case AggregateLoan:
		return TopicLoanEvents
	default:
		return TopicMemberEvents
	}
}
