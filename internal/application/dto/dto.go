package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Member DTOs
// ---------------------------------------------------------------------------

// RegisterMemberRequest opens a member account, typically from an import.
type RegisterMemberRequest struct {
	MemberID         uuid.UUID       `json:"member_id"`
	FullName         string          `json:"full_name"`
	Shares           int             `json:"shares"`
	OpeningSavings   decimal.Decimal `json:"opening_savings"`
	LastContribution *time.Time      `json:"last_contribution,omitempty"`
	Status           string          `json:"status,omitempty"`
	SanctionedUntil  *time.Time      `json:"sanctioned_until,omitempty"`
}

// MemberResponse is the external representation of a member account.
type MemberResponse struct {
	MemberID         uuid.UUID       `json:"member_id"`
	FullName         string          `json:"full_name"`
	Shares           int             `json:"shares"`
	SavingsBalance   decimal.Decimal `json:"savings_balance"`
	RetainedEarnings decimal.Decimal `json:"retained_earnings"`
	LastContribution *time.Time      `json:"last_contribution,omitempty"`
	Status           string          `json:"status"`
	SanctionedUntil  *time.Time      `json:"sanctioned_until,omitempty"`
}

// GetDebtSnapshotRequest asks what a member owes as of a date. A zero date
// means now.
type GetDebtSnapshotRequest struct {
	MemberID      uuid.UUID `json:"member_id"`
	ReferenceDate time.Time `json:"reference_date,omitempty"`
}

// DebtSnapshotResponse breaks down a member's debt.
type DebtSnapshotResponse struct {
	MemberID        uuid.UUID       `json:"member_id"`
	ReferenceDate   time.Time       `json:"reference_date"`
	SavingsDue      decimal.Decimal `json:"savings_due"`
	AdminFeeDue     decimal.Decimal `json:"admin_fee_due"`
	PenaltyDue      decimal.Decimal `json:"penalty_due"`
	MonthsOwed      int             `json:"months_owed"`
	DaysLate        int             `json:"days_late"`
	LoanInterestDue decimal.Decimal `json:"loan_interest_due"`
	LoanOutstanding decimal.Decimal `json:"loan_outstanding"`
	AdminDebt       decimal.Decimal `json:"admin_debt"`
	LoanDebt        decimal.Decimal `json:"loan_debt"`
	TotalDebt       decimal.Decimal `json:"total_debt"`
	Delinquent      bool            `json:"delinquent"`
}

// ---------------------------------------------------------------------------
// Payment DTOs
// ---------------------------------------------------------------------------

// ReportPaymentRequest carries a member's payment report.
type ReportPaymentRequest struct {
	MemberID       uuid.UUID       `json:"member_id"`
	Amount         decimal.Decimal `json:"amount"`
	ProofReference string          `json:"proof_reference"`
	Nonce          string          `json:"nonce"`
}

// ApprovePaymentRequest is treasury approving a reported payment.
type ApprovePaymentRequest struct {
	PaymentID  uuid.UUID `json:"tx_id"`
	ApproverID uuid.UUID `json:"approver_id"`
}

// RejectPaymentRequest is treasury rejecting a reported payment.
type RejectPaymentRequest struct {
	PaymentID  uuid.UUID `json:"tx_id"`
	ApproverID uuid.UUID `json:"approver_id,omitempty"`
	Reason     string    `json:"reason"`
}

// AllocationResponse is one line of a payment breakdown.
type AllocationResponse struct {
	Concept string          `json:"concept"`
	Amount  decimal.Decimal `json:"amount"`
}

// PaymentResponse is the external representation of a payment report.
type PaymentResponse struct {
	ID             uuid.UUID            `json:"id"`
	MemberID       uuid.UUID            `json:"member_id"`
	Amount         decimal.Decimal      `json:"amount"`
	ProofReference string               `json:"proof_reference"`
	State          string               `json:"state"`
	Breakdown      []AllocationResponse `json:"breakdown,omitempty"`
	Reason         string               `json:"reason,omitempty"`
	ReportedAt     time.Time            `json:"reported_at"`
	DecidedAt      *time.Time           `json:"decided_at,omitempty"`
}

// ---------------------------------------------------------------------------
// Loan DTOs
// ---------------------------------------------------------------------------

// RequestLoanRequest carries a member's loan request.
type RequestLoanRequest struct {
	MemberID           uuid.UUID       `json:"member_id"`
	GuarantorID        uuid.UUID       `json:"guarantor_id"`
	Type               string          `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	TermMonths         int             `json:"term"`
	SignatureReference string          `json:"signature_reference"`
	RequestIP          string          `json:"request_ip,omitempty"`
	UserAgent          string          `json:"user_agent,omitempty"`
}

// SignGuarantorRequest is the guarantor co-signing a loan. Token is the
// one-time token sent in the guarantor notification and is required.
type SignGuarantorRequest struct {
	LoanID             uuid.UUID `json:"loan_id"`
	GuarantorID        uuid.UUID `json:"guarantor_id"`
	Token              string    `json:"token"`
	SignatureReference string    `json:"signature_reference"`
}

// DisburseLoanRequest is treasury releasing a loan.
type DisburseLoanRequest struct {
	LoanID           uuid.UUID `json:"loan_id"`
	DisbursementNote string    `json:"disbursement_note"`
}

// RejectLoanRequest closes an in-flight loan.
type RejectLoanRequest struct {
	LoanID uuid.UUID `json:"loan_id"`
	Note   string    `json:"note"`
}

// MarkLoanDelinquentRequest flags an overdue loan. A zero AsOf means now.
type MarkLoanDelinquentRequest struct {
	LoanID uuid.UUID `json:"loan_id"`
	AsOf   time.Time `json:"as_of,omitempty"`
	Note   string    `json:"note,omitempty"`
}

// CureLoanRequest returns a delinquent loan to ACTIVE.
type CureLoanRequest struct {
	LoanID uuid.UUID `json:"loan_id"`
}

// ImportLoanRequest backfills a historical loan.
type ImportLoanRequest struct {
	MemberID             uuid.UUID       `json:"member_id"`
	GuarantorID          uuid.UUID       `json:"guarantor_id,omitempty"`
	Type                 string          `json:"type"`
	Principal            decimal.Decimal `json:"principal"`
	TermMonths           int             `json:"term"`
	DisbursedAt          time.Time       `json:"disbursed_at"`
	AlreadyPaidPrincipal decimal.Decimal `json:"already_paid_principal"`
	Note                 string          `json:"note,omitempty"`
}

// GetLoanScheduleRequest identifies a loan.
type GetLoanScheduleRequest struct {
	LoanID uuid.UUID `json:"loan_id"`
}

// PreviewScheduleRequest asks for a schedule without creating a loan. A zero
// StartDate means today.
type PreviewScheduleRequest struct {
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	TermMonths int             `json:"term"`
	StartDate  time.Time       `json:"start_date,omitempty"`
}

// InstallmentResponse is one row of an amortization schedule.
type InstallmentResponse struct {
	Sequence      int             `json:"sequence"`
	DueDate       time.Time       `json:"due_date"`
	Principal     decimal.Decimal `json:"principal"`
	Interest      decimal.Decimal `json:"interest"`
	Total         decimal.Decimal `json:"total"`
	InterestPaid  decimal.Decimal `json:"interest_paid"`
	PrincipalPaid decimal.Decimal `json:"principal_paid"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	State         string          `json:"state"`
}

// ScheduleResponse is a schedule with its totals.
type ScheduleResponse struct {
	LoanID         uuid.UUID             `json:"loan_id,omitempty"`
	MonthlyRatePct decimal.Decimal       `json:"monthly_rate_pct"`
	Installments   []InstallmentResponse `json:"installments"`
	TotalPrincipal decimal.Decimal       `json:"total_principal"`
	TotalInterest  decimal.Decimal       `json:"total_interest"`
	TotalPayable   decimal.Decimal       `json:"total_payable"`
}

// LoanResponse is the external representation of a loan.
type LoanResponse struct {
	ID                 uuid.UUID             `json:"id"`
	TrackingCode       string                `json:"tracking_code"`
	MemberID           uuid.UUID             `json:"member_id"`
	GuarantorID        uuid.UUID             `json:"guarantor_id"`
	Type               string                `json:"type"`
	PrincipalRequested decimal.Decimal       `json:"principal_requested"`
	PrincipalApproved  decimal.Decimal       `json:"principal_approved"`
	OutstandingBalance decimal.Decimal       `json:"outstanding_balance"`
	TermMonths         int                   `json:"term"`
	MonthlyRatePct     decimal.Decimal       `json:"monthly_rate_pct"`
	State              string                `json:"state"`
	Queued             bool                  `json:"queued"`
	RefinancesLoanID   *uuid.UUID            `json:"refinances_loan_id,omitempty"`
	NettedAmount       decimal.Decimal       `json:"netted_amount"`
	DecisionNote       string                `json:"decision_note,omitempty"`
	ContractPending    bool                  `json:"contract_pending"`
	ContractRef        string                `json:"contract_ref,omitempty"`
	Schedule           []InstallmentResponse `json:"schedule,omitempty"`
	RequestedAt        time.Time             `json:"requested_at"`
	ApprovedAt         *time.Time            `json:"approved_at,omitempty"`
}

// ---------------------------------------------------------------------------
// Liquidity DTOs
// ---------------------------------------------------------------------------

// GetLendableCashRequest is empty; the snapshot is fund-wide.
type GetLendableCashRequest struct{}

// LendableCashResponse is a liquidity snapshot.
type LendableCashResponse struct {
	Inflows            decimal.Decimal `json:"inflows"`
	Outflows           decimal.Decimal `json:"outflows"`
	DisbursedPrincipal decimal.Decimal `json:"disbursed_principal"`
	SecretarialReserve decimal.Decimal `json:"secretarial_reserve"`
	LendableCash       decimal.Decimal `json:"lendable_cash"`
	Reserved           decimal.Decimal `json:"reserved"`
	Headroom           decimal.Decimal `json:"headroom"`
}

// SweepLiquidityQueueRequest triggers one sweep pass. A zero AsOf means now.
type SweepLiquidityQueueRequest struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// SweepResponse summarizes one sweep pass.
type SweepResponse struct {
	Promoted  []uuid.UUID     `json:"promoted"`
	Skipped   []uuid.UUID     `json:"skipped"`
	Failed    []uuid.UUID     `json:"failed,omitempty"`
	Deferred  bool            `json:"deferred"`
	Remaining decimal.Decimal `json:"remaining"`
}

// RecordCashMovementRequest is a treasury-entered income or expense.
type RecordCashMovementRequest struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at,omitempty"`
	Note       string          `json:"note"`
}

// CashMovementResponse echoes a recorded movement.
type CashMovementResponse struct {
	ID         uuid.UUID       `json:"id"`
	Direction  string          `json:"direction"`
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
	Note       string          `json:"note"`
}

// ---------------------------------------------------------------------------
// Profit DTOs
// ---------------------------------------------------------------------------

// MonthlyCloseRequest closes one month.
type MonthlyCloseRequest struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthlyCloseResponse summarizes a monthly close.
type MonthlyCloseResponse struct {
	Period          string          `json:"period"`
	Income          decimal.Decimal `json:"income"`
	Expenses        decimal.Decimal `json:"expenses"`
	NetProfit       decimal.Decimal `json:"net_profit"`
	EligibleShares  int             `json:"eligible_shares"`
	ValuePerShare   decimal.Decimal `json:"value_per_share"`
	TotalAllocated  decimal.Decimal `json:"total_allocated"`
	MembersCovered  int             `json:"members_covered"`
	EligibleMembers int             `json:"eligible_members"`
	ClosedAt        time.Time       `json:"closed_at"`
	AlreadyClosed   bool            `json:"already_closed"`
}

// AnnualCloseRequest finalizes one year.
type AnnualCloseRequest struct {
	Year int `json:"year"`
}

// AnnualCloseResponse summarizes an annual close.
type AnnualCloseResponse struct {
	Year            int             `json:"year"`
	MembersCredited int             `json:"members_credited"`
	TotalSettled    decimal.Decimal `json:"total_settled"`
	ClosedAt        time.Time       `json:"closed_at"`
	AlreadyClosed   bool            `json:"already_closed"`
}

// ---------------------------------------------------------------------------
// Withdrawal DTOs
// ---------------------------------------------------------------------------

// RequestWithdrawalRequest is a member asking to leave the fund.
type RequestWithdrawalRequest struct {
	MemberID uuid.UUID `json:"member_id"`
	Reason   string    `json:"reason"`
}

// DecideWithdrawalRequest is treasury approving or rejecting a withdrawal.
type DecideWithdrawalRequest struct {
	WithdrawalID uuid.UUID `json:"withdrawal_id"`
	ApproverID   uuid.UUID `json:"approver_id"`
	Approve      bool      `json:"approve"`
	Note         string    `json:"note"`
}

// WithdrawalResponse is the external representation of a withdrawal.
type WithdrawalResponse struct {
	ID          uuid.UUID       `json:"id"`
	MemberID    uuid.UUID       `json:"member_id"`
	Reason      string          `json:"reason"`
	State       string          `json:"state"`
	Payout      decimal.Decimal `json:"payout"`
	Note        string          `json:"note,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
}

// ---------------------------------------------------------------------------
// Outbox DTOs
// ---------------------------------------------------------------------------

// GenerateContractsRequest renders up to BatchSize pending loan contracts.
type GenerateContractsRequest struct {
	BatchSize int `json:"batch_size"`
}

// GenerateContractsResponse lists the loans whose contracts were rendered or
// failed again.
type GenerateContractsResponse struct {
	Generated []uuid.UUID `json:"generated"`
	Failed    []uuid.UUID `json:"failed,omitempty"`
}

// RelayOutboxRequest relays up to BatchSize unpublished events.
type RelayOutboxRequest struct {
	BatchSize int `json:"batch_size"`
}

// RelayOutboxResponse counts relayed and failed events.
type RelayOutboxResponse struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
}
