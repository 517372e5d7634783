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

// ---------------------------------------------------------------------------
// Loan aggregate root
// ---------------------------------------------------------------------------

// Loan is an immutable aggregate covering a credit request from submission to
// closure. Mutations return a new copy.
type Loan struct {
	id                 uuid.UUID
	trackingCode       string
	memberID           uuid.UUID
	guarantorID        uuid.UUID
	loanType           valueobject.LoanType
	principalRequested decimal.Decimal
	principalApproved  decimal.Decimal
	outstandingBalance decimal.Decimal
	termMonths         int
	monthlyRatePct     decimal.Decimal
	state              valueobject.LoanState
	queuedAtRequest    bool

	signatureRef          string
	requestIP             string
	userAgent             string
	guarantorToken        string
	guarantorSignatureRef string

	refinancesLoanID uuid.UUID
	nettedAmount     decimal.Decimal
	disbursementNote string
	decisionNote     string

	contractPending bool
	contractRef     string

	schedule    []Installment
	requestedAt time.Time
	approvedAt  time.Time
	version     int
	createdAt   time.Time
	updatedAt   time.Time

	domainEvents []event.DomainEvent
}

// LoanRequest carries the validated inputs of a new credit request.
type LoanRequest struct {
	MemberID           uuid.UUID
	GuarantorID        uuid.UUID
	Type               valueobject.LoanType
	Amount             decimal.Decimal
	TermMonths         int
	MonthlyRatePct     decimal.Decimal
	SignatureReference string
	RequestIP          string
	UserAgent          string
	// Queued records the liquidity admission outcome at request time.
	Queued bool
	// RefinancesLoanID is the member's active loan being replaced, if any.
	RefinancesLoanID uuid.UUID
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLoanRequest creates a loan in REQUESTED state and emits LoanRequested.
func NewLoanRequest(req LoanRequest, now time.Time) (Loan, error) {
	if req.MemberID == uuid.Nil {
		return Loan{}, valueobject.Invalid("member ID is required")
	}
	if req.GuarantorID == uuid.Nil {
		return Loan{}, valueobject.Invalid("guarantor is required")
	}
	if req.GuarantorID == req.MemberID {
		return Loan{}, valueobject.Invalid("guarantor must be a different member")
	}
	if req.Type.IsZero() {
		return Loan{}, valueobject.Invalid("loan type is required")
	}
	if !req.Amount.IsPositive() {
		return Loan{}, valueobject.Invalid("amount must be positive")
	}
	if !req.MonthlyRatePct.IsPositive() {
		return Loan{}, valueobject.Invalid("monthly rate must be positive")
	}
	if strings.TrimSpace(req.SignatureReference) == "" {
		return Loan{}, valueobject.Invalid("signature reference is required")
	}

	term := req.TermMonths
	if req.Type.IsExpress() {
		if term != 0 && term != 1 {
			return Loan{}, valueobject.Invalid("express loans have a one-month term, got %d", term)
		}
		if req.RefinancesLoanID != uuid.Nil {
			return Loan{}, valueobject.NewPolicyViolation("express loans cannot be used for refinancing")
		}
		term = 1
	}
	if term <= 0 {
		return Loan{}, valueobject.Invalid("term must be positive, got %d", term)
	}

	id := uuid.New()
	loan := Loan{
		id:                 id,
		trackingCode:       newTrackingCode(id, now),
		memberID:           req.MemberID,
		guarantorID:        req.GuarantorID,
		loanType:           req.Type,
		principalRequested: req.Amount,
		principalApproved:  decimal.Zero,
		outstandingBalance: decimal.Zero,
		termMonths:         term,
		monthlyRatePct:     req.MonthlyRatePct,
		state:              valueobject.LoanStateRequested,
		queuedAtRequest:    req.Queued,
		signatureRef:       req.SignatureReference,
		requestIP:          req.RequestIP,
		userAgent:          req.UserAgent,
		refinancesLoanID:   req.RefinancesLoanID,
		nettedAmount:       decimal.Zero,
		requestedAt:        now,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}

	loan.domainEvents = append(loan.domainEvents, event.NewLoanRequested(
		id, req.MemberID, req.GuarantorID, loan.trackingCode,
		req.Amount, term, req.Type.String(),
		req.Queued, req.RefinancesLoanID != uuid.Nil, now,
	))

	return loan, nil
}

// ImportedLoan describes a historical loan brought in by back-fill.
type ImportedLoan struct {
	MemberID             uuid.UUID
	GuarantorID          uuid.UUID
	Type                 valueobject.LoanType
	Principal            decimal.Decimal
	TermMonths           int
	MonthlyRatePct       decimal.Decimal
	DisbursedAt          time.Time
	AlreadyPaidPrincipal decimal.Decimal
	Note                 string
}

// NewImportedLoan creates an ACTIVE loan whose schedule reflects principal
// already repaid before the import. A fully repaid import lands in PAID.
func NewImportedLoan(in ImportedLoan, now time.Time) (Loan, error) {
	if in.MemberID == uuid.Nil {
		return Loan{}, valueobject.Invalid("member ID is required")
	}
	if in.Type.IsZero() {
		return Loan{}, valueobject.Invalid("loan type is required")
	}
	if !in.Principal.IsPositive() {
		return Loan{}, valueobject.Invalid("principal must be positive")
	}
	if in.AlreadyPaidPrincipal.IsNegative() || in.AlreadyPaidPrincipal.GreaterThan(in.Principal) {
		return Loan{}, valueobject.Invalid("already paid principal must be within [0, principal]")
	}
	if in.DisbursedAt.IsZero() {
		return Loan{}, valueobject.Invalid("disbursement date is required")
	}
	term := in.TermMonths
	if in.Type.IsExpress() {
		term = 1
	}
	schedule, _ := BuildSchedule(ScheduleInput{
		Principal:            in.Principal,
		MonthlyRatePct:       in.MonthlyRatePct,
		TermMonths:           term,
		StartDate:            in.DisbursedAt,
		LoanType:             in.Type,
		AlreadyPaidPrincipal: in.AlreadyPaidPrincipal,
	})
	if len(schedule) == 0 {
		return Loan{}, valueobject.Invalid("term must be positive, got %d", term)
	}

	outstanding := in.Principal.Sub(in.AlreadyPaidPrincipal)
	state := valueobject.LoanStateActive
	if outstanding.IsZero() {
		state = valueobject.LoanStatePaid
	}
	id := uuid.New()
	return Loan{
		id:                 id,
		trackingCode:       newTrackingCode(id, in.DisbursedAt),
		memberID:           in.MemberID,
		guarantorID:        in.GuarantorID,
		loanType:           in.Type,
		principalRequested: in.Principal,
		principalApproved:  in.Principal,
		outstandingBalance: outstanding,
		termMonths:         term,
		monthlyRatePct:     in.MonthlyRatePct,
		state:              state,
		nettedAmount:       decimal.Zero,
		disbursementNote:   in.Note,
		schedule:           schedule,
		requestedAt:        in.DisbursedAt,
		approvedAt:         in.DisbursedAt,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// LoanRecord is the persisted form of a Loan.
type LoanRecord struct {
	ID                    uuid.UUID
	TrackingCode          string
	MemberID              uuid.UUID
	GuarantorID           uuid.UUID
	Type                  valueobject.LoanType
	PrincipalRequested    decimal.Decimal
	PrincipalApproved     decimal.Decimal
	OutstandingBalance    decimal.Decimal
	TermMonths            int
	MonthlyRatePct        decimal.Decimal
	State                 valueobject.LoanState
	QueuedAtRequest       bool
	SignatureRef          string
	RequestIP             string
	UserAgent             string
	GuarantorToken        string
	GuarantorSignatureRef string
	RefinancesLoanID      uuid.UUID
	NettedAmount          decimal.Decimal
	DisbursementNote      string
	DecisionNote          string
	ContractPending       bool
	ContractRef           string
	Schedule              []Installment
	RequestedAt           time.Time
	ApprovedAt            time.Time
	Version               int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ReconstructLoan rebuilds a Loan aggregate from persistence.
func ReconstructLoan(r LoanRecord) Loan {
	return Loan{
		id:                    r.ID,
		trackingCode:          r.TrackingCode,
		memberID:              r.MemberID,
		guarantorID:           r.GuarantorID,
		loanType:              r.Type,
		principalRequested:    r.PrincipalRequested,
		principalApproved:     r.PrincipalApproved,
		outstandingBalance:    r.OutstandingBalance,
		termMonths:            r.TermMonths,
		monthlyRatePct:        r.MonthlyRatePct,
		state:                 r.State,
		queuedAtRequest:       r.QueuedAtRequest,
		signatureRef:          r.SignatureRef,
		requestIP:             r.RequestIP,
		userAgent:             r.UserAgent,
		guarantorToken:        r.GuarantorToken,
		guarantorSignatureRef: r.GuarantorSignatureRef,
		refinancesLoanID:      r.RefinancesLoanID,
		nettedAmount:          r.NettedAmount,
		disbursementNote:      r.DisbursementNote,
		decisionNote:          r.DecisionNote,
		contractPending:       r.ContractPending,
		contractRef:           r.ContractRef,
		schedule:              r.Schedule,
		requestedAt:           r.RequestedAt,
		approvedAt:            r.ApprovedAt,
		version:               r.Version,
		createdAt:             r.CreatedAt,
		updatedAt:             r.UpdatedAt,
	}
}

// Record returns the persisted form of the loan.
func (l Loan) Record() LoanRecord {
	return LoanRecord{
		ID:                    l.id,
		TrackingCode:          l.trackingCode,
		MemberID:              l.memberID,
		GuarantorID:           l.guarantorID,
		Type:                  l.loanType,
		PrincipalRequested:    l.principalRequested,
		PrincipalApproved:     l.principalApproved,
		OutstandingBalance:    l.outstandingBalance,
		TermMonths:            l.termMonths,
		MonthlyRatePct:        l.monthlyRatePct,
		State:                 l.state,
		QueuedAtRequest:       l.queuedAtRequest,
		SignatureRef:          l.signatureRef,
		RequestIP:             l.requestIP,
		UserAgent:             l.userAgent,
		GuarantorToken:        l.guarantorToken,
		GuarantorSignatureRef: l.guarantorSignatureRef,
		RefinancesLoanID:      l.refinancesLoanID,
		NettedAmount:          l.nettedAmount,
		DisbursementNote:      l.disbursementNote,
		DecisionNote:          l.decisionNote,
		ContractPending:       l.contractPending,
		ContractRef:           l.contractRef,
		Schedule:              l.Schedule(),
		RequestedAt:           l.requestedAt,
		ApprovedAt:            l.approvedAt,
		Version:               l.version,
		CreatedAt:             l.createdAt,
		UpdatedAt:             l.updatedAt,
	}
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

// transitionTo is the only place the lifecycle state changes.
func (l Loan) transitionTo(next valueobject.LoanState, now time.Time) (Loan, error) {
	if !l.state.CanTransitionTo(next) {
		return l, fmt.Errorf("%w: loan %s cannot move from %s to %s",
			valueobject.ErrInvalidStatusTransition, l.id, l.state, next)
	}
	out := l
	out.state = next
	out.updatedAt = now
	out.schedule = l.Schedule()
	out.domainEvents = copyEvents(l.domainEvents)
	return out, nil
}

func (l *Loan) recordDecision(note string, now time.Time) {
	l.decisionNote = note
	l.domainEvents = append(l.domainEvents, event.NewLoanDecision(l.id, l.memberID, l.state.String(), note, now))
}

// AwaitGuarantor moves REQUESTED -> PENDING_GUARANTOR_SIGNATURE and asks for
// the guarantor to be notified with a one-time token.
func (l Loan) AwaitGuarantor(token string, now time.Time) (Loan, error) {
	if token == "" {
		return l, valueobject.Invalid("guarantor token is required")
	}
	next, err := l.transitionTo(valueobject.LoanStatePendingGuarantor, now)
	if err != nil {
		return l, err
	}
	next.guarantorToken = token
	next.domainEvents = append(next.domainEvents, event.NewGuarantorNotificationNeeded(l.id, l.guarantorID, token, now))
	return next, nil
}

// SignByGuarantor records the co-signature. It requires the token issued by
// AwaitGuarantor. The loan goes to the liquidity queue if funds were short at
// request time, otherwise to treasury.
func (l Loan) SignByGuarantor(guarantorID uuid.UUID, token, signatureRef string, now time.Time) (Loan, error) {
	if !l.state.Equal(valueobject.LoanStatePendingGuarantor) {
		return l, fmt.Errorf("%w: loan %s in state %s is not awaiting a guarantor signature",
			valueobject.ErrInvalidStatusTransition, l.id, l.state)
	}
	if guarantorID != l.guarantorID {
		return l, valueobject.Invalid("member %s is not the guarantor of loan %s", guarantorID, l.id)
	}
	if token == "" {
		return l, valueobject.Invalid("guarantor token is required")
	}
	if token != l.guarantorToken {
		return l, valueobject.Invalid("guarantor token does not match")
	}
	if strings.TrimSpace(signatureRef) == "" {
		return l, valueobject.Invalid("guarantor signature reference is required")
	}

	target := valueobject.LoanStatePendingTreasury
	if l.queuedAtRequest {
		target = valueobject.LoanStateLiquidityQueue
	}
	next, err := l.transitionTo(target, now)
	if err != nil {
		return l, err
	}
	next.guarantorSignatureRef = signatureRef
	next.recordDecision("guarantor signed", now)
	return next, nil
}

// PromoteFromQueue moves LIQUIDITY_QUEUE -> PENDING_TREASURY once a sweep
// found room for the loan.
func (l Loan) PromoteFromQueue(now time.Time) (Loan, error) {
	next, err := l.transitionTo(valueobject.LoanStatePendingTreasury, now)
	if err != nil {
		return l, err
	}
	next.recordDecision("liquidity available", now)
	return next, nil
}

// Disburse moves PENDING_TREASURY -> ACTIVE. The schedule is materialized by
// the caller from the disbursement date; netted is the prior loan balance
// withheld from the released funds when refinancing.
func (l Loan) Disburse(note string, netted decimal.Decimal, schedule []Installment, now time.Time) (Loan, error) {
	if strings.TrimSpace(note) == "" {
		return l, valueobject.Invalid("disbursement note is required")
	}
	if len(schedule) == 0 {
		return l, valueobject.Invalid("disbursement requires a non-empty schedule")
	}
	if netted.IsNegative() || netted.GreaterThan(l.principalRequested) {
		return l, valueobject.Invalid("netted amount %s outside [0, %s]", netted, l.principalRequested)
	}
	next, err := l.transitionTo(valueobject.LoanStateActive, now)
	if err != nil {
		return l, err
	}
	next.principalApproved = l.principalRequested
	next.outstandingBalance = l.principalRequested
	next.nettedAmount = netted
	next.disbursementNote = note
	next.approvedAt = now
	next.contractPending = true
	next.schedule = append([]Installment(nil), schedule...)
	next.domainEvents = append(next.domainEvents, event.NewLoanDisbursed(
		l.id, l.memberID, l.principalRequested, netted,
		schedule[0].DueDate, len(schedule), note, now,
	))
	next.recordDecision(note, now)
	return next, nil
}

// AttachContract stores the reference of the rendered contract. Only a
// disbursed loan still waiting for its contract accepts one.
func (l Loan) AttachContract(ref string, now time.Time) (Loan, error) {
	if !l.contractPending {
		return l, fmt.Errorf("%w: loan %s has no contract pending",
			valueobject.ErrInvalidStatusTransition, l.id)
	}
	if strings.TrimSpace(ref) == "" {
		return l, valueobject.Invalid("contract reference is required")
	}
	next := l
	next.schedule = l.Schedule()
	next.domainEvents = copyEvents(l.domainEvents)
	next.contractPending = false
	next.contractRef = ref
	next.updatedAt = now
	return next, nil
}

// Reject closes an in-flight request.
func (l Loan) Reject(note string, now time.Time) (Loan, error) {
	if strings.TrimSpace(note) == "" {
		return l, valueobject.Invalid("rejection note is required")
	}
	next, err := l.transitionTo(valueobject.LoanStateRejected, now)
	if err != nil {
		return l, err
	}
	next.recordDecision(note, now)
	return next, nil
}

// MarkDelinquent moves ACTIVE -> DELINQUENT and flags every unpaid
// installment due before asOf as LATE.
func (l Loan) MarkDelinquent(asOf time.Time, note string, now time.Time) (Loan, error) {
	next, err := l.transitionTo(valueobject.LoanStateDelinquent, now)
	if err != nil {
		return l, err
	}
	cutoff := CivilDate(asOf)
	for i := range next.schedule {
		inst := &next.schedule[i]
		if inst.State != valueobject.InstallmentPaid && inst.DueDate.Before(cutoff) {
			inst.State = valueobject.InstallmentLate
		}
	}
	if note == "" {
		note = "installment overdue"
	}
	next.recordDecision(note, now)
	return next, nil
}

// Cure moves DELINQUENT -> ACTIVE once the arrears are settled.
func (l Loan) Cure(now time.Time) (Loan, error) {
	next, err := l.transitionTo(valueobject.LoanStateActive, now)
	if err != nil {
		return l, err
	}
	for i := range next.schedule {
		inst := &next.schedule[i]
		if inst.State == valueobject.InstallmentLate {
			inst.State = installmentStateFor(*inst)
		}
	}
	next.recordDecision("arrears cleared", now)
	return next, nil
}

// ApplyRepayment books the loan part of an approved payment. interest covers
// scheduled interest due; principal reduces the outstanding balance. Reaching
// a zero balance closes the loan as PAID.
func (l Loan) ApplyRepayment(interest, principal decimal.Decimal, now time.Time) (Loan, error) {
	if !l.state.IsOutstanding() {
		return l, fmt.Errorf("%w: loan %s in state %s does not accept repayments",
			valueobject.ErrInvalidStatusTransition, l.id, l.state)
	}
	if interest.IsNegative() || principal.IsNegative() {
		return l, valueobject.Invalid("repayment amounts must not be negative")
	}
	if principal.GreaterThan(l.outstandingBalance) {
		return l, valueobject.Invalid("principal %s exceeds outstanding balance %s", principal, l.outstandingBalance)
	}

	next := l
	next.schedule = l.Schedule()
	next.domainEvents = copyEvents(l.domainEvents)
	next.outstandingBalance = l.outstandingBalance.Sub(principal)
	next.updatedAt = now
	next.pourIntoSchedule(interest, principal)

	if next.outstandingBalance.IsZero() {
		closed, err := next.transitionTo(valueobject.LoanStatePaid, now)
		if err != nil {
			return l, err
		}
		closed.settleRemainingInstallments()
		closed.recordDecision("paid in full", now)
		return closed, nil
	}
	return next, nil
}

// SettleByRefinancing closes the loan by netting its outstanding balance
// against a new loan's disbursement and returns the netted amount.
func (l Loan) SettleByRefinancing(newLoanID uuid.UUID, now time.Time) (Loan, decimal.Decimal, error) {
	if !l.state.IsOutstanding() {
		return l, decimal.Zero, fmt.Errorf("%w: loan %s in state %s cannot be refinanced",
			valueobject.ErrInvalidStatusTransition, l.id, l.state)
	}
	netted := l.outstandingBalance
	next, err := l.transitionTo(valueobject.LoanStatePaid, now)
	if err != nil {
		return l, decimal.Zero, err
	}
	next.outstandingBalance = decimal.Zero
	next.settleRemainingInstallments()
	next.recordDecision(fmt.Sprintf("settled by refinancing loan %s", newLoanID), now)
	return next, netted, nil
}

// pourIntoSchedule books interest against scheduled interest and principal
// against scheduled principal, each across unpaid installments in sequence.
func (l *Loan) pourIntoSchedule(interest, principal decimal.Decimal) {
	for i := range l.schedule {
		if !interest.IsPositive() && !principal.IsPositive() {
			return
		}
		inst := &l.schedule[i]
		if inst.State == valueobject.InstallmentPaid {
			continue
		}
		interest = inst.payInterest(interest)
		principal = inst.payPrincipal(principal)
		if inst.State != valueobject.InstallmentLate || inst.Remaining().IsZero() {
			inst.State = installmentStateFor(*inst)
		}
	}
}

func (l *Loan) settleRemainingInstallments() {
	for i := range l.schedule {
		l.schedule[i].State = valueobject.InstallmentPaid
	}
}

func installmentStateFor(inst Installment) valueobject.InstallmentState {
	switch {
	case inst.Remaining().IsZero():
		return valueobject.InstallmentPaid
	case inst.PaidAmount.IsPositive():
		return valueobject.InstallmentPartial
	default:
		return valueobject.InstallmentPending
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// InterestDue is the unpaid scheduled interest of installments due on or
// before asOf. When every such installment is settled, the interest of the
// open installment (the first one not yet due) is owed as well, so a payment
// made ahead of a due date still settles interest before principal.
func (l Loan) InterestDue(asOf time.Time) decimal.Decimal {
	if !l.state.IsOutstanding() {
		return decimal.Zero
	}
	cutoff := CivilDate(asOf)
	due := decimal.Zero
	inArrears := false
	for _, inst := range l.schedule {
		if inst.DueDate.After(cutoff) {
			if inArrears {
				break
			}
			if inst.Remaining().IsZero() {
				continue // prepaid in full
			}
			due = due.Add(inst.UnpaidInterest())
			break
		}
		due = due.Add(inst.UnpaidInterest())
		if inst.Remaining().IsPositive() {
			inArrears = true
		}
	}
	return due
}

// RepaidRatio is (approved - outstanding) / approved, zero before disbursement.
func (l Loan) RepaidRatio() decimal.Decimal {
	if !l.principalApproved.IsPositive() {
		return decimal.Zero
	}
	return l.principalApproved.Sub(l.outstandingBalance).Div(l.principalApproved)
}

// IsRefinancing reports whether the request replaces an existing loan.
func (l Loan) IsRefinancing() bool { return l.refinancesLoanID != uuid.Nil }

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (l Loan) ID() uuid.UUID                       { return l.id }
func (l Loan) TrackingCode() string                { return l.trackingCode }
func (l Loan) MemberID() uuid.UUID                 { return l.memberID }
func (l Loan) GuarantorID() uuid.UUID              { return l.guarantorID }
func (l Loan) Type() valueobject.LoanType          { return l.loanType }
func (l Loan) PrincipalRequested() decimal.Decimal { return l.principalRequested }
func (l Loan) PrincipalApproved() decimal.Decimal  { return l.principalApproved }
func (l Loan) OutstandingBalance() decimal.Decimal { return l.outstandingBalance }
func (l Loan) TermMonths() int                     { return l.termMonths }
func (l Loan) MonthlyRatePct() decimal.Decimal     { return l.monthlyRatePct }
func (l Loan) State() valueobject.LoanState        { return l.state }
func (l Loan) QueuedAtRequest() bool               { return l.queuedAtRequest }
func (l Loan) GuarantorToken() string              { return l.guarantorToken }
func (l Loan) RefinancesLoanID() uuid.UUID         { return l.refinancesLoanID }
func (l Loan) NettedAmount() decimal.Decimal       { return l.nettedAmount }
func (l Loan) DisbursementNote() string            { return l.disbursementNote }
func (l Loan) DecisionNote() string                { return l.decisionNote }
func (l Loan) ContractPending() bool               { return l.contractPending }
func (l Loan) ContractRef() string                 { return l.contractRef }
func (l Loan) RequestedAt() time.Time              { return l.requestedAt }
func (l Loan) ApprovedAt() time.Time               { return l.approvedAt }
func (l Loan) Version() int                        { return l.version }
func (l Loan) CreatedAt() time.Time                { return l.createdAt }
func (l Loan) UpdatedAt() time.Time                { return l.updatedAt }
func (l Loan) DomainEvents() []event.DomainEvent   { return l.domainEvents }

// Schedule returns a defensive copy of the installment schedule.
func (l Loan) Schedule() []Installment {
	if l.schedule == nil {
		return nil
	}
	out := make([]Installment, len(l.schedule))
	copy(out, l.schedule)
	return out
}

// ClearEvents returns a copy with an empty event list.
func (l Loan) ClearEvents() Loan {
	next := l
	next.domainEvents = nil
	return next
}

// newTrackingCode builds a human-quotable code such as CR-20250115-1A2B3C4D.
func newTrackingCode(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("CR-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(id.String()[:8]))
}
