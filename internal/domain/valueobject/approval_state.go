package valueobject

import "fmt"

// ApprovalState is the treasury decision state of a payment report or a
// withdrawal request. It changes at most once.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "PENDING"
	ApprovalApproved ApprovalState = "APPROVED"
	ApprovalRejected ApprovalState = "REJECTED"
)

// ParseApprovalState validates a raw string.
func ParseApprovalState(s string) (ApprovalState, error) {
	switch st := ApprovalState(s); st {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return st, nil
	}
	return "", fmt.Errorf("invalid approval state: %q", s)
}

// InstallmentState tracks repayment of one scheduled installment.
type InstallmentState string

const (
	InstallmentPending InstallmentState = "PENDING"
	InstallmentPartial InstallmentState = "PARTIAL"
	InstallmentPaid    InstallmentState = "PAID"
	InstallmentLate    InstallmentState = "LATE"
)

// ProfitState is the finalization state of a monthly profit record.
type ProfitState string

const (
	ProfitProvisional ProfitState = "PROVISIONAL"
	ProfitSettled     ProfitState = "SETTLED"
)
