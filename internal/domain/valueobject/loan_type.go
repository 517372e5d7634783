package valueobject

// LoanType distinguishes multi-month amortizing loans from single-month express loans.
type LoanType struct {
	value string
}

const (
	loanTypeStandard = "STANDARD"
	loanTypeExpress  = "EXPRESS"
)

var (
	LoanTypeStandard = LoanType{value: loanTypeStandard}
	LoanTypeExpress  = LoanType{value: loanTypeExpress}
)

// NewLoanType creates a LoanType from a raw string.
func NewLoanType(s string) (LoanType, error) {
	switch s {
	case loanTypeStandard:
		return LoanTypeStandard, nil
	case loanTypeExpress:
		return LoanTypeExpress, nil
	}
	return LoanType{}, Invalid("invalid loan type: %q", s)
}

func (t LoanType) String() string { return t.value }

func (t LoanType) IsZero() bool { return t.value == "" }

func (t LoanType) IsExpress() bool { return t.value == loanTypeExpress }

// FirstDueOffsetMonths is the number of calendar months between disbursement
// and the first due date.
func (t LoanType) FirstDueOffsetMonths() int {
	if t.IsExpress() {
		return 1
	}
	return 2
}
