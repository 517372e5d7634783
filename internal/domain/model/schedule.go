package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/money"
)

// Installment is one scheduled repayment of a loan. PaidAmount is always
// InterestPaid + PrincipalPaid.
type Installment struct {
	Sequence      int
	DueDate       time.Time
	Principal     decimal.Decimal
	Interest      decimal.Decimal
	Total         decimal.Decimal
	InterestPaid  decimal.Decimal
	PrincipalPaid decimal.Decimal
	PaidAmount    decimal.Decimal
	State         valueobject.InstallmentState
}

// Remaining is the scheduled interest and principal not yet paid.
func (i Installment) Remaining() decimal.Decimal {
	return i.UnpaidInterest().Add(i.UnpaidPrincipal())
}

// UnpaidInterest is the scheduled interest not yet covered by interest payments.
func (i Installment) UnpaidInterest() decimal.Decimal {
	if i.State == valueobject.InstallmentPaid {
		return decimal.Zero
	}
	return money.Floor0(i.Interest.Sub(i.InterestPaid))
}

// UnpaidPrincipal is the scheduled principal not yet covered by principal payments.
func (i Installment) UnpaidPrincipal() decimal.Decimal {
	if i.State == valueobject.InstallmentPaid {
		return decimal.Zero
	}
	return money.Floor0(i.Principal.Sub(i.PrincipalPaid))
}

// payInterest books up to amount against the unpaid interest and returns what is left.
func (i *Installment) payInterest(amount decimal.Decimal) decimal.Decimal {
	take := money.Min(amount, i.UnpaidInterest())
	i.InterestPaid = i.InterestPaid.Add(take)
	i.PaidAmount = i.InterestPaid.Add(i.PrincipalPaid)
	return amount.Sub(take)
}

// payPrincipal books up to amount against the unpaid principal and returns what is left.
func (i *Installment) payPrincipal(amount decimal.Decimal) decimal.Decimal {
	take := money.Min(amount, i.UnpaidPrincipal())
	i.PrincipalPaid = i.PrincipalPaid.Add(take)
	i.PaidAmount = i.InterestPaid.Add(i.PrincipalPaid)
	return amount.Sub(take)
}

// ScheduleInput describes the loan to amortize. MonthlyRatePct is a
// percentage: 2 means 2% per month.
type ScheduleInput struct {
	Principal            decimal.Decimal
	MonthlyRatePct       decimal.Decimal
	TermMonths           int
	StartDate            time.Time
	LoanType             valueobject.LoanType
	AlreadyPaidPrincipal decimal.Decimal
}

// ScheduleSummary aggregates the rounded cells of a schedule.
type ScheduleSummary struct {
	Installments   int
	TotalPrincipal decimal.Decimal
	TotalInterest  decimal.Decimal
	TotalPayable   decimal.Decimal
	FirstDueDate   time.Time
	LastDueDate    time.Time
}

// BuildSchedule produces a constant-amortization (German) schedule.
//
// Principal per installment is principal/term rounded to cents and then up to
// the statutory thousand; the last installment takes whatever balance is left
// so the principals add up exactly. Interest is charged on the opening balance
// of each installment; the first one is prorated by the days between the start
// date and its due date on a 30-day month. Interest and total are rounded up to
// the thousand independently of each other.
//
// A non-positive term or principal yields an empty schedule.
func BuildSchedule(in ScheduleInput) ([]Installment, ScheduleSummary) {
	if in.TermMonths <= 0 || !in.Principal.IsPositive() {
		return nil, ScheduleSummary{}
	}

	rate := in.MonthlyRatePct.Div(decimal.NewFromInt(100))
	thirty := decimal.NewFromInt(30)
	offset := in.LoanType.FirstDueOffsetMonths()
	start := CivilDate(in.StartDate)
	base := money.CeilThousand(money.Round2(in.Principal.Div(decimal.NewFromInt(int64(in.TermMonths)))))

	schedule := make([]Installment, 0, in.TermMonths)
	balance := in.Principal
	for i := 0; i < in.TermMonths; i++ {
		due := dueDate(start, offset+i)

		principal := money.Min(base, balance)
		if i == in.TermMonths-1 {
			principal = balance
		}

		rawInterest := balance.Mul(rate)
		if i == 0 && !in.StartDate.IsZero() {
			days := decimal.NewFromInt(DaysBetween(start, due))
			rawInterest = balance.Mul(rate).Mul(days).Div(thirty)
		}

		schedule = append(schedule, Installment{
			Sequence:      i + 1,
			DueDate:       due,
			Principal:     principal,
			Interest:      money.CeilThousand(rawInterest),
			Total:         money.CeilThousand(principal.Add(rawInterest)),
			InterestPaid:  decimal.Zero,
			PrincipalPaid: decimal.Zero,
			PaidAmount:    decimal.Zero,
			State:         valueobject.InstallmentPending,
		})
		balance = balance.Sub(principal)
	}

	markBackfilled(schedule, in.AlreadyPaidPrincipal)

	return schedule, Summarize(schedule)
}

// markBackfilled marks installments paid in order while their cumulative
// scheduled principal fits inside alreadyPaid.
func markBackfilled(schedule []Installment, alreadyPaid decimal.Decimal) {
	if !alreadyPaid.IsPositive() {
		return
	}
	covered := decimal.Zero
	for i := range schedule {
		next := covered.Add(schedule[i].Principal)
		if next.GreaterThan(alreadyPaid) {
			return
		}
		schedule[i].State = valueobject.InstallmentPaid
		schedule[i].InterestPaid = schedule[i].Interest
		schedule[i].PrincipalPaid = schedule[i].Principal
		schedule[i].PaidAmount = schedule[i].Interest.Add(schedule[i].Principal)
		covered = next
	}
}

// Summarize totals the rounded cells of a schedule.
func Summarize(schedule []Installment) ScheduleSummary {
	if len(schedule) == 0 {
		return ScheduleSummary{}
	}
	s := ScheduleSummary{
		Installments:   len(schedule),
		TotalPrincipal: decimal.Zero,
		TotalInterest:  decimal.Zero,
		TotalPayable:   decimal.Zero,
		FirstDueDate:   schedule[0].DueDate,
		LastDueDate:    schedule[len(schedule)-1].DueDate,
	}
	for _, inst := range schedule {
		s.TotalPrincipal = s.TotalPrincipal.Add(inst.Principal)
		s.TotalInterest = s.TotalInterest.Add(inst.Interest)
		s.TotalPayable = s.TotalPayable.Add(inst.Total)
	}
	return s
}

// dueDate returns day DueDay of the month monthsAhead after start's month.
func dueDate(start time.Time, monthsAhead int) time.Time {
	return time.Date(start.Year(), start.Month()+time.Month(monthsAhead), valueobject.DueDay, 0, 0, 0, 0, time.UTC)
}
