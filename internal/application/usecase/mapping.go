package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
)

func toMemberResponse(a model.MemberAccount) dto.MemberResponse {
	return dto.MemberResponse{
		MemberID:         a.MemberID(),
		FullName:         a.FullName(),
		Shares:           a.Shares(),
		SavingsBalance:   a.SavingsBalance(),
		RetainedEarnings: a.RetainedEarnings(),
		LastContribution: a.LastContribution(),
		Status:           a.Status().String(),
		SanctionedUntil:  a.SanctionedUntil(),
	}
}

func toPaymentResponse(p model.Payment) dto.PaymentResponse {
	lines := p.Breakdown()
	breakdown := make([]dto.AllocationResponse, 0, len(lines))
	for _, l := range lines {
		breakdown = append(breakdown, dto.AllocationResponse{Concept: string(l.Concept), Amount: l.Amount})
	}
	return dto.PaymentResponse{
		ID:             p.ID(),
		MemberID:       p.MemberID(),
		Amount:         p.Amount(),
		ProofReference: p.ProofReference(),
		State:          string(p.State()),
		Breakdown:      breakdown,
		Reason:         p.Reason(),
		ReportedAt:     p.ReportedAt(),
		DecidedAt:      optionalTime(p.DecidedAt()),
	}
}

func toInstallments(schedule []model.Installment) []dto.InstallmentResponse {
	out := make([]dto.InstallmentResponse, len(schedule))
	for i, inst := range schedule {
		out[i] = dto.InstallmentResponse{
			Sequence:      inst.Sequence,
			DueDate:       inst.DueDate,
			Principal:     inst.Principal,
			Interest:      inst.Interest,
			Total:         inst.Total,
			InterestPaid:  inst.InterestPaid,
			PrincipalPaid: inst.PrincipalPaid,
			PaidAmount:    inst.PaidAmount,
			State:         string(inst.State),
		}
	}
	return out
}

func toLoanResponse(l model.Loan) dto.LoanResponse {
	resp := dto.LoanResponse{
		ID:                 l.ID(),
		TrackingCode:       l.TrackingCode(),
		MemberID:           l.MemberID(),
		GuarantorID:        l.GuarantorID(),
		Type:               l.Type().String(),
		PrincipalRequested: l.PrincipalRequested(),
		PrincipalApproved:  l.PrincipalApproved(),
		OutstandingBalance: l.OutstandingBalance(),
		TermMonths:         l.TermMonths(),
		MonthlyRatePct:     l.MonthlyRatePct(),
		State:              l.State().String(),
		Queued:             l.QueuedAtRequest(),
		NettedAmount:       l.NettedAmount(),
		DecisionNote:       l.DecisionNote(),
		ContractPending:    l.ContractPending(),
		ContractRef:        l.ContractRef(),
		Schedule:           toInstallments(l.Schedule()),
		RequestedAt:        l.RequestedAt(),
		ApprovedAt:         optionalTime(l.ApprovedAt()),
	}
	if l.IsRefinancing() {
		id := l.RefinancesLoanID()
		resp.RefinancesLoanID = &id
	}
	return resp
}

func toScheduleResponse(loanID uuid.UUID, l model.Loan) dto.ScheduleResponse {
	schedule := l.Schedule()
	summary := model.Summarize(schedule)
	return dto.ScheduleResponse{
		LoanID:         loanID,
		MonthlyRatePct: l.MonthlyRatePct(),
		Installments:   toInstallments(schedule),
		TotalPrincipal: summary.TotalPrincipal,
		TotalInterest:  summary.TotalInterest,
		TotalPayable:   summary.TotalPayable,
	}
}

func toWithdrawalResponse(w model.Withdrawal) dto.WithdrawalResponse {
	return dto.WithdrawalResponse{
		ID:          w.ID(),
		MemberID:    w.MemberID(),
		Reason:      w.Reason(),
		State:       string(w.State()),
		Payout:      w.Payout(),
		Note:        w.Note(),
		RequestedAt: w.RequestedAt(),
		DecidedAt:   optionalTime(w.DecidedAt()),
	}
}

func toMonthlyCloseResponse(c model.ProfitClose, already bool) dto.MonthlyCloseResponse {
	return dto.MonthlyCloseResponse{
		Period:          c.Period.String(),
		Income:          c.Income,
		Expenses:        c.Expenses,
		NetProfit:       c.NetProfit,
		EligibleShares:  c.EligibleShares,
		ValuePerShare:   c.ValuePerShare,
		TotalAllocated:  c.TotalAllocated,
		MembersCovered:  c.MembersCovered,
		EligibleMembers: c.EligibleMembers,
		ClosedAt:        c.ClosedAt,
		AlreadyClosed:   already,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
