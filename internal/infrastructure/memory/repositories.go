package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

func conflict(kind string, id uuid.UUID) error {
	return fmt.Errorf("%w: %s %s was modified concurrently", valueobject.ErrConcurrentModification, kind, id)
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%w: %s %v", valueobject.ErrNotFound, kind, id)
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

// MemberRepo implements port.MemberRepository.
type MemberRepo struct{ s *Store }

func (r *MemberRepo) Save(_ context.Context, account model.MemberAccount) error {
	rec := account.Record()
	return r.s.write(func(st *state) error {
		if cur, ok := st.members[rec.MemberID]; ok {
			if cur.Version != rec.Version {
				return conflict("member", rec.MemberID)
			}
			rec.Version = cur.Version + 1
		}
		st.members[rec.MemberID] = rec
		return nil
	})
}

func (r *MemberRepo) FindByMemberID(_ context.Context, memberID uuid.UUID) (model.MemberAccount, error) {
	var (
		rec model.MemberAccountRecord
		ok  bool
	)
	r.s.read(func(st *state) { rec, ok = st.members[memberID] })
	if !ok {
		return model.MemberAccount{}, notFound("member", memberID)
	}
	return model.ReconstructMemberAccount(rec), nil
}

func (r *MemberRepo) ListEnrolled(_ context.Context) ([]model.MemberAccount, error) {
	var out []model.MemberAccount
	r.s.read(func(st *state) {
		for _, rec := range st.members {
			if rec.Status.IsEnrolled() {
				out = append(out, model.ReconstructMemberAccount(rec))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID().String() < out[j].MemberID().String() })
	return out, nil
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

// LoanRepo implements port.LoanRepository.
type LoanRepo struct{ s *Store }

func (r *LoanRepo) Save(_ context.Context, loan model.Loan) error {
	rec := loan.Record()
	return r.s.write(func(st *state) error {
		if cur, ok := st.loans[rec.ID]; ok {
			if cur.Version != rec.Version {
				return conflict("loan", rec.ID)
			}
			rec.Version = cur.Version + 1
		}
		st.loans[rec.ID] = rec
		return nil
	})
}

func (r *LoanRepo) FindByID(_ context.Context, id uuid.UUID) (model.Loan, error) {
	var (
		rec model.LoanRecord
		ok  bool
	)
	r.s.read(func(st *state) { rec, ok = st.loans[id] })
	if !ok {
		return model.Loan{}, notFound("loan", id)
	}
	return model.ReconstructLoan(rec), nil
}

func (r *LoanRepo) ListByMember(_ context.Context, memberID uuid.UUID) ([]model.Loan, error) {
	return r.list(func(rec model.LoanRecord) bool { return rec.MemberID == memberID }), nil
}

func (r *LoanRepo) ListByState(_ context.Context, state valueobject.LoanState) ([]model.Loan, error) {
	return r.list(func(rec model.LoanRecord) bool { return rec.State.Equal(state) }), nil
}

func (r *LoanRepo) ListContractPending(_ context.Context, limit int) ([]model.Loan, error) {
	out := r.list(func(rec model.LoanRecord) bool { return rec.ContractPending })
	sort.SliceStable(out, func(i, j int) bool { return out[i].ApprovedAt().Before(out[j].ApprovedAt()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *LoanRepo) SumApprovedPrincipal(_ context.Context, states ...valueobject.LoanState) (decimal.Decimal, error) {
	return r.sum(states, func(rec model.LoanRecord) decimal.Decimal { return rec.PrincipalApproved }), nil
}

func (r *LoanRepo) SumRequestedPrincipal(_ context.Context, states ...valueobject.LoanState) (decimal.Decimal, error) {
	return r.sum(states, func(rec model.LoanRecord) decimal.Decimal { return rec.PrincipalRequested }), nil
}

func (r *LoanRepo) list(match func(model.LoanRecord) bool) []model.Loan {
	var recs []model.LoanRecord
	r.s.read(func(st *state) {
		for _, rec := range st.loans {
			if match(rec) {
				recs = append(recs, rec)
			}
		}
	})
	sortLoansFIFO(recs)
	out := make([]model.Loan, 0, len(recs))
	for _, rec := range recs {
		out = append(out, model.ReconstructLoan(rec))
	}
	return out
}

func (r *LoanRepo) sum(states []valueobject.LoanState, field func(model.LoanRecord) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	r.s.read(func(st *state) {
		for _, rec := range st.loans {
			for _, s := range states {
				if rec.State.Equal(s) {
					total = total.Add(field(rec))
					break
				}
			}
		}
	})
	return total
}

// ---------------------------------------------------------------------------
// Payments
// ---------------------------------------------------------------------------

// PaymentRepo implements port.PaymentRepository.
type PaymentRepo struct{ s *Store }

func (r *PaymentRepo) Save(_ context.Context, payment model.Payment) error {
	rec := payment.Record()
	return r.s.write(func(st *state) error {
		if cur, ok := st.payments[rec.ID]; ok {
			if cur.Version != rec.Version {
				return conflict("payment", rec.ID)
			}
			rec.Version = cur.Version + 1
		}
		st.payments[rec.ID] = rec
		return nil
	})
}

func (r *PaymentRepo) FindByID(_ context.Context, id uuid.UUID) (model.Payment, error) {
	var (
		rec model.PaymentRecord
		ok  bool
	)
	r.s.read(func(st *state) { rec, ok = st.payments[id] })
	if !ok {
		return model.Payment{}, notFound("payment", id)
	}
	return model.ReconstructPayment(rec), nil
}

func (r *PaymentRepo) NonceExists(_ context.Context, memberID uuid.UUID, nonce string) (bool, error) {
	found := false
	r.s.read(func(st *state) {
		for _, rec := range st.payments {
			if rec.MemberID == memberID && rec.Nonce == nonce {
				found = true
				return
			}
		}
	})
	return found, nil
}

// ---------------------------------------------------------------------------
// Cash movements
// ---------------------------------------------------------------------------

// CashRepo implements port.CashMovementRepository.
type CashRepo struct{ s *Store }

func (r *CashRepo) Append(_ context.Context, movements ...model.CashMovement) error {
	return r.s.write(func(st *state) error {
		st.movements = append(st.movements, movements...)
		return nil
	})
}

func (r *CashRepo) Totals(_ context.Context) (model.CashTotals, error) {
	var out model.CashTotals
	r.s.read(func(st *state) { out = model.TotalsOf(st.movements) })
	return out, nil
}

func (r *CashRepo) SumByCategories(_ context.Context, from, to time.Time, categories ...valueobject.CashCategory) (decimal.Decimal, error) {
	total := decimal.Zero
	r.s.read(func(st *state) {
		for _, m := range st.movements {
			if m.OccurredAt.Before(from) || !m.OccurredAt.Before(to) {
				continue
			}
			for _, c := range categories {
				if m.Category == c {
					total = total.Add(m.Amount)
					break
				}
			}
		}
	})
	return total, nil
}

// All returns every movement in insertion order.
func (r *CashRepo) All() []model.CashMovement {
	var out []model.CashMovement
	r.s.read(func(st *state) { out = append(out, st.movements...) })
	return out
}

// ---------------------------------------------------------------------------
// Profit
// ---------------------------------------------------------------------------

// ProfitRepo implements port.ProfitRepository.
type ProfitRepo struct{ s *Store }

func (r *ProfitRepo) SaveMonthlyClose(_ context.Context, summary model.ProfitClose, records []model.ProfitRecord) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.closes[summary.Period]; ok {
			return fmt.Errorf("%w: period %s is already closed", valueobject.ErrConcurrentModification, summary.Period)
		}
		st.closes[summary.Period] = summary
		for _, rec := range records {
			st.records[rec.ID] = rec
		}
		return nil
	})
}

func (r *ProfitRepo) FindMonthlyClose(_ context.Context, period valueobject.Period) (model.ProfitClose, error) {
	var (
		c  model.ProfitClose
		ok bool
	)
	r.s.read(func(st *state) { c, ok = st.closes[period] })
	if !ok {
		return model.ProfitClose{}, notFound("monthly close", period)
	}
	return c, nil
}

func (r *ProfitRepo) ListRecordsByYear(_ context.Context, year int) ([]model.ProfitRecord, error) {
	var out []model.ProfitRecord
	r.s.read(func(st *state) {
		for _, rec := range st.records {
			if rec.Period.Year() == year {
				out = append(out, rec)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period.Before(out[j].Period)
		}
		return out[i].MemberID.String() < out[j].MemberID.String()
	})
	return out, nil
}

func (r *ProfitRepo) UpdateRecords(_ context.Context, records []model.ProfitRecord) error {
	return r.s.write(func(st *state) error {
		for _, rec := range records {
			if _, ok := st.records[rec.ID]; !ok {
				return notFound("profit record", rec.ID)
			}
			st.records[rec.ID] = rec
		}
		return nil
	})
}

func (r *ProfitRepo) SaveAnnualClose(_ context.Context, marker model.AnnualClose) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.annual[marker.Year]; ok {
			return fmt.Errorf("%w: year %d is already closed", valueobject.ErrConcurrentModification, marker.Year)
		}
		st.annual[marker.Year] = marker
		return nil
	})
}

func (r *ProfitRepo) FindAnnualClose(_ context.Context, year int) (model.AnnualClose, error) {
	var (
		c  model.AnnualClose
		ok bool
	)
	r.s.read(func(st *state) { c, ok = st.annual[year] })
	if !ok {
		return model.AnnualClose{}, notFound("annual close", year)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Withdrawals
// ---------------------------------------------------------------------------

// WithdrawalRepo implements port.WithdrawalRepository.
type WithdrawalRepo struct{ s *Store }

func (r *WithdrawalRepo) Save(_ context.Context, w model.Withdrawal) error {
	rec := w.Record()
	return r.s.write(func(st *state) error {
		st.withdrawals[rec.ID] = rec
		return nil
	})
}

func (r *WithdrawalRepo) FindByID(_ context.Context, id uuid.UUID) (model.Withdrawal, error) {
	var (
		rec model.WithdrawalRecord
		ok  bool
	)
	r.s.read(func(st *state) { rec, ok = st.withdrawals[id] })
	if !ok {
		return model.Withdrawal{}, notFound("withdrawal", id)
	}
	return model.ReconstructWithdrawal(rec), nil
}

func (r *WithdrawalRepo) FindPendingByMember(_ context.Context, memberID uuid.UUID) (model.Withdrawal, error) {
	var (
		rec model.WithdrawalRecord
		ok  bool
	)
	r.s.read(func(st *state) {
		for _, w := range st.withdrawals {
			if w.MemberID == memberID && w.State == valueobject.ApprovalPending {
				rec, ok = w, true
				return
			}
		}
	})
	if !ok {
		return model.Withdrawal{}, notFound("pending withdrawal for member", memberID)
	}
	return model.ReconstructWithdrawal(rec), nil
}

var (
	_ port.MemberRepository       = (*MemberRepo)(nil)
	_ port.LoanRepository         = (*LoanRepo)(nil)
	_ port.PaymentRepository      = (*PaymentRepo)(nil)
	_ port.CashMovementRepository = (*CashRepo)(nil)
	_ port.ProfitRepository       = (*ProfitRepo)(nil)
	_ port.WithdrawalRepository   = (*WithdrawalRepo)(nil)
)
