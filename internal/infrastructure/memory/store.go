// Package memory is an in-process implementation of every storage port. It
// backs the service when no database is configured and serves as the fake in
// use case tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/events"
)

// state is everything the store holds. It is cloned to take savepoints.
type state struct {
	members     map[uuid.UUID]model.MemberAccountRecord
	loans       map[uuid.UUID]model.LoanRecord
	payments    map[uuid.UUID]model.PaymentRecord
	withdrawals map[uuid.UUID]model.WithdrawalRecord
	movements   []model.CashMovement
	closes      map[valueobject.Period]model.ProfitClose
	records     map[uuid.UUID]model.ProfitRecord
	annual      map[int]model.AnnualClose
	outbox      []events.OutboxEntry
}

func newState() *state {
	return &state{
		members:     make(map[uuid.UUID]model.MemberAccountRecord),
		loans:       make(map[uuid.UUID]model.LoanRecord),
		payments:    make(map[uuid.UUID]model.PaymentRecord),
		withdrawals: make(map[uuid.UUID]model.WithdrawalRecord),
		closes:      make(map[valueobject.Period]model.ProfitClose),
		records:     make(map[uuid.UUID]model.ProfitRecord),
		annual:      make(map[int]model.AnnualClose),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.loans {
		v.Schedule = append([]model.Installment(nil), v.Schedule...)
		c.loans[k] = v
	}
	for k, v := range s.payments {
		v.Breakdown = append([]model.Allocation(nil), v.Breakdown...)
		c.payments[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	c.movements = append([]model.CashMovement(nil), s.movements...)
	for k, v := range s.closes {
		c.closes[k] = v
	}
	for k, v := range s.records {
		c.records[k] = v
	}
	for k, v := range s.annual {
		c.annual[k] = v
	}
	c.outbox = append([]events.OutboxEntry(nil), s.outbox...)
	return c
}

// Store holds all fund state in memory. Top-level transactions are
// serialized; nested ones roll back to a savepoint on failure.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *state
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

// WithinTx implements port.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
		ctx = context.WithValue(ctx, txKey{}, true)
	}

	s.mu.Lock()
	savepoint := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.data = savepoint
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Members returns the member repository view of the store.
func (s *Store) Members() *MemberRepo { return &MemberRepo{s: s} }

// Loans returns the loan repository view of the store.
func (s *Store) Loans() *LoanRepo { return &LoanRepo{s: s} }

// Payments returns the payment repository view of the store.
func (s *Store) Payments() *PaymentRepo { return &PaymentRepo{s: s} }

// Cash returns the cash movement ledger view of the store.
func (s *Store) Cash() *CashRepo { return &CashRepo{s: s} }

// Profits returns the profit repository view of the store.
func (s *Store) Profits() *ProfitRepo { return &ProfitRepo{s: s} }

// Withdrawals returns the withdrawal repository view of the store.
func (s *Store) Withdrawals() *WithdrawalRepo { return &WithdrawalRepo{s: s} }

// Outbox returns the outbox view of the store.
func (s *Store) Outbox() *OutboxRepo { return &OutboxRepo{s: s} }

// ---------------------------------------------------------------------------
// Outbox
// ---------------------------------------------------------------------------

// OutboxRepo implements events.OutboxRepository.
type OutboxRepo struct{ s *Store }

func (r *OutboxRepo) Store(_ context.Context, entries []events.OutboxEntry) error {
	return r.s.write(func(st *state) error {
		st.outbox = append(st.outbox, entries...)
		return nil
	})
}

func (r *OutboxRepo) FetchUnpublished(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
	var out []events.OutboxEntry
	r.s.read(func(st *state) {
		for _, e := range st.outbox {
			if e.PublishedAt != nil {
				continue
			}
			out = append(out, e)
			if batchSize > 0 && len(out) == batchSize {
				return
			}
		}
	})
	return out, nil
}

func (r *OutboxRepo) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return r.s.write(func(st *state) error {
		for i := range st.outbox {
			if wanted[st.outbox[i].ID] {
				t := at
				st.outbox[i].PublishedAt = &t
			}
		}
		return nil
	})
}

// All returns every stored entry in insertion order.
func (r *OutboxRepo) All() []events.OutboxEntry {
	var out []events.OutboxEntry
	r.s.read(func(st *state) {
		out = append(out, st.outbox...)
	})
	return out
}

// sortLoansFIFO orders loan records by request time, then ID.
func sortLoansFIFO(recs []model.LoanRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].RequestedAt.Equal(recs[j].RequestedAt) {
			return recs[i].RequestedAt.Before(recs[j].RequestedAt)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
}

var (
	_ port.Transactor       = (*Store)(nil)
	_ port.OutboxRepository = (*OutboxRepo)(nil)
)
