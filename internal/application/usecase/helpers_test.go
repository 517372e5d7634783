package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fund/internal/application/usecase"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/internal/infrastructure/lock"
	"github.com/bibbank/fund/internal/infrastructure/memory"
	"github.com/bibbank/fund/pkg/events"
	"github.com/bibbank/fund/pkg/testutil"
)

// fixture wires every use case dependency to one in-memory store and a
// clock the test can move.
type fixture struct {
	store *memory.Store
	deps  usecase.Deps
	now   time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{store: store, now: now}
	f.deps = usecase.Deps{
		Members:     store.Members(),
		Loans:       store.Loans(),
		Payments:    store.Payments(),
		Cash:        store.Cash(),
		Profits:     store.Profits(),
		Withdrawals: store.Withdrawals(),
		Outbox:      store.Outbox(),
		Tx:          store,
		Locker:      lock.NewMutexLocker(),
		Policy:      valueobject.DefaultFundPolicy(),
		Clock:       func() time.Time { return f.now },
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return f
}

func (f *fixture) at(t time.Time) { f.now = t }

type memberSeed struct {
	id         uuid.UUID
	shares     int
	savings    string
	lastPaid   *time.Time
	status     valueobject.MembershipStatus
	sanctioned *time.Time
}

func (f *fixture) seedMember(t *testing.T, s memberSeed) model.MemberAccount {
	t.Helper()
	status := s.status
	if status.IsZero() {
		status = valueobject.MembershipActive
	}
	savings := decimal.Zero
	if s.savings != "" {
		savings = decimal.RequireFromString(s.savings)
	}
	account, err := model.NewMemberAccount(model.MemberRegistration{
		MemberID:         s.id,
		FullName:         "Member " + s.id.String(),
		Shares:           s.shares,
		OpeningSavings:   savings,
		LastContribution: s.lastPaid,
		Status:           status,
	}, f.now)
	require.NoError(t, err)
	if s.sanctioned != nil {
		account, err = account.Sanction(*s.sanctioned, f.now)
		require.NoError(t, err)
	}
	require.NoError(t, f.store.Members().Save(context.Background(), account))
	return account
}

// activeMembers seeds the usual requester and guarantor pair.
func (f *fixture) activeMembers(t *testing.T) {
	t.Helper()
	paid := testutil.Date(2025, time.February, 10)
	f.seedMember(t, memberSeed{id: testutil.MemberID1, shares: 2, lastPaid: &paid})
	f.seedMember(t, memberSeed{id: testutil.MemberID2, shares: 3, lastPaid: &paid})
}

// fund books an inflow so the fund has cash to lend.
func (f *fixture) fund(t *testing.T, category valueobject.CashCategory, amount string, at time.Time) {
	t.Helper()
	m, err := model.NewCashMovement(category, decimal.RequireFromString(amount), at, "seed")
	require.NoError(t, err)
	require.NoError(t, f.store.Cash().Append(context.Background(), m))
}

func (f *fixture) member(t *testing.T, id uuid.UUID) model.MemberAccount {
	t.Helper()
	account, err := f.store.Members().FindByMemberID(context.Background(), id)
	require.NoError(t, err)
	return account
}

func (f *fixture) loan(t *testing.T, id uuid.UUID) model.Loan {
	t.Helper()
	loan, err := f.store.Loans().FindByID(context.Background(), id)
	require.NoError(t, err)
	return loan
}

func (f *fixture) eventTypes() []string {
	var out []string
	for _, e := range f.store.Outbox().All() {
		out = append(out, e.EventType)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ---------------------------------------------------------------------------
// Function-field mocks
// ---------------------------------------------------------------------------

type mockDocumentGenerator struct {
	generateFn func(ctx context.Context, loan model.Loan) (string, error)
	calls      int
}

func (m *mockDocumentGenerator) GenerateContract(ctx context.Context, loan model.Loan) (string, error) {
	m.calls++
	if m.generateFn != nil {
		return m.generateFn(ctx, loan)
	}
	return "contract://" + loan.TrackingCode(), nil
}

type mockEventPublisher struct {
	publishFn func(ctx context.Context, topic string, entries ...events.OutboxEntry) error
	published map[string][]events.OutboxEntry
}

func (m *mockEventPublisher) Publish(ctx context.Context, topic string, entries ...events.OutboxEntry) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, topic, entries...); err != nil {
			return err
		}
	}
	if m.published == nil {
		m.published = make(map[string][]events.OutboxEntry)
	}
	m.published[topic] = append(m.published[topic], entries...)
	return nil
}

// failingCash wraps the real ledger and lets a test break single methods.
type failingCash struct {
	*memory.CashRepo
	appendFn func(ctx context.Context, movements ...model.CashMovement) error
}

func (c *failingCash) Append(ctx context.Context, movements ...model.CashMovement) error {
	if c.appendFn != nil {
		return c.appendFn(ctx, movements...)
	}
	return c.CashRepo.Append(ctx, movements...)
}

// failingLoans wraps the real loan repository and lets a test break Save.
type failingLoans struct {
	*memory.LoanRepo
	saveFn func(ctx context.Context, loan model.Loan) error
}

func (r *failingLoans) Save(ctx context.Context, loan model.Loan) error {
	if r.saveFn != nil {
		return r.saveFn(ctx, loan)
	}
	return r.LoanRepo.Save(ctx, loan)
}
