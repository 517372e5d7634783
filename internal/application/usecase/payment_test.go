package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/application/usecase"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/testutil"
)

func reportPayment(t *testing.T, f *fixture, amount, nonce string) dto.PaymentResponse {
	t.Helper()
	resp, err := usecase.NewReportPaymentUseCase(f.deps).Execute(context.Background(), dto.ReportPaymentRequest{
		MemberID:       testutil.MemberID1,
		Amount:         dec(amount),
		ProofReference: "receipt-" + nonce,
		Nonce:          nonce,
	})
	require.NoError(t, err)
	return resp
}

func TestReportPayment_Execute(t *testing.T) {
	t.Run("stores a pending report with an event", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.activeMembers(t)

		resp := reportPayment(t, f, "134000", "n-1")

		assert.Equal(t, "PENDING", resp.State)
		assert.Equal(t, testutil.MemberID1, resp.MemberID)
		assert.Empty(t, resp.Breakdown)
		assert.Equal(t, []string{"fund.payment.reported"}, f.eventTypes())
	})

	t.Run("rejects a reused nonce", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.activeMembers(t)
		reportPayment(t, f, "134000", "n-1")

		_, err := usecase.NewReportPaymentUseCase(f.deps).Execute(context.Background(), dto.ReportPaymentRequest{
			MemberID:       testutil.MemberID1,
			Amount:         dec("5000"),
			ProofReference: "again",
			Nonce:          "n-1",
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrValidation, "nonce")
		assert.Len(t, f.store.Outbox().All(), 1)
	})

	t.Run("rejects a withdrawn member", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.seedMember(t, memberSeed{id: testutil.MemberID1, shares: 1, status: valueobject.MembershipWithdrawn})

		_, err := usecase.NewReportPaymentUseCase(f.deps).Execute(context.Background(), dto.ReportPaymentRequest{
			MemberID: testutil.MemberID1, Amount: dec("1000"), ProofReference: "r", Nonce: "n",
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrPolicyViolation, "withdrawn")
	})

	t.Run("unknown member", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))

		_, err := usecase.NewReportPaymentUseCase(f.deps).Execute(context.Background(), dto.ReportPaymentRequest{
			MemberID: testutil.MemberID3, Amount: dec("1000"), ProofReference: "r", Nonce: "n",
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrNotFound)
	})
}

func TestApprovePayment_Execute(t *testing.T) {
	// Member 1 holds 2 shares and last paid in February. Reported on March 20,
	// March is owed: 100,000 savings, 4,000 fee and 15 late days of penalty.
	approve := func(f *fixture, paymentID uuid.UUID) (dto.PaymentResponse, error) {
		return usecase.NewApprovePaymentUseCase(f.deps).Execute(context.Background(), dto.ApprovePaymentRequest{
			PaymentID:  paymentID,
			ApproverID: testutil.TreasurerID,
		})
	}

	t.Run("splits exact dues and advances the contribution date", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.activeMembers(t)
		reported := reportPayment(t, f, "134000", "n-1")

		// Treasury reviews two days later; the debt is still measured on the 20th.
		f.at(testutil.Date(2025, time.March, 22))
		resp, err := approve(f, reported.ID)
		require.NoError(t, err)

		assert.Equal(t, "APPROVED", resp.State)
		require.Len(t, resp.Breakdown, 3)
		assert.Equal(t, "PENALTY", resp.Breakdown[0].Concept)
		testutil.AssertDecimal(t, "30000", resp.Breakdown[0].Amount, "penalty")
		assert.Equal(t, "ADMIN_FEE", resp.Breakdown[1].Concept)
		testutil.AssertDecimal(t, "4000", resp.Breakdown[1].Amount, "fee")
		assert.Equal(t, "SAVINGS", resp.Breakdown[2].Concept)
		testutil.AssertDecimal(t, "100000", resp.Breakdown[2].Amount, "savings")

		member := f.member(t, testutil.MemberID1)
		testutil.AssertDecimal(t, "100000", member.SavingsBalance(), "savings balance")
		require.NotNil(t, member.LastContribution())
		assert.Equal(t, testutil.Date(2025, time.March, 20), *member.LastContribution())

		movements := f.store.Cash().All()
		require.Len(t, movements, 3)
		for _, m := range movements {
			assert.Equal(t, valueobject.DirectionInflow, m.Direction)
			assert.Equal(t, reported.ID, m.PaymentID)
			assert.Equal(t, testutil.MemberID1, m.MemberID)
		}

		liquidity, err := usecase.NewGetLendableCashUseCase(f.deps).Execute(context.Background(), dto.GetLendableCashRequest{})
		require.NoError(t, err)
		testutil.AssertDecimal(t, "134000", liquidity.Inflows, "inflows")
		testutil.AssertDecimal(t, "4000", liquidity.SecretarialReserve, "reserve")
		testutil.AssertDecimal(t, "130000", liquidity.LendableCash, "lendable")

		assert.Equal(t, []string{"fund.payment.reported", "fund.payment.approved"}, f.eventTypes())
	})

	t.Run("surplus within tolerance goes to savings", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.activeMembers(t)
		reported := reportPayment(t, f, "134500", "n-1")

		resp, err := approve(f, reported.ID)
		require.NoError(t, err)

		require.Len(t, resp.Breakdown, 4)
		assert.Equal(t, "SAVINGS_SURPLUS", resp.Breakdown[3].Concept)
		testutil.AssertDecimal(t, "500", resp.Breakdown[3].Amount, "surplus")
		testutil.AssertDecimal(t, "100500", f.member(t, testutil.MemberID1).SavingsBalance(), "savings balance")
	})

	t.Run("overpayment leaves everything untouched", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.activeMembers(t)
		reported := reportPayment(t, f, "136000", "n-1")

		_, err := approve(f, reported.ID)
		testutil.AssertErrorIs(t, err, valueobject.ErrPolicyViolation, "payment exceeds owed amount")

		payment, err := f.store.Payments().FindByID(context.Background(), reported.ID)
		require.NoError(t, err)
		assert.Equal(t, valueobject.ApprovalPending, payment.State())
		assert.Empty(t, f.store.Cash().All())
		assert.True(t, f.member(t, testutil.MemberID1).SavingsBalance().IsZero())
	})

	t.Run("partial payment does not advance the contribution date", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.activeMembers(t)
		reported := reportPayment(t, f, "50000", "n-1")

		resp, err := approve(f, reported.ID)
		require.NoError(t, err)

		require.Len(t, resp.Breakdown, 3)
		testutil.AssertDecimal(t, "16000", resp.Breakdown[2].Amount, "savings")
		member := f.member(t, testutil.MemberID1)
		assert.Equal(t, testutil.Date(2025, time.February, 10), *member.LastContribution())
	})

	t.Run("pays loan interest and principal after dues", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.activeMembers(t)
		imported, err := usecase.NewImportLoanUseCase(f.deps).Execute(context.Background(), dto.ImportLoanRequest{
			MemberID:    testutil.MemberID1,
			GuarantorID: testutil.MemberID2,
			Type:        "STANDARD",
			Principal:   dec("1000000"),
			TermMonths:  10,
			DisbursedAt: testutil.Date(2025, time.January, 10),
		})
		require.NoError(t, err)
		// 1,000,000 * 2% / 30 * 54 days prorated on the first installment.
		testutil.AssertDecimal(t, "36000", imported.Schedule[0].Interest, "first interest")

		reported := reportPayment(t, f, "270000", "n-1")
		resp, err := approve(f, reported.ID)
		require.NoError(t, err)

		concepts := make([]string, 0, len(resp.Breakdown))
		for _, l := range resp.Breakdown {
			concepts = append(concepts, l.Concept)
		}
		assert.Equal(t, []string{"PENALTY", "ADMIN_FEE", "SAVINGS", "LOAN_INTEREST", "LOAN_PRINCIPAL"}, concepts)
		testutil.AssertDecimal(t, "36000", resp.Breakdown[3].Amount, "interest")
		testutil.AssertDecimal(t, "100000", resp.Breakdown[4].Amount, "principal")

		loan := f.loan(t, imported.ID)
		testutil.AssertDecimal(t, "900000", loan.OutstandingBalance(), "outstanding")
		assert.Equal(t, valueobject.InstallmentPaid, loan.Schedule()[0].State)
		assert.Equal(t, valueobject.InstallmentPending, loan.Schedule()[1].State)

		var loanLines int
		for _, m := range f.store.Cash().All() {
			if m.LoanID == imported.ID {
				loanLines++
			}
		}
		assert.Equal(t, 2, loanLines)
	})

	t.Run("payment ahead of the due date settles interest first", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 4))
		f.activeMembers(t)
		imported, err := usecase.NewImportLoanUseCase(f.deps).Execute(context.Background(), dto.ImportLoanRequest{
			MemberID:    testutil.MemberID1,
			GuarantorID: testutil.MemberID2,
			Type:        "STANDARD",
			Principal:   dec("1200000"),
			TermMonths:  12,
			DisbursedAt: testutil.Date(2025, time.January, 15),
		})
		require.NoError(t, err)
		first := imported.Schedule[0]
		assert.Equal(t, testutil.Date(2025, time.March, 5), first.DueDate)
		testutil.AssertDecimal(t, "40000", first.Interest, "first interest")
		testutil.AssertDecimal(t, "140000", first.Total, "first total")

		// 104,000 of March dues, then the whole first installment a day early.
		reported := reportPayment(t, f, "244000", "n-1")
		resp, err := approve(f, reported.ID)
		require.NoError(t, err)

		loanLines := map[string]string{}
		for _, l := range resp.Breakdown {
			if l.Concept == "LOAN_INTEREST" || l.Concept == "LOAN_PRINCIPAL" {
				loanLines[l.Concept] = l.Amount.String()
			}
		}
		assert.Equal(t, map[string]string{"LOAN_INTEREST": "40000", "LOAN_PRINCIPAL": "100000"}, loanLines)

		loan := f.loan(t, imported.ID)
		testutil.AssertDecimal(t, "1100000", loan.OutstandingBalance(), "outstanding")
		assert.Equal(t, valueobject.InstallmentPaid, loan.Schedule()[0].State)
		testutil.AssertDecimal(t, "40000", loan.Schedule()[0].InterestPaid, "interest paid")
		testutil.AssertDecimal(t, "100000", loan.Schedule()[0].PrincipalPaid, "principal paid")
		assert.True(t, loan.InterestDue(testutil.Date(2025, time.March, 20)).Equal(loan.Schedule()[1].Interest),
			"only the next installment's interest is owed after the first due date")
	})

	t.Run("second approval is an invalid transition", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.activeMembers(t)
		reported := reportPayment(t, f, "134000", "n-1")
		_, err := approve(f, reported.ID)
		require.NoError(t, err)

		_, err = approve(f, reported.ID)
		testutil.AssertErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
		assert.Len(t, f.store.Cash().All(), 3)
	})

	t.Run("ledger failure rolls back the approval", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		f.activeMembers(t)
		reported := reportPayment(t, f, "134000", "n-1")
		f.deps.Cash = &failingCash{
			CashRepo: f.store.Cash(),
			appendFn: func(context.Context, ...model.CashMovement) error { return errors.New("disk full") },
		}

		_, err := approve(f, reported.ID)
		testutil.AssertErrorContains(t, err, "disk full")

		payment, err := f.store.Payments().FindByID(context.Background(), reported.ID)
		require.NoError(t, err)
		assert.Equal(t, valueobject.ApprovalPending, payment.State())
		assert.True(t, f.member(t, testutil.MemberID1).SavingsBalance().IsZero())
		assert.Len(t, f.store.Outbox().All(), 1)
	})

	t.Run("approver is required", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 20))
		_, err := usecase.NewApprovePaymentUseCase(f.deps).Execute(context.Background(), dto.ApprovePaymentRequest{
			PaymentID: testutil.PaymentID1,
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrValidation)
	})
}

func TestRejectPayment_Execute(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.March, 20))
	f.activeMembers(t)
	reported := reportPayment(t, f, "134000", "n-1")

	uc := usecase.NewRejectPaymentUseCase(f.deps)
	resp, err := uc.Execute(context.Background(), dto.RejectPaymentRequest{
		PaymentID: reported.ID,
		Reason:    "receipt unreadable",
	})
	require.NoError(t, err)

	assert.Equal(t, "REJECTED", resp.State)
	assert.Equal(t, "receipt unreadable", resp.Reason)
	assert.Empty(t, f.store.Cash().All())
	assert.Equal(t, []string{"fund.payment.reported", "fund.payment.rejected"}, f.eventTypes())

	_, err = uc.Execute(context.Background(), dto.RejectPaymentRequest{PaymentID: reported.ID, Reason: "again"})
	testutil.AssertErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
}
