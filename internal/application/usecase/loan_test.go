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

func requestLoan(t *testing.T, f *fixture, member, guarantor uuid.UUID, amount string, term int) dto.LoanResponse {
	t.Helper()
	resp, err := usecase.NewRequestLoanUseCase(f.deps).Execute(context.Background(), dto.RequestLoanRequest{
		MemberID:           member,
		GuarantorID:        guarantor,
		Type:               "STANDARD",
		Amount:             dec(amount),
		TermMonths:         term,
		SignatureReference: "sig://requester",
	})
	require.NoError(t, err)
	return resp
}

func signLoan(t *testing.T, f *fixture, sweep *usecase.SweepLiquidityQueueUseCase, loan dto.LoanResponse) dto.LoanResponse {
	t.Helper()
	resp, err := usecase.NewSignGuarantorUseCase(f.deps, sweep).Execute(context.Background(), dto.SignGuarantorRequest{
		LoanID:             loan.ID,
		GuarantorID:        loan.GuarantorID,
		Token:              f.loan(t, loan.ID).GuarantorToken(),
		SignatureReference: "sig://guarantor",
	})
	require.NoError(t, err)
	return resp
}

func importLoan(t *testing.T, f *fixture, member uuid.UUID, disbursed time.Time, paid string) dto.LoanResponse {
	t.Helper()
	resp, err := usecase.NewImportLoanUseCase(f.deps).Execute(context.Background(), dto.ImportLoanRequest{
		MemberID:             member,
		GuarantorID:          testutil.MemberID2,
		Type:                 "STANDARD",
		Principal:            dec("1000000"),
		TermMonths:           10,
		DisbursedAt:          disbursed,
		AlreadyPaidPrincipal: dec(paid),
		Note:                 "ledger back-fill",
	})
	require.NoError(t, err)
	return resp
}

func lendable(t *testing.T, f *fixture) dto.LendableCashResponse {
	t.Helper()
	resp, err := usecase.NewGetLendableCashUseCase(f.deps).Execute(context.Background(), dto.GetLendableCashRequest{})
	require.NoError(t, err)
	return resp
}

func TestLoanLifecycle_RequestSignDisburse(t *testing.T) {
	f := newFixture(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	f.activeMembers(t)
	f.fund(t, valueobject.CategoryOtherIncome, "5000000", testutil.Date(2025, time.March, 1))
	docs := &mockDocumentGenerator{}

	requested := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
	assert.Equal(t, "PENDING_GUARANTOR_SIGNATURE", requested.State)
	assert.False(t, requested.Queued)
	assert.Nil(t, requested.RefinancesLoanID)
	assert.NotEmpty(t, requested.TrackingCode)

	signed := signLoan(t, f, nil, requested)
	assert.Equal(t, "PENDING_TREASURY", signed.State)
	testutil.AssertDecimal(t, "1000000", lendable(t, f).Reserved, "reserved while pending treasury")

	disbursed, err := usecase.NewDisburseLoanUseCase(f.deps, docs).Execute(context.Background(), dto.DisburseLoanRequest{
		LoanID:           requested.ID,
		DisbursementNote: "transfer 8841",
	})
	require.NoError(t, err)

	assert.Equal(t, "ACTIVE", disbursed.State)
	testutil.AssertDecimal(t, "1000000", disbursed.PrincipalApproved, "approved")
	testutil.AssertDecimal(t, "1000000", disbursed.OutstandingBalance, "outstanding")
	require.Len(t, disbursed.Schedule, 10)
	assert.Equal(t, testutil.Date(2025, time.May, 5), disbursed.Schedule[0].DueDate)
	assert.Equal(t, 1, docs.calls)

	cash := lendable(t, f)
	testutil.AssertDecimal(t, "1000000", cash.DisbursedPrincipal, "disbursed principal")
	testutil.AssertDecimal(t, "4000000", cash.LendableCash, "lendable")
	testutil.AssertDecimal(t, "0", cash.Reserved, "reserved")

	assert.Equal(t, []string{
		"fund.loan.requested",
		"fund.loan.guarantor_notification_needed",
		"fund.loan.decision",
		"fund.loan.disbursed",
		"fund.loan.decision",
	}, f.eventTypes())
}

func TestRequestLoan_Execute(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		req     dto.RequestLoanRequest
		wantErr error
		detail  string
	}{
		{
			name: "unknown loan type",
			req: dto.RequestLoanRequest{
				MemberID: testutil.MemberID1, GuarantorID: testutil.MemberID2,
				Type: "PAYDAY", Amount: dec("100000"), TermMonths: 3, SignatureReference: "sig",
			},
			wantErr: valueobject.ErrValidation,
		},
		{
			name: "term above the maximum",
			req: dto.RequestLoanRequest{
				MemberID: testutil.MemberID1, GuarantorID: testutil.MemberID2,
				Type: "STANDARD", Amount: dec("100000"), TermMonths: 37, SignatureReference: "sig",
			},
			wantErr: valueobject.ErrValidation,
			detail:  "between 1 and 36",
		},
		{
			name: "requester is own guarantor",
			req: dto.RequestLoanRequest{
				MemberID: testutil.MemberID1, GuarantorID: testutil.MemberID1,
				Type: "STANDARD", Amount: dec("100000"), TermMonths: 3, SignatureReference: "sig",
			},
			wantErr: valueobject.ErrValidation,
			detail:  "different member",
		},
		{
			name: "unknown guarantor",
			req: dto.RequestLoanRequest{
				MemberID: testutil.MemberID1, GuarantorID: testutil.MemberID3,
				Type: "STANDARD", Amount: dec("100000"), TermMonths: 3, SignatureReference: "sig",
			},
			wantErr: valueobject.ErrNotFound,
		},
		{
			name: "sanctioned requester",
			setup: func(t *testing.T, f *fixture) {
				f.seedMember(t, memberSeed{
					id: testutil.MemberID3, shares: 1,
					sanctioned: ptr(testutil.Date(2025, time.June, 1)),
				})
			},
			req: dto.RequestLoanRequest{
				MemberID: testutil.MemberID3, GuarantorID: testutil.MemberID2,
				Type: "STANDARD", Amount: dec("100000"), TermMonths: 3, SignatureReference: "sig",
			},
			wantErr: valueobject.ErrPolicyViolation,
			detail:  "sanction window",
		},
		{
			name: "loan already in progress",
			setup: func(t *testing.T, f *fixture) {
				requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "100000", 3)
			},
			req: dto.RequestLoanRequest{
				MemberID: testutil.MemberID1, GuarantorID: testutil.MemberID2,
				Type: "STANDARD", Amount: dec("200000"), TermMonths: 3, SignatureReference: "sig",
			},
			wantErr: valueobject.ErrPolicyViolation,
			detail:  "already in progress",
		},
		{
			name: "express loan cannot refinance",
			setup: func(t *testing.T, f *fixture) {
				importLoan(t, f, testutil.MemberID1, testutil.Date(2024, time.June, 10), "800000")
			},
			req: dto.RequestLoanRequest{
				MemberID: testutil.MemberID1, GuarantorID: testutil.MemberID2,
				Type: "EXPRESS", Amount: dec("100000"), SignatureReference: "sig",
			},
			wantErr: valueobject.ErrPolicyViolation,
			detail:  "express",
		},
		{
			name: "refinancing below threshold",
			setup: func(t *testing.T, f *fixture) {
				importLoan(t, f, testutil.MemberID1, testutil.Date(2024, time.June, 10), "500000")
			},
			req: dto.RequestLoanRequest{
				MemberID: testutil.MemberID1, GuarantorID: testutil.MemberID2,
				Type: "STANDARD", Amount: dec("1500000"), TermMonths: 12, SignatureReference: "sig",
			},
			wantErr: valueobject.ErrPolicyViolation,
			detail:  "threshold not met",
		},
		{
			name: "delinquent loan cannot be refinanced",
			setup: func(t *testing.T, f *fixture) {
				prior := importLoan(t, f, testutil.MemberID1, testutil.Date(2024, time.June, 10), "800000")
				_, err := usecase.NewMarkLoanDelinquentUseCase(f.deps).Execute(context.Background(),
					dto.MarkLoanDelinquentRequest{LoanID: prior.ID})
				require.NoError(t, err)
			},
			req: dto.RequestLoanRequest{
				MemberID: testutil.MemberID1, GuarantorID: testutil.MemberID2,
				Type: "STANDARD", Amount: dec("1500000"), TermMonths: 12, SignatureReference: "sig",
			},
			wantErr: valueobject.ErrPolicyViolation,
			detail:  "delinquent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testutil.Date(2025, time.March, 10))
			f.activeMembers(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}
			before := len(f.eventTypes())

			_, err := usecase.NewRequestLoanUseCase(f.deps).Execute(context.Background(), tt.req)
			testutil.AssertErrorIs(t, err, tt.wantErr)
			if tt.detail != "" {
				testutil.AssertErrorContains(t, err, tt.detail)
			}
			assert.Len(t, f.eventTypes(), before, "rejected request must not emit events")
		})
	}
}

func TestSignGuarantor_Execute(t *testing.T) {
	t.Run("wrong guarantor", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "100000", 3)

		_, err := usecase.NewSignGuarantorUseCase(f.deps, nil).Execute(context.Background(), dto.SignGuarantorRequest{
			LoanID: loan.ID, GuarantorID: testutil.MemberID1,
			Token: f.loan(t, loan.ID).GuarantorToken(), SignatureReference: "sig",
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrValidation, "not the guarantor")
	})

	t.Run("empty token", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		f.fund(t, valueobject.CategoryOtherIncome, "500000", testutil.Date(2025, time.March, 1))
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "100000", 3)

		for _, token := range []string{"", "   "} {
			_, err := usecase.NewSignGuarantorUseCase(f.deps, nil).Execute(context.Background(), dto.SignGuarantorRequest{
				LoanID: loan.ID, GuarantorID: testutil.MemberID2, Token: token, SignatureReference: "sig/forged.png",
			})
			testutil.AssertErrorIs(t, err, valueobject.ErrValidation, "token required")
		}
		assert.Equal(t, valueobject.LoanStatePendingGuarantor, f.loan(t, loan.ID).State())
	})

	t.Run("token mismatch", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "100000", 3)

		_, err := usecase.NewSignGuarantorUseCase(f.deps, nil).Execute(context.Background(), dto.SignGuarantorRequest{
			LoanID: loan.ID, GuarantorID: testutil.MemberID2, Token: "forged", SignatureReference: "sig",
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrValidation, "token")
	})

	t.Run("matching token", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		f.fund(t, valueobject.CategoryOtherIncome, "500000", testutil.Date(2025, time.March, 1))
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "100000", 3)
		token := f.loan(t, loan.ID).GuarantorToken()
		require.NotEmpty(t, token)

		resp, err := usecase.NewSignGuarantorUseCase(f.deps, nil).Execute(context.Background(), dto.SignGuarantorRequest{
			LoanID: loan.ID, GuarantorID: testutil.MemberID2, Token: token, SignatureReference: "sig",
		})
		require.NoError(t, err)
		assert.Equal(t, "PENDING_TREASURY", resp.State)
	})

	t.Run("second signature", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		f.fund(t, valueobject.CategoryOtherIncome, "500000", testutil.Date(2025, time.March, 1))
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "100000", 3)
		token := f.loan(t, loan.ID).GuarantorToken()
		signLoan(t, f, nil, loan)

		_, err := usecase.NewSignGuarantorUseCase(f.deps, nil).Execute(context.Background(), dto.SignGuarantorRequest{
			LoanID: loan.ID, GuarantorID: testutil.MemberID2, Token: token, SignatureReference: "sig",
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
	})
}

func TestLiquidityQueue_PromotedWhenCashArrives(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.March, 10))
	f.activeMembers(t)
	f.fund(t, valueobject.CategoryOtherIncome, "500000", testutil.Date(2025, time.March, 1))
	sweep := usecase.NewSweepLiquidityQueueUseCase(f.deps)

	requested := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
	assert.True(t, requested.Queued)
	assert.Equal(t, "PENDING_GUARANTOR_SIGNATURE", requested.State)

	// The sweep triggered by the signature finds too little cash.
	signed := signLoan(t, f, sweep, requested)
	assert.Equal(t, "LIQUIDITY_QUEUE", signed.State)

	f.fund(t, valueobject.CategoryOtherIncome, "1000000", testutil.Date(2025, time.March, 11))
	resp, err := sweep.Execute(context.Background(), dto.SweepLiquidityQueueRequest{})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{requested.ID}, resp.Promoted)
	assert.Empty(t, resp.Skipped)
	assert.False(t, resp.Deferred)
	testutil.AssertDecimal(t, "500000", resp.Remaining, "remaining")
	assert.True(t, f.loan(t, requested.ID).State().Equal(valueobject.LoanStatePendingTreasury))
}

func TestLiquidityQueue_SignatureSweepPromotesImmediately(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.March, 10))
	f.activeMembers(t)
	sweep := usecase.NewSweepLiquidityQueueUseCase(f.deps)

	requested := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "300000", 3)
	require.True(t, requested.Queued)

	f.fund(t, valueobject.CategoryOtherIncome, "300000", testutil.Date(2025, time.March, 10))
	signed := signLoan(t, f, sweep, requested)
	assert.Equal(t, "PENDING_TREASURY", signed.State)
}

func TestLiquidityQueue_FIFOSkipsLoansThatDoNotFit(t *testing.T) {
	f := newFixture(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	f.activeMembers(t)
	f.seedMember(t, memberSeed{id: testutil.MemberID3, shares: 1, lastPaid: ptr(testutil.Date(2025, time.February, 10))})

	l1 := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
	f.at(time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC))
	l2 := requestLoan(t, f, testutil.MemberID2, testutil.MemberID3, "800000", 10)
	f.at(time.Date(2025, time.March, 10, 11, 0, 0, 0, time.UTC))
	l3 := requestLoan(t, f, testutil.MemberID3, testutil.MemberID1, "400000", 4)

	for _, l := range []dto.LoanResponse{l1, l2, l3} {
		require.True(t, l.Queued)
		assert.Equal(t, "LIQUIDITY_QUEUE", signLoan(t, f, nil, l).State)
	}

	f.fund(t, valueobject.CategoryOtherIncome, "1500000", testutil.Date(2025, time.March, 11))
	resp, err := usecase.NewSweepLiquidityQueueUseCase(f.deps).Execute(context.Background(), dto.SweepLiquidityQueueRequest{})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{l1.ID, l3.ID}, resp.Promoted)
	assert.Equal(t, []uuid.UUID{l2.ID}, resp.Skipped)
	assert.Empty(t, resp.Failed)
	testutil.AssertDecimal(t, "100000", resp.Remaining, "remaining")
	assert.True(t, f.loan(t, l2.ID).State().Equal(valueobject.LoanStateLiquidityQueue))

	testutil.AssertDecimal(t, "1400000", lendable(t, f).Reserved, "reserved after sweep")
}

func TestLiquidityQueue_FailedPromotionKeepsOthers(t *testing.T) {
	f := newFixture(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	f.activeMembers(t)
	f.seedMember(t, memberSeed{id: testutil.MemberID3, shares: 1, lastPaid: ptr(testutil.Date(2025, time.February, 10))})

	l1 := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
	f.at(time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC))
	l2 := requestLoan(t, f, testutil.MemberID2, testutil.MemberID3, "800000", 10)
	f.at(time.Date(2025, time.March, 10, 11, 0, 0, 0, time.UTC))
	l3 := requestLoan(t, f, testutil.MemberID3, testutil.MemberID1, "400000", 4)
	for _, l := range []dto.LoanResponse{l1, l2, l3} {
		require.True(t, l.Queued)
		require.Equal(t, "LIQUIDITY_QUEUE", signLoan(t, f, nil, l).State)
	}

	f.fund(t, valueobject.CategoryOtherIncome, "2500000", testutil.Date(2025, time.March, 11))
	f.deps.Loans = &failingLoans{
		LoanRepo: f.store.Loans(),
		saveFn: func(ctx context.Context, loan model.Loan) error {
			if loan.ID() == l2.ID {
				return errors.New("connection reset")
			}
			return f.store.Loans().Save(ctx, loan)
		},
	}

	resp, err := usecase.NewSweepLiquidityQueueUseCase(f.deps).Execute(context.Background(), dto.SweepLiquidityQueueRequest{})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{l1.ID, l3.ID}, resp.Promoted)
	assert.Equal(t, []uuid.UUID{l2.ID}, resp.Failed)
	assert.Empty(t, resp.Skipped)
	assert.True(t, f.loan(t, l1.ID).State().Equal(valueobject.LoanStatePendingTreasury))
	assert.True(t, f.loan(t, l2.ID).State().Equal(valueobject.LoanStateLiquidityQueue))
	assert.True(t, f.loan(t, l3.ID).State().Equal(valueobject.LoanStatePendingTreasury))

	// The next pass retries the loan that failed.
	f.deps.Loans = f.store.Loans()
	resp, err = usecase.NewSweepLiquidityQueueUseCase(f.deps).Execute(context.Background(), dto.SweepLiquidityQueueRequest{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{l2.ID}, resp.Promoted)
}

func TestLiquidityQueue_ClosingMonthDefers(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.December, 10))
	f.activeMembers(t)
	f.fund(t, valueobject.CategoryOtherIncome, "5000000", testutil.Date(2025, time.November, 1))

	requested := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "100000", 3)
	assert.True(t, requested.Queued, "closing month queues even when cash is available")
	signLoan(t, f, nil, requested)

	resp, err := usecase.NewSweepLiquidityQueueUseCase(f.deps).Execute(context.Background(), dto.SweepLiquidityQueueRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Deferred)
	assert.Empty(t, resp.Promoted)
	assert.Equal(t, []uuid.UUID{requested.ID}, resp.Skipped)

	// January lifts the deferral.
	resp, err = usecase.NewSweepLiquidityQueueUseCase(f.deps).Execute(context.Background(), dto.SweepLiquidityQueueRequest{
		AsOf: testutil.Date(2026, time.January, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{requested.ID}, resp.Promoted)
}

func TestDisburseLoan_Execute(t *testing.T) {
	t.Run("insufficient liquidity after admission", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		f.fund(t, valueobject.CategoryOtherIncome, "1500000", testutil.Date(2025, time.March, 1))
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
		signLoan(t, f, nil, loan)
		f.fund(t, valueobject.CategoryOperatingExpense, "1000000", testutil.Date(2025, time.March, 10))

		_, err := usecase.NewDisburseLoanUseCase(f.deps, nil).Execute(context.Background(), dto.DisburseLoanRequest{
			LoanID: loan.ID, DisbursementNote: "transfer",
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrPolicyViolation, "insufficient liquidity")
		assert.True(t, f.loan(t, loan.ID).State().Equal(valueobject.LoanStatePendingTreasury))
	})

	t.Run("not yet signed", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		f.fund(t, valueobject.CategoryOtherIncome, "1500000", testutil.Date(2025, time.March, 1))
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)

		_, err := usecase.NewDisburseLoanUseCase(f.deps, nil).Execute(context.Background(), dto.DisburseLoanRequest{
			LoanID: loan.ID, DisbursementNote: "transfer",
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
	})

	t.Run("missing note", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		f.fund(t, valueobject.CategoryOtherIncome, "1500000", testutil.Date(2025, time.March, 1))
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
		signLoan(t, f, nil, loan)

		_, err := usecase.NewDisburseLoanUseCase(f.deps, nil).Execute(context.Background(), dto.DisburseLoanRequest{
			LoanID: loan.ID,
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrValidation, "note")
	})

	t.Run("contract failure does not undo disbursement", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		f.fund(t, valueobject.CategoryOtherIncome, "1500000", testutil.Date(2025, time.March, 1))
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
		signLoan(t, f, nil, loan)
		docs := &mockDocumentGenerator{
			generateFn: func(context.Context, model.Loan) (string, error) {
				return "", errors.New("renderer offline")
			},
		}

		resp, err := usecase.NewDisburseLoanUseCase(f.deps, docs).Execute(context.Background(), dto.DisburseLoanRequest{
			LoanID: loan.ID, DisbursementNote: "transfer",
		})
		require.NoError(t, err)
		assert.Equal(t, "ACTIVE", resp.State)
		assert.True(t, resp.ContractPending)
		assert.Equal(t, 1, docs.calls)
		stored := f.loan(t, loan.ID)
		assert.True(t, stored.State().Equal(valueobject.LoanStateActive))
		assert.True(t, stored.ContractPending(), "left for the retry job")
	})

	t.Run("contract reference is stored", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		f.fund(t, valueobject.CategoryOtherIncome, "1500000", testutil.Date(2025, time.March, 1))
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
		signLoan(t, f, nil, loan)
		docs := &mockDocumentGenerator{}

		resp, err := usecase.NewDisburseLoanUseCase(f.deps, docs).Execute(context.Background(), dto.DisburseLoanRequest{
			LoanID: loan.ID, DisbursementNote: "transfer",
		})
		require.NoError(t, err)
		assert.False(t, resp.ContractPending)
		assert.Equal(t, "contract://"+loan.TrackingCode, resp.ContractRef)
		stored := f.loan(t, loan.ID)
		assert.False(t, stored.ContractPending())
		assert.Equal(t, "contract://"+loan.TrackingCode, stored.ContractRef())
	})

	t.Run("closing month blocks disbursement", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.November, 28))
		f.activeMembers(t)
		f.fund(t, valueobject.CategoryOtherIncome, "1500000", testutil.Date(2025, time.November, 1))
		loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
		signLoan(t, f, nil, loan)

		f.at(testutil.Date(2025, time.December, 2))
		_, err := usecase.NewDisburseLoanUseCase(f.deps, nil).Execute(context.Background(), dto.DisburseLoanRequest{
			LoanID: loan.ID, DisbursementNote: "transfer",
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrPolicyViolation, "closing month")
	})
}

func TestDisburseLoan_RefinancingNetsPriorBalance(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.March, 10))
	f.activeMembers(t)
	f.fund(t, valueobject.CategoryOtherIncome, "3000000", testutil.Date(2025, time.March, 1))
	prior := importLoan(t, f, testutil.MemberID1, testutil.Date(2024, time.June, 10), "800000")
	testutil.AssertDecimal(t, "200000", prior.OutstandingBalance, "prior outstanding")
	testutil.AssertDecimal(t, "2000000", lendable(t, f).LendableCash, "lendable before")

	requested := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1500000", 12)
	require.NotNil(t, requested.RefinancesLoanID)
	assert.Equal(t, prior.ID, *requested.RefinancesLoanID)
	assert.False(t, requested.Queued)

	signLoan(t, f, nil, requested)
	disbursed, err := usecase.NewDisburseLoanUseCase(f.deps, nil).Execute(context.Background(), dto.DisburseLoanRequest{
		LoanID: requested.ID, DisbursementNote: "refinance transfer",
	})
	require.NoError(t, err)
	testutil.AssertDecimal(t, "200000", disbursed.NettedAmount, "netted")
	testutil.AssertDecimal(t, "1500000", disbursed.OutstandingBalance, "new outstanding")

	settled := f.loan(t, prior.ID)
	assert.True(t, settled.State().Equal(valueobject.LoanStatePaid))
	testutil.AssertDecimal(t, "0", settled.OutstandingBalance(), "prior outstanding after")
	for _, inst := range settled.Schedule() {
		assert.Equal(t, valueobject.InstallmentPaid, inst.State)
	}

	var netting []model.CashMovement
	for _, m := range f.store.Cash().All() {
		if m.Category == valueobject.CategoryLoanRepayment {
			netting = append(netting, m)
		}
	}
	require.Len(t, netting, 1)
	testutil.AssertDecimal(t, "200000", netting[0].Amount, "netting movement")
	assert.Equal(t, prior.ID, netting[0].LoanID)
	assert.Equal(t, testutil.MemberID1, netting[0].MemberID)

	testutil.AssertDecimal(t, "700000", lendable(t, f).LendableCash, "lendable after")
}

func TestRejectLoan_Execute(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.March, 10))
	f.activeMembers(t)
	loan := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "100000", 3)
	uc := usecase.NewRejectLoanUseCase(f.deps)

	_, err := uc.Execute(context.Background(), dto.RejectLoanRequest{LoanID: loan.ID})
	testutil.AssertErrorIs(t, err, valueobject.ErrValidation)

	resp, err := uc.Execute(context.Background(), dto.RejectLoanRequest{LoanID: loan.ID, Note: "guarantor declined"})
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", resp.State)
	assert.Equal(t, "guarantor declined", resp.DecisionNote)

	_, err = uc.Execute(context.Background(), dto.RejectLoanRequest{LoanID: loan.ID, Note: "again"})
	testutil.AssertErrorIs(t, err, valueobject.ErrInvalidStatusTransition)

	// A rejected request no longer blocks a new one.
	requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "100000", 3)
}

func TestDelinquency_MarkAndCure(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.April, 10))
	f.activeMembers(t)
	loan := importLoan(t, f, testutil.MemberID1, testutil.Date(2025, time.January, 10), "0")
	require.Equal(t, testutil.Date(2025, time.March, 5), loan.Schedule[0].DueDate)

	marked, err := usecase.NewMarkLoanDelinquentUseCase(f.deps).Execute(context.Background(), dto.MarkLoanDelinquentRequest{
		LoanID: loan.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "DELINQUENT", marked.State)
	assert.Equal(t, "LATE", marked.Schedule[0].State)
	assert.Equal(t, "LATE", marked.Schedule[1].State)
	assert.Equal(t, "PENDING", marked.Schedule[2].State)
	assert.Equal(t, []string{"fund.loan.decision"}, f.eventTypes())

	_, err = usecase.NewMarkLoanDelinquentUseCase(f.deps).Execute(context.Background(), dto.MarkLoanDelinquentRequest{
		LoanID: loan.ID,
	})
	testutil.AssertErrorIs(t, err, valueobject.ErrInvalidStatusTransition)

	cured, err := usecase.NewCureLoanUseCase(f.deps).Execute(context.Background(), dto.CureLoanRequest{LoanID: loan.ID})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", cured.State)
	for _, inst := range cured.Schedule {
		assert.Equal(t, "PENDING", inst.State)
	}

	_, err = usecase.NewCureLoanUseCase(f.deps).Execute(context.Background(), dto.CureLoanRequest{LoanID: loan.ID})
	testutil.AssertErrorIs(t, err, valueobject.ErrInvalidStatusTransition)
}

func TestImportLoan_Execute(t *testing.T) {
	t.Run("partially repaid history", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)

		resp := importLoan(t, f, testutil.MemberID1, testutil.Date(2024, time.June, 10), "300000")
		assert.Equal(t, "ACTIVE", resp.State)
		testutil.AssertDecimal(t, "700000", resp.OutstandingBalance, "outstanding")
		assert.Equal(t, "PAID", resp.Schedule[2].State)
		assert.Equal(t, "PENDING", resp.Schedule[3].State)

		assert.Empty(t, f.eventTypes(), "imports emit no events")
		assert.Empty(t, f.store.Cash().All(), "imports write no cash")
	})

	t.Run("fully repaid history lands in PAID", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)

		resp := importLoan(t, f, testutil.MemberID1, testutil.Date(2024, time.January, 10), "1000000")
		assert.Equal(t, "PAID", resp.State)
	})

	t.Run("outstanding loan blocks a second import", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)
		importLoan(t, f, testutil.MemberID1, testutil.Date(2024, time.June, 10), "300000")

		_, err := usecase.NewImportLoanUseCase(f.deps).Execute(context.Background(), dto.ImportLoanRequest{
			MemberID: testutil.MemberID1, Type: "STANDARD", Principal: dec("500000"),
			TermMonths: 5, DisbursedAt: testutil.Date(2024, time.December, 1),
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrPolicyViolation, "outstanding loan")
	})

	t.Run("paid above principal", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2025, time.March, 10))
		f.activeMembers(t)

		_, err := usecase.NewImportLoanUseCase(f.deps).Execute(context.Background(), dto.ImportLoanRequest{
			MemberID: testutil.MemberID1, Type: "STANDARD", Principal: dec("500000"),
			TermMonths: 5, DisbursedAt: testutil.Date(2024, time.December, 1),
			AlreadyPaidPrincipal: dec("600000"),
		})
		testutil.AssertErrorIs(t, err, valueobject.ErrValidation)
	})
}

func TestGenerateContracts_RetriesFailedRenders(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.March, 10))
	f.activeMembers(t)
	f.seedMember(t, memberSeed{id: testutil.MemberID3, shares: 1, lastPaid: ptr(testutil.Date(2025, time.February, 10))})
	f.fund(t, valueobject.CategoryOtherIncome, "3000000", testutil.Date(2025, time.March, 1))
	first := requestLoan(t, f, testutil.MemberID1, testutil.MemberID2, "1000000", 10)
	signLoan(t, f, nil, first)
	second := requestLoan(t, f, testutil.MemberID2, testutil.MemberID3, "500000", 5)
	signLoan(t, f, nil, second)

	offline := &mockDocumentGenerator{
		generateFn: func(context.Context, model.Loan) (string, error) { return "", errors.New("renderer offline") },
	}
	disburse := usecase.NewDisburseLoanUseCase(f.deps, offline)
	for _, l := range []dto.LoanResponse{first, second} {
		_, err := disburse.Execute(context.Background(), dto.DisburseLoanRequest{LoanID: l.ID, DisbursementNote: "transfer"})
		require.NoError(t, err)
	}
	importLoan(t, f, testutil.MemberID3, testutil.Date(2024, time.June, 10), "0")

	// The renderer is back for the first loan only.
	docs := &mockDocumentGenerator{
		generateFn: func(_ context.Context, loan model.Loan) (string, error) {
			if loan.ID() == second.ID {
				return "", errors.New("template missing")
			}
			return "contract://" + loan.TrackingCode(), nil
		},
	}
	uc := usecase.NewGenerateContractsUseCase(f.deps, docs)
	resp, err := uc.Execute(context.Background(), dto.GenerateContractsRequest{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID}, resp.Generated)
	assert.Equal(t, []uuid.UUID{second.ID}, resp.Failed)
	assert.Equal(t, 2, docs.calls, "imported loans need no contract")

	assert.Equal(t, "contract://"+first.TrackingCode, f.loan(t, first.ID).ContractRef())
	assert.False(t, f.loan(t, first.ID).ContractPending())
	assert.True(t, f.loan(t, second.ID).ContractPending())

	docs.generateFn = nil
	resp, err = uc.Execute(context.Background(), dto.GenerateContractsRequest{BatchSize: 5})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second.ID}, resp.Generated)
	assert.Empty(t, resp.Failed)

	resp, err = uc.Execute(context.Background(), dto.GenerateContractsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Generated)
	assert.Equal(t, 3, docs.calls)
}

func TestGenerateContracts_NoRenderer(t *testing.T) {
	f := newFixture(t, testutil.Date(2025, time.March, 10))
	resp, err := usecase.NewGenerateContractsUseCase(f.deps, nil).Execute(context.Background(), dto.GenerateContractsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Generated)
}
