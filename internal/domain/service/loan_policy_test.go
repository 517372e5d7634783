package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/service"
	"github.com/bibbank/fund/internal/domain/valueobject"
	"github.com/bibbank/fund/pkg/testutil"
)

func loanInState(state valueobject.LoanState, approved, outstanding string) model.Loan {
	return model.ReconstructLoan(model.LoanRecord{
		ID:                 uuid.New(),
		TrackingCode:       "CR-20250101-00000001",
		MemberID:           testutil.MemberID1,
		Type:               valueobject.LoanTypeStandard,
		PrincipalRequested: dec(approved),
		PrincipalApproved:  dec(approved),
		OutstandingBalance: dec(outstanding),
		State:              state,
	})
}

func baseApplication() service.LoanApplication {
	guarantor := member(testutil.MemberID2, 1, datePtr(2025, time.March, 1), valueobject.MembershipActive)
	return service.LoanApplication{
		Requester:  member(testutil.MemberID1, 2, datePtr(2025, time.March, 1), valueobject.MembershipActive),
		Guarantor:  &guarantor,
		Type:       valueobject.LoanTypeStandard,
		Amount:     decimal.NewFromInt(1_000_000),
		TermMonths: 12,
		At:         testutil.Date(2025, time.March, 10),
	}
}

func TestLoanPolicy_FreshLoan(t *testing.T) {
	p := service.NewLoanPolicy(valueobject.DefaultFundPolicy())
	app := baseApplication()
	app.Loans = []model.Loan{
		loanInState(valueobject.LoanStatePaid, "500000", "0"),
		loanInState(valueobject.LoanStateRejected, "0", "0"),
	}

	refinances, err := p.Check(app)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, refinances)
}

func TestLoanPolicy_Refinancing(t *testing.T) {
	p := service.NewLoanPolicy(valueobject.DefaultFundPolicy())

	tests := []struct {
		name        string
		outstanding string
		wantErr     bool
	}{
		{"69.99 percent repaid", "300100", true},
		{"70.00 percent repaid", "300000", false},
		{"90 percent repaid", "100000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := loanInState(valueobject.LoanStateActive, "1000000", tt.outstanding)
			app := baseApplication()
			app.Loans = []model.Loan{current}

			refinances, err := p.Check(app)
			if tt.wantErr {
				testutil.AssertErrorIs(t, err, valueobject.ErrPolicyViolation, "refinancing threshold not met")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, current.ID(), refinances)
		})
	}
}

func TestLoanPolicy_Rejections(t *testing.T) {
	p := service.NewLoanPolicy(valueobject.DefaultFundPolicy())

	tests := []struct {
		name    string
		mutate  func(a *service.LoanApplication)
		target  error
		wantErr string
	}{
		{"missing guarantor", func(a *service.LoanApplication) { a.Guarantor = nil }, valueobject.ErrValidation, "guarantor is required"},
		{"self guarantee", func(a *service.LoanApplication) {
			self := a.Requester
			a.Guarantor = &self
		}, valueobject.ErrValidation, "different member"},
		{"inactive guarantor", func(a *service.LoanApplication) {
			g := member(testutil.MemberID2, 1, nil, valueobject.MembershipSuspended)
			a.Guarantor = &g
		}, valueobject.ErrPolicyViolation, "not an active member"},
		{"inactive requester", func(a *service.LoanApplication) {
			a.Requester = member(testutil.MemberID1, 2, nil, valueobject.MembershipPending)
		}, valueobject.ErrPolicyViolation, "PENDING"},
		{"term too long", func(a *service.LoanApplication) { a.TermMonths = 37 }, valueobject.ErrValidation, "between 1 and 36"},
		{"term zero", func(a *service.LoanApplication) { a.TermMonths = 0 }, valueobject.ErrValidation, "between 1 and 36"},
		{"in-flight request", func(a *service.LoanApplication) {
			a.Loans = []model.Loan{loanInState(valueobject.LoanStateLiquidityQueue, "0", "0")}
		}, valueobject.ErrPolicyViolation, "already in progress"},
		{"express refinancing", func(a *service.LoanApplication) {
			a.Type = valueobject.LoanTypeExpress
			a.Loans = []model.Loan{loanInState(valueobject.LoanStateActive, "1000000", "0")}
		}, valueobject.ErrPolicyViolation, "express loans cannot be used for refinancing"},
		{"delinquent loan", func(a *service.LoanApplication) {
			a.Loans = []model.Loan{loanInState(valueobject.LoanStateDelinquent, "1000000", "100000")}
		}, valueobject.ErrPolicyViolation, "cannot be refinanced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := baseApplication()
			tt.mutate(&app)
			_, err := p.Check(app)
			testutil.AssertErrorIs(t, err, tt.target, tt.wantErr)
		})
	}
}

func TestLoanPolicy_SanctionWindow(t *testing.T) {
	p := service.NewLoanPolicy(valueobject.DefaultFundPolicy())
	app := baseApplication()
	sanctioned, err := app.Requester.Sanction(testutil.Date(2025, time.April, 1), app.At)
	require.NoError(t, err)
	app.Requester = sanctioned

	_, err = p.Check(app)
	testutil.AssertErrorIs(t, err, valueobject.ErrPolicyViolation, "sanction window active")
}
