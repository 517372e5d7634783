package usecase

import "github.com/bibbank/fund/internal/domain/port"

// Set holds one instance of every use case, wired to the same dependencies.
// Transports dispatch into it.
type Set struct {
	RegisterMember      *RegisterMemberUseCase
	ReportPayment       *ReportPaymentUseCase
	ApprovePayment      *ApprovePaymentUseCase
	RejectPayment       *RejectPaymentUseCase
	RequestLoan         *RequestLoanUseCase
	SignGuarantor       *SignGuarantorUseCase
	DisburseLoan        *DisburseLoanUseCase
	GenerateContracts   *GenerateContractsUseCase
	RejectLoan          *RejectLoanUseCase
	MarkLoanDelinquent  *MarkLoanDelinquentUseCase
	CureLoan            *CureLoanUseCase
	ImportLoan          *ImportLoanUseCase
	SweepLiquidityQueue *SweepLiquidityQueueUseCase
	RecordCashMovement  *RecordCashMovementUseCase
	MonthlyClose        *MonthlyCloseUseCase
	AnnualClose         *AnnualCloseUseCase
	RequestWithdrawal   *RequestWithdrawalUseCase
	DecideWithdrawal    *DecideWithdrawalUseCase
	GetDebtSnapshot     *GetDebtSnapshotUseCase
	GetLendableCash     *GetLendableCashUseCase
	GetLoanSchedule     *GetLoanScheduleUseCase
	PreviewSchedule     *PreviewScheduleUseCase
	RelayOutbox         *RelayOutboxUseCase
}

// NewSet builds every use case. The sweep instance is shared with
// SignGuarantor so both serialize on the same lock key.
func NewSet(deps Deps, documents port.DocumentGenerator, publisher port.EventPublisher) *Set {
	sweep := NewSweepLiquidityQueueUseCase(deps)
	return &Set{
		RegisterMember:      NewRegisterMemberUseCase(deps),
		ReportPayment:       NewReportPaymentUseCase(deps),
		ApprovePayment:      NewApprovePaymentUseCase(deps),
		RejectPayment:       NewRejectPaymentUseCase(deps),
		RequestLoan:         NewRequestLoanUseCase(deps),
		SignGuarantor:       NewSignGuarantorUseCase(deps, sweep),
		DisburseLoan:        NewDisburseLoanUseCase(deps, documents),
		GenerateContracts:   NewGenerateContractsUseCase(deps, documents),
		RejectLoan:          NewRejectLoanUseCase(deps),
		MarkLoanDelinquent:  NewMarkLoanDelinquentUseCase(deps),
		CureLoan:            NewCureLoanUseCase(deps),
		ImportLoan:          NewImportLoanUseCase(deps),
		SweepLiquidityQueue: sweep,
		RecordCashMovement:  NewRecordCashMovementUseCase(deps),
		MonthlyClose:        NewMonthlyCloseUseCase(deps),
		AnnualClose:         NewAnnualCloseUseCase(deps),
		RequestWithdrawal:   NewRequestWithdrawalUseCase(deps),
		DecideWithdrawal:    NewDecideWithdrawalUseCase(deps),
		GetDebtSnapshot:     NewGetDebtSnapshotUseCase(deps),
		GetLendableCash:     NewGetLendableCashUseCase(deps),
		GetLoanSchedule:     NewGetLoanScheduleUseCase(deps),
		PreviewSchedule:     NewPreviewScheduleUseCase(deps),
		RelayOutbox:         NewRelayOutboxUseCase(deps, publisher),
	}
}
