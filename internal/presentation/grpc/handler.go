package grpc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/application/usecase"
	"github.com/bibbank/fund/pkg/auth"
)

var _ FundServiceServer = (*FundHandler)(nil)

// FundHandler exposes the fund use cases over gRPC.
type FundHandler struct {
	uc     *usecase.Set
	logger *slog.Logger
}

// NewFundHandler creates a handler over the given use cases.
func NewFundHandler(uc *usecase.Set, logger *slog.Logger) *FundHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FundHandler{uc: uc, logger: logger}
}

// invoke runs one use case and converts its error into a gRPC status.
func invoke[Req, Resp any](
	ctx context.Context,
	h *FundHandler,
	method string,
	req *Req,
	exec func(context.Context, Req) (Resp, error),
) (*Resp, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "empty request")
	}
	resp, err := exec(ctx, *req)
	if err != nil {
		st := toStatus(err)
		if status.Code(st) == codes.Internal {
			h.logger.ErrorContext(ctx, "fund rpc failed", "method", method, "error", err)
		}
		return nil, st
	}
	return &resp, nil
}

// callerID is the authenticated user, or uuid.Nil when the call carries no
// claims.
func callerID(ctx context.Context) uuid.UUID {
	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		return claims.UserID
	}
	return uuid.Nil
}

func (h *FundHandler) RegisterMember(ctx context.Context, req *dto.RegisterMemberRequest) (*dto.MemberResponse, error) {
	return invoke(ctx, h, "RegisterMember", req, h.uc.RegisterMember.Execute)
}

func (h *FundHandler) GetDebtSnapshot(ctx context.Context, req *dto.GetDebtSnapshotRequest) (*dto.DebtSnapshotResponse, error) {
	return invoke(ctx, h, "GetDebtSnapshot", req, h.uc.GetDebtSnapshot.Execute)
}

func (h *FundHandler) ReportPayment(ctx context.Context, req *dto.ReportPaymentRequest) (*dto.PaymentResponse, error) {
	return invoke(ctx, h, "ReportPayment", req, h.uc.ReportPayment.Execute)
}

// ApprovePayment records the caller as approver when the request names none.
// DecideWithdrawal does the same.
func (h *FundHandler) ApprovePayment(ctx context.Context, req *dto.ApprovePaymentRequest) (*dto.PaymentResponse, error) {
	if req != nil && req.ApproverID == uuid.Nil {
		req.ApproverID = callerID(ctx)
	}
	return invoke(ctx, h, "ApprovePayment", req, h.uc.ApprovePayment.Execute)
}

func (h *FundHandler) RejectPayment(ctx context.Context, req *dto.RejectPaymentRequest) (*dto.PaymentResponse, error) {
	return invoke(ctx, h, "RejectPayment", req, h.uc.RejectPayment.Execute)
}

func (h *FundHandler) RequestLoan(ctx context.Context, req *dto.RequestLoanRequest) (*dto.LoanResponse, error) {
	return invoke(ctx, h, "RequestLoan", req, h.uc.RequestLoan.Execute)
}

func (h *FundHandler) SignGuarantor(ctx context.Context, req *dto.SignGuarantorRequest) (*dto.LoanResponse, error) {
	return invoke(ctx, h, "SignGuarantor", req, h.uc.SignGuarantor.Execute)
}

func (h *FundHandler) DisburseLoan(ctx context.Context, req *dto.DisburseLoanRequest) (*dto.LoanResponse, error) {
	return invoke(ctx, h, "DisburseLoan", req, h.uc.DisburseLoan.Execute)
}

func (h *FundHandler) RejectLoan(ctx context.Context, req *dto.RejectLoanRequest) (*dto.LoanResponse, error) {
	return invoke(ctx, h, "RejectLoan", req, h.uc.RejectLoan.Execute)
}

func (h *FundHandler) MarkLoanDelinquent(ctx context.Context, req *dto.MarkLoanDelinquentRequest) (*dto.LoanResponse, error) {
	return invoke(ctx, h, "MarkLoanDelinquent", req, h.uc.MarkLoanDelinquent.Execute)
}

func (h *FundHandler) CureLoan(ctx context.Context, req *dto.CureLoanRequest) (*dto.LoanResponse, error) {
	return invoke(ctx, h, "CureLoan", req, h.uc.CureLoan.Execute)
}

func (h *FundHandler) ImportLoan(ctx context.Context, req *dto.ImportLoanRequest) (*dto.LoanResponse, error) {
	return invoke(ctx, h, "ImportLoan", req, h.uc.ImportLoan.Execute)
}

func (h *FundHandler) GetLoanSchedule(ctx context.Context, req *dto.GetLoanScheduleRequest) (*dto.ScheduleResponse, error) {
	return invoke(ctx, h, "GetLoanSchedule", req, h.uc.GetLoanSchedule.Execute)
}

func (h *FundHandler) PreviewSchedule(ctx context.Context, req *dto.PreviewScheduleRequest) (*dto.ScheduleResponse, error) {
	return invoke(ctx, h, "PreviewSchedule", req, h.uc.PreviewSchedule.Execute)
}

func (h *FundHandler) GetLendableCash(ctx context.Context, req *dto.GetLendableCashRequest) (*dto.LendableCashResponse, error) {
	return invoke(ctx, h, "GetLendableCash", req, h.uc.GetLendableCash.Execute)
}

func (h *FundHandler) SweepLiquidityQueue(ctx context.Context, req *dto.SweepLiquidityQueueRequest) (*dto.SweepResponse, error) {
	return invoke(ctx, h, "SweepLiquidityQueue", req, h.uc.SweepLiquidityQueue.Execute)
}

func (h *FundHandler) RecordCashMovement(ctx context.Context, req *dto.RecordCashMovementRequest) (*dto.CashMovementResponse, error) {
	return invoke(ctx, h, "RecordCashMovement", req, h.uc.RecordCashMovement.Execute)
}

func (h *FundHandler) MonthlyClose(ctx context.Context, req *dto.MonthlyCloseRequest) (*dto.MonthlyCloseResponse, error) {
	return invoke(ctx, h, "MonthlyClose", req, h.uc.MonthlyClose.Execute)
}

func (h *FundHandler) AnnualClose(ctx context.Context, req *dto.AnnualCloseRequest) (*dto.AnnualCloseResponse, error) {
	return invoke(ctx, h, "AnnualClose", req, h.uc.AnnualClose.Execute)
}

func (h *FundHandler) RequestWithdrawal(ctx context.Context, req *dto.RequestWithdrawalRequest) (*dto.WithdrawalResponse, error) {
	return invoke(ctx, h, "RequestWithdrawal", req, h.uc.RequestWithdrawal.Execute)
}

func (h *FundHandler) DecideWithdrawal(ctx context.Context, req *dto.DecideWithdrawalRequest) (*dto.WithdrawalResponse, error) {
	if req != nil && req.ApproverID == uuid.Nil {
		req.ApproverID = callerID(ctx)
	}
	return invoke(ctx, h, "DecideWithdrawal", req, h.uc.DecideWithdrawal.Execute)
}
