package grpc

// proto.go defines the fund.v1.FundService surface by hand. Messages are the
// application DTOs, carried by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"

	"github.com/bibbank/fund/internal/application/dto"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fund.v1.FundService"

// FundServiceServer is the server API for FundService.
type FundServiceServer interface {
	RegisterMember(context.Context, *dto.RegisterMemberRequest) (*dto.MemberResponse, error)
	GetDebtSnapshot(context.Context, *dto.GetDebtSnapshotRequest) (*dto.DebtSnapshotResponse, error)

	ReportPayment(context.Context, *dto.ReportPaymentRequest) (*dto.PaymentResponse, error)
	ApprovePayment(context.Context, *dto.ApprovePaymentRequest) (*dto.PaymentResponse, error)
	RejectPayment(context.Context, *dto.RejectPaymentRequest) (*dto.PaymentResponse, error)

	RequestLoan(context.Context, *dto.RequestLoanRequest) (*dto.LoanResponse, error)
	SignGuarantor(context.Context, *dto.SignGuarantorRequest) (*dto.LoanResponse, error)
	DisburseLoan(context.Context, *dto.DisburseLoanRequest) (*dto.LoanResponse, error)
	RejectLoan(context.Context, *dto.RejectLoanRequest) (*dto.LoanResponse, error)
	MarkLoanDelinquent(context.Context, *dto.MarkLoanDelinquentRequest) (*dto.LoanResponse, error)
	CureLoan(context.Context, *dto.CureLoanRequest) (*dto.LoanResponse, error)
	ImportLoan(context.Context, *dto.ImportLoanRequest) (*dto.LoanResponse, error)
	GetLoanSchedule(context.Context, *dto.GetLoanScheduleRequest) (*dto.ScheduleResponse, error)
	PreviewSchedule(context.Context, *dto.PreviewScheduleRequest) (*dto.ScheduleResponse, error)

	GetLendableCash(context.Context, *dto.GetLendableCashRequest) (*dto.LendableCashResponse, error)
	SweepLiquidityQueue(context.Context, *dto.SweepLiquidityQueueRequest) (*dto.SweepResponse, error)
	RecordCashMovement(context.Context, *dto.RecordCashMovementRequest) (*dto.CashMovementResponse, error)

	MonthlyClose(context.Context, *dto.MonthlyCloseRequest) (*dto.MonthlyCloseResponse, error)
	AnnualClose(context.Context, *dto.AnnualCloseRequest) (*dto.AnnualCloseResponse, error)

	RequestWithdrawal(context.Context, *dto.RequestWithdrawalRequest) (*dto.WithdrawalResponse, error)
	DecideWithdrawal(context.Context, *dto.DecideWithdrawalRequest) (*dto.WithdrawalResponse, error)
}

// FullMethod returns the full gRPC method name of a FundService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RegisterFundServiceServer registers srv with s.
func RegisterFundServiceServer(s grpclib.ServiceRegistrar, srv FundServiceServer) {
	s.RegisterService(&fundServiceDesc, srv)
}

var fundServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FundServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		unary("RegisterMember", FundServiceServer.RegisterMember),
		unary("GetDebtSnapshot", FundServiceServer.GetDebtSnapshot),
		unary("ReportPayment", FundServiceServer.ReportPayment),
		unary("ApprovePayment", FundServiceServer.ApprovePayment),
		unary("RejectPayment", FundServiceServer.RejectPayment),
		unary("RequestLoan", FundServiceServer.RequestLoan),
		unary("SignGuarantor", FundServiceServer.SignGuarantor),
		unary("DisburseLoan", FundServiceServer.DisburseLoan),
		unary("RejectLoan", FundServiceServer.RejectLoan),
		unary("MarkLoanDelinquent", FundServiceServer.MarkLoanDelinquent),
		unary("CureLoan", FundServiceServer.CureLoan),
		unary("ImportLoan", FundServiceServer.ImportLoan),
		unary("GetLoanSchedule", FundServiceServer.GetLoanSchedule),
		unary("PreviewSchedule", FundServiceServer.PreviewSchedule),
		unary("GetLendableCash", FundServiceServer.GetLendableCash),
		unary("SweepLiquidityQueue", FundServiceServer.SweepLiquidityQueue),
		unary("RecordCashMovement", FundServiceServer.RecordCashMovement),
		unary("MonthlyClose", FundServiceServer.MonthlyClose),
		unary("AnnualClose", FundServiceServer.AnnualClose),
		unary("RequestWithdrawal", FundServiceServer.RequestWithdrawal),
		unary("DecideWithdrawal", FundServiceServer.DecideWithdrawal),
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "fund/v1/fund.proto",
}

// unary builds the method descriptor that decodes Req, runs the interceptor
// chain and dispatches to call.
func unary[Req, Resp any](
	method string,
	call func(FundServiceServer, context.Context, *Req) (*Resp, error),
) grpclib.MethodDesc {
	fullMethod := FullMethod(method)
	return grpclib.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(FundServiceServer), ctx, in)
			}
			info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(FundServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
