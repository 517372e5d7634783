// Package messaging routes inbound Kafka commands to the fund use cases.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/fund/internal/application/usecase"
	"github.com/bibbank/fund/internal/domain/valueobject"
	infrakafka "github.com/bibbank/fund/internal/infrastructure/kafka"
	"github.com/bibbank/fund/pkg/kafka"
)

// Inbound event types.
const (
	TypeMemberRegistered     = "member-registered"
	TypePaymentReported      = "payment-reported"
	TypePaymentApproved      = "payment-approved"
	TypePaymentRejected      = "payment-rejected"
	TypeLoanRequested        = "loan-requested"
	TypeGuarantorSigned      = "guarantor-signed"
	TypeLoanDisbursed        = "loan-disbursed"
	TypeLoanRejected         = "loan-rejected"
	TypeLoanDelinquent       = "loan-delinquent"
	TypeLoanCured            = "loan-cured"
	TypeLoanImported         = "loan-imported"
	TypeLiquiditySweep       = "liquidity-sweep"
	TypeCashMovementRecorded = "cash-movement-recorded"
	TypeMonthlyClose         = "monthly-close"
	TypeAnnualClose          = "annual-close"
	TypeWithdrawalRequested  = "withdrawal-requested"
	TypeWithdrawalDecided    = "withdrawal-decided"
)

const tracerName = "github.com/bibbank/fund/internal/presentation/messaging"

type route func(ctx context.Context, body []byte) error

// Router dispatches a message to the use case named by its event_type header.
type Router struct {
	routes map[string]route
	logger *slog.Logger
	tracer trace.Tracer
}

// NewRouter binds every inbound event type to its use case.
func NewRouter(uc *usecase.Set, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger: logger,
		tracer: otel.Tracer(tracerName),
		routes: map[string]route{
			TypeMemberRegistered:     bind(uc.RegisterMember.Execute),
			TypePaymentReported:      bind(uc.ReportPayment.Execute),
			TypePaymentApproved:      bind(uc.ApprovePayment.Execute),
			TypePaymentRejected:      bind(uc.RejectPayment.Execute),
			TypeLoanRequested:        bind(uc.RequestLoan.Execute),
			TypeGuarantorSigned:      bind(uc.SignGuarantor.Execute),
			TypeLoanDisbursed:        bind(uc.DisburseLoan.Execute),
			TypeLoanRejected:         bind(uc.RejectLoan.Execute),
			TypeLoanDelinquent:       bind(uc.MarkLoanDelinquent.Execute),
			TypeLoanCured:            bind(uc.CureLoan.Execute),
			TypeLoanImported:         bind(uc.ImportLoan.Execute),
			TypeLiquiditySweep:       bind(uc.SweepLiquidityQueue.Execute),
			TypeCashMovementRecorded: bind(uc.RecordCashMovement.Execute),
			TypeMonthlyClose:         bind(uc.MonthlyClose.Execute),
			TypeAnnualClose:          bind(uc.AnnualClose.Execute),
			TypeWithdrawalRequested:  bind(uc.RequestWithdrawal.Execute),
			TypeWithdrawalDecided:    bind(uc.DecideWithdrawal.Execute),
		},
	}
}

// bind decodes the body into Req and runs exec, discarding the response.
func bind[Req, Resp any](exec func(context.Context, Req) (Resp, error)) route {
	return func(ctx context.Context, body []byte) error {
		var req Req
		if err := json.Unmarshal(body, &req); err != nil {
			return valueobject.Invalid("decode body: %v", err)
		}
		_, err := exec(ctx, req)
		return err
	}
}

// Types lists the routed event types in sorted order.
func (r *Router) Types() []string {
	out := make([]string, 0, len(r.routes))
	for t := range r.routes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Handle implements kafka.Handler. Unknown types and rejected commands are
// logged and acknowledged; any other failure is returned so the consumer
// redelivers the message.
func (r *Router) Handle(ctx context.Context, msg kafka.Message) error {
	eventType := msg.Headers[infrakafka.HeaderEventType]
	logger := r.logger.With("event_type", eventType, "key", string(msg.Key))

	handle, ok := r.routes[eventType]
	if !ok {
		logger.WarnContext(ctx, "skipping message with unknown event type")
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "fund.command "+eventType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.event_type", eventType)))
	defer span.End()

	if err := handle(ctx, msg.Value); err != nil {
		span.RecordError(err)
		if valueobject.IsRejection(err) {
			span.SetAttributes(attribute.Bool("fund.rejected", true))
			logger.WarnContext(ctx, "command rejected", "error", err)
			return nil
		}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	logger.DebugContext(ctx, "command handled")
	return nil
}
