package usecase

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bibbank/fund/internal/domain/valueobject"
)

const instrumentationName = "github.com/bibbank/fund/internal/application/usecase"

// Instruments bind to the global MeterProvider lazily, so they are safe to
// create before observability.InitMetrics runs.
var (
	meter = otel.Meter(instrumentationName)

	operationsTotal, _ = meter.Int64Counter("fund.operations",
		metric.WithDescription("Use case executions by operation and outcome."))
	paymentsApprovedAmount, _ = meter.Float64Counter("fund.payments.approved.amount",
		metric.WithDescription("Sum of approved payments."))
	loansDisbursedAmount, _ = meter.Float64Counter("fund.loans.disbursed.amount",
		metric.WithDescription("Sum of disbursed principal."))
	queuePromotions, _ = meter.Int64Counter("fund.liquidity.promotions",
		metric.WithDescription("Loans promoted out of the liquidity queue."))
	outboxRelayed, _ = meter.Int64Counter("fund.outbox.relayed",
		metric.WithDescription("Outbox entries relayed by result."))
)

// recordOutcome counts one execution. Policy and validation rejections are
// expected outcomes and are counted apart from errors.
func recordOutcome(ctx context.Context, operation string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case valueobject.IsRejection(err):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	operationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func addAmount(ctx context.Context, c metric.Float64Counter, amount decimal.Decimal) {
	f, _ := amount.Float64()
	c.Add(ctx, f)
}
