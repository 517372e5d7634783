package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/valueobject"
)

// RecordCashMovementUseCase books treasury-entered income and expenses.
// Other categories are written only as a side effect of payments,
// disbursements and withdrawals.
type RecordCashMovementUseCase struct {
	deps Deps
}

// NewRecordCashMovementUseCase wires dependencies.
func NewRecordCashMovementUseCase(deps Deps) *RecordCashMovementUseCase {
	return &RecordCashMovementUseCase{deps: deps}
}

// Execute appends the movement to the ledger.
func (uc *RecordCashMovementUseCase) Execute(ctx context.Context, req dto.RecordCashMovementRequest) (resp dto.CashMovementResponse, err error) {
	defer func() { recordOutcome(ctx, "record_cash_movement", err) }()

	category, err := valueobject.ParseCashCategory(req.Category)
	if err != nil {
		return dto.CashMovementResponse{}, err
	}
	if !slices.Contains(valueobject.ManualCategories(), category) {
		return dto.CashMovementResponse{}, valueobject.Invalid("category %s cannot be recorded manually", category)
	}
	at := req.OccurredAt
	if at.IsZero() {
		at = uc.deps.now()
	}

	movement, err := model.NewCashMovement(category, req.Amount, at, req.Note)
	if err != nil {
		return dto.CashMovementResponse{}, fmt.Errorf("record cash movement: %w", err)
	}
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return uc.deps.Cash.Append(ctx, movement)
	})
	if err != nil {
		return dto.CashMovementResponse{}, fmt.Errorf("append cash movement: %w", err)
	}

	return dto.CashMovementResponse{
		ID:         movement.ID,
		Direction:  string(movement.Direction),
		Category:   string(movement.Category),
		Amount:     movement.Amount,
		OccurredAt: movement.OccurredAt,
		Note:       movement.Note,
	}, nil
}
