package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
)

const defaultContractBatch = 20

// GenerateContractsUseCase renders the contracts of disbursed loans that are
// still contract-pending, typically because the renderer failed right after
// disbursement.
type GenerateContractsUseCase struct {
	deps      Deps
	documents port.DocumentGenerator
}

// NewGenerateContractsUseCase wires dependencies. With a nil documents the
// use case does nothing.
func NewGenerateContractsUseCase(deps Deps, documents port.DocumentGenerator) *GenerateContractsUseCase {
	return &GenerateContractsUseCase{deps: deps, documents: documents}
}

// Execute runs one pass, oldest disbursement first. A failing loan is
// reported and left pending; the pass carries on with the rest.
func (uc *GenerateContractsUseCase) Execute(ctx context.Context, req dto.GenerateContractsRequest) (resp dto.GenerateContractsResponse, err error) {
	defer func() { recordOutcome(ctx, "generate_contracts", err) }()

	resp = dto.GenerateContractsResponse{Generated: []uuid.UUID{}}
	if uc.documents == nil {
		return resp, nil
	}
	limit := req.BatchSize
	if limit <= 0 {
		limit = defaultContractBatch
	}

	pending, err := uc.deps.Loans.ListContractPending(ctx, limit)
	if err != nil {
		return dto.GenerateContractsResponse{}, fmt.Errorf("list contract-pending loans: %w", err)
	}
	for _, loan := range pending {
		ref, err := attachContract(ctx, uc.deps, uc.documents, loan)
		if err != nil {
			uc.deps.logger().Warn("contract retry failed",
				"loan_id", loan.ID(),
				"error", err,
			)
			resp.Failed = append(resp.Failed, loan.ID())
			continue
		}
		uc.deps.logger().Info("contract generated", "loan_id", loan.ID(), "document_ref", ref)
		resp.Generated = append(resp.Generated, loan.ID())
	}
	return resp, nil
}

// attachContract renders the contract outside any transaction, then stores
// the reference on the freshly loaded loan under its lock. A loan that got a
// contract in the meantime keeps the one it has.
func attachContract(ctx context.Context, deps Deps, documents port.DocumentGenerator, loan model.Loan) (string, error) {
	ref, err := documents.GenerateContract(ctx, loan)
	if err != nil {
		return "", fmt.Errorf("generate contract: %w", err)
	}

	release, err := acquire(ctx, deps.Locker, port.MemberLockKey(loan.MemberID()), port.LoanLockKey(loan.ID()))
	if err != nil {
		return "", err
	}
	defer release()

	err = deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := deps.Loans.FindByID(ctx, loan.ID())
		if err != nil {
			return fmt.Errorf("find loan: %w", err)
		}
		if !current.ContractPending() {
			ref = current.ContractRef()
			return nil
		}
		current, err = current.AttachContract(ref, deps.now())
		if err != nil {
			return fmt.Errorf("attach contract: %w", err)
		}
		if err := deps.Loans.Save(ctx, current); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}
