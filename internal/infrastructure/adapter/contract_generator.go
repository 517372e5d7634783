package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bibbank/fund/internal/domain/model"
	"github.com/bibbank/fund/internal/domain/port"
)

// ContractConfig holds configuration for the contract generator.
type ContractConfig struct {
	// StoragePrefix is prepended to every generated document reference.
	StoragePrefix string
	// MaxRetries is the maximum number of retry attempts on renderer failures.
	MaxRetries int
	// RetryBackoff is the base backoff between retries.
	RetryBackoff time.Duration
}

// DefaultContractConfig returns defaults for development.
func DefaultContractConfig() ContractConfig {
	return ContractConfig{
		StoragePrefix: "contracts/",
		MaxRetries:    2,
		RetryBackoff:  200 * time.Millisecond,
	}
}

// ContractTerms is what a renderer needs to lay out a loan contract.
type ContractTerms struct {
	LoanID         string
	TrackingCode   string
	MemberID       string
	GuarantorID    string
	LoanType       string
	Principal      string
	MonthlyRatePct string
	Installments   int
	FirstDueDate   time.Time
	LastDueDate    time.Time
}

// Renderer stores a rendered contract and returns its reference.
type Renderer interface {
	Render(ctx context.Context, terms ContractTerms) (string, error)
}

// ContractGenerator implements port.DocumentGenerator. With no renderer it
// returns a deterministic reference derived from the contract terms, which is
// what development and tests run with.
type ContractGenerator struct {
	config   ContractConfig
	renderer Renderer
}

var _ port.DocumentGenerator = (*ContractGenerator)(nil)

// NewContractGenerator creates a generator. renderer may be nil.
func NewContractGenerator(config ContractConfig, renderer Renderer) *ContractGenerator {
	return &ContractGenerator{config: config, renderer: renderer}
}

// GenerateContract renders the contract of a disbursed loan.
func (g *ContractGenerator) GenerateContract(ctx context.Context, loan model.Loan) (string, error) {
	schedule := loan.Schedule()
	if len(schedule) == 0 {
		return "", fmt.Errorf("loan %s has no schedule to put in a contract", loan.ID())
	}
	terms := ContractTerms{
		LoanID:         loan.ID().String(),
		TrackingCode:   loan.TrackingCode(),
		MemberID:       loan.MemberID().String(),
		GuarantorID:    loan.GuarantorID().String(),
		LoanType:       loan.Type().String(),
		Principal:      loan.PrincipalApproved().StringFixed(2),
		MonthlyRatePct: loan.MonthlyRatePct().String(),
		Installments:   len(schedule),
		FirstDueDate:   schedule[0].DueDate,
		LastDueDate:    schedule[len(schedule)-1].DueDate,
	}

	if g.renderer == nil {
		return g.stubReference(terms), nil
	}
	ref, err := g.renderWithRetry(ctx, terms)
	if err != nil {
		return "", fmt.Errorf("render contract for loan %s: %w", loan.ID(), err)
	}
	return ref, nil
}

// renderWithRetry calls the renderer with exponential backoff.
func (g *ContractGenerator) renderWithRetry(ctx context.Context, terms ContractTerms) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.config.RetryBackoff * (1 << uint(attempt-1))
			var jitter time.Duration
			if backoff >= 2 {
				jitter = time.Duration(rand.Int63n(int64(backoff) / 2))
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		ref, err := g.renderer.Render(ctx, terms)
		if err == nil {
			return ref, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("exhausted %d retries: %w", g.config.MaxRetries, lastErr)
}

func (g *ContractGenerator) stubReference(terms ContractTerms) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		terms.LoanID, terms.Principal, terms.MonthlyRatePct, terms.FirstDueDate.Format(time.DateOnly),
	}, "|")))
	return fmt.Sprintf("%s%s-%s.pdf", g.config.StoragePrefix, terms.TrackingCode, hex.EncodeToString(h[:4]))
}
