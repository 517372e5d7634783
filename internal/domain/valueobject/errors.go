package valueobject

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the domain and application layers.
var (
	// ErrValidation marks malformed or missing input. Nothing was mutated.
	ErrValidation = errors.New("validation error")

	// ErrPolicyViolation marks an expected decision rejection such as an
	// unmet refinancing threshold. Use PolicyViolation to carry the reason.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrNotFound marks a missing aggregate.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStatusTransition is returned when a state machine transition is not allowed.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrConcurrentModification is returned when an optimistic version check fails.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// Invalid returns a validation error with the given message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PolicyViolation is a human-readable decision rejection.
type PolicyViolation struct {
	Reason string
}

// NewPolicyViolation returns a *PolicyViolation with the given reason.
func NewPolicyViolation(format string, args ...any) *PolicyViolation {
	return &PolicyViolation{Reason: fmt.Sprintf(format, args...)}
}

func (p *PolicyViolation) Error() string { return "policy violation: " + p.Reason }

// Is lets errors.Is(err, ErrPolicyViolation) match any PolicyViolation.
func (p *PolicyViolation) Is(target error) bool { return target == ErrPolicyViolation }

// IsRejection reports whether err is an expected rejection (validation or
// policy) rather than a consistency or infrastructure failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrPolicyViolation)
}
