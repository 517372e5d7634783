package testutil

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// AssertErrorContains checks that err contains the expected substring.
func AssertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), expected)
	}
}

// AssertErrorIs checks that err wraps target and, when given, mentions detail.
func AssertErrorIs(t *testing.T, err, target error, detail ...string) {
	t.Helper()
	if !assert.Truef(t, errors.Is(err, target), "expected %v to wrap %v", err, target) {
		return
	}
	for _, d := range detail {
		assert.Contains(t, err.Error(), d)
	}
}

// AssertDecimal compares a decimal against its expected string form using
// numeric equality, so "1000" and "1000.00" are the same amount.
func AssertDecimal(t *testing.T, expected string, actual decimal.Decimal, label string) {
	t.Helper()
	want := decimal.RequireFromString(expected)
	assert.Truef(t, want.Equal(actual), "%s: expected %s, got %s", label, want, actual)
}
