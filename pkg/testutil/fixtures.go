package testutil

import (
	"time"

	"github.com/google/uuid"
)

// Fixed UUIDs for deterministic testing.
var (
	MemberID1    = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	MemberID2    = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	MemberID3    = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	TreasurerID  = uuid.MustParse("00000000-0000-0000-0000-000000000010")
	LoanID1      = uuid.MustParse("00000000-0000-0000-0000-000000000020")
	PaymentID1   = uuid.MustParse("00000000-0000-0000-0000-000000000030")
	WithdrawalID = uuid.MustParse("00000000-0000-0000-0000-000000000040")
)

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// FixedClock returns a clock function that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
