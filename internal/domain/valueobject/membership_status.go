package valueobject

// MembershipStatus is the standing of a member in the fund.
type MembershipStatus struct {
	value string
}

const (
	membershipPending   = "PENDING"
	membershipActive    = "ACTIVE"
	membershipSuspended = "SUSPENDED"
	membershipWithdrawn = "WITHDRAWN"
	membershipRejected  = "REJECTED"
)

var (
	MembershipPending   = MembershipStatus{value: membershipPending}
	MembershipActive    = MembershipStatus{value: membershipActive}
	MembershipSuspended = MembershipStatus{value: membershipSuspended}
	MembershipWithdrawn = MembershipStatus{value: membershipWithdrawn}
	MembershipRejected  = MembershipStatus{value: membershipRejected}
)

var validMembershipStatuses = map[string]MembershipStatus{
	membershipPending:   MembershipPending,
	membershipActive:    MembershipActive,
	membershipSuspended: MembershipSuspended,
	membershipWithdrawn: MembershipWithdrawn,
	membershipRejected:  MembershipRejected,
}

// NewMembershipStatus creates a MembershipStatus from a raw string.
func NewMembershipStatus(s string) (MembershipStatus, error) {
	v, ok := validMembershipStatuses[s]
	if !ok {
		return MembershipStatus{}, Invalid("invalid membership status: %q", s)
	}
	return v, nil
}

func (s MembershipStatus) String() string { return s.value }

func (s MembershipStatus) IsZero() bool { return s.value == "" }

func (s MembershipStatus) Equal(other MembershipStatus) bool { return s.value == other.value }

// IsEnrolled reports whether the member still holds shares in the fund:
// active or suspended members take part in monthly profit coverage.
func (s MembershipStatus) IsEnrolled() bool {
	return s.value == membershipActive || s.value == membershipSuspended
}
