package model

import (
	"time"

	"github.com/bibbank/fund/internal/domain/event"
)

// copyEvents returns a new slice so each aggregate copy owns its event list.
func copyEvents(src []event.DomainEvent) []event.DomainEvent {
	if src == nil {
		return nil
	}
	dst := make([]event.DomainEvent, len(src))
	copy(dst, src)
	return dst
}

// CivilDate is midnight UTC of t's calendar date as read in t's own location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int64 {
	return int64(CivilDate(b).Sub(CivilDate(a)).Hours() / 24)
}
