package valueobject

import (
	"fmt"
	"time"
)

// Period is a calendar month of the fund (year + month). All boundaries are UTC.
type Period struct {
	year  int
	month time.Month
}

func NewPeriod(year int, month time.Month) (Period, error) {
	if year < 2000 || year > 2100 {
		return Period{}, Invalid("invalid period year %d: must be between 2000 and 2100", year)
	}
	if month < time.January || month > time.December {
		return Period{}, Invalid("invalid month %d", month)
	}
	return Period{year: year, month: month}, nil
}

func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{year: t.Year(), month: t.Month()}
}

func (p Period) Year() int         { return p.year }
func (p Period) Month() time.Month { return p.month }
func (p Period) IsZero() bool      { return p.year == 0 }

func (p Period) String() string {
	return fmt.Sprintf("%d-%02d", p.year, p.month)
}

// Start is the first instant of the month.
func (p Period) Start() time.Time {
	return time.Date(p.year, p.month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month (exclusive bound).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// DueDate is the monthly cutoff after which dues for the period are late.
func (p Period) DueDate() time.Time {
	return time.Date(p.year, p.month, DueDay, 0, 0, 0, 0, time.UTC)
}

func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return t.Year() == p.year && t.Month() == p.month
}

func (p Period) Next() Period {
	if p.month == time.December {
		return Period{year: p.year + 1, month: time.January}
	}
	return Period{year: p.year, month: p.month + 1}
}

func (p Period) Before(other Period) bool {
	if p.year != other.year {
		return p.year < other.year
	}
	return p.month < other.month
}

// DueDay is the day of month on which dues and installments fall due.
const DueDay = 5
