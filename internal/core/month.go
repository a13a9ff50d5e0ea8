package core

import (
	"fmt"
	"strings"
	"time"
)

// MonthLayout is the format of the month query parameter.
const MonthLayout = "2006-01"

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM string. Anything else, including an empty
// string, yields ErrMalformedMonth.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(MonthLayout) {
		return Month{}, fmt.Errorf("%w: %q", ErrMalformedMonth, s)
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrMalformedMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Start returns the first day of the month.
func (m Month) Start() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// End returns the last day of the month, honouring month length and leap years.
func (m Month) End() Date {
	return Date{Time: m.Start().AddDate(0, 1, -1)}
}

// Contains reports whether d falls within the month, bounds inclusive.
func (m Month) Contains(d Date) bool {
	return !d.Before(m.Start().Time) && !d.After(m.End().Time)
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
