package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MonthLayout is the snapshot id format.
const MonthLayout = "2006-01"

// MaxRangeMonths bounds MonthRange; every month is a full-history replay.
const MaxRangeMonths = 1200

var (
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidRange = errors.New("invalid month range")
)

// Month identifies a calendar month in UTC.
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// MonthOf returns the UTC month containing t.
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" id.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Start is the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last instant of the month and the inclusive replay cutoff.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

func (m Month) Prev() Month {
	return MonthOf(m.Start().AddDate(0, -1, 0))
}

func (m Month) Before(o Month) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Month < o.Month)
}

// Contains reports whether t falls in [Start, End].
func (m Month) Contains(t time.Time) bool {
	return !t.Before(m.Start()) && !t.After(m.End())
}

// MonthsBetween counts the months of the inclusive range [from, to].
func MonthsBetween(from, to Month) int {
	return (to.Year-from.Year)*12 + int(to.Month) - int(from.Month) + 1
}

// MonthRange expands an inclusive range into an explicit month list. Ranges
// longer than MaxRangeMonths are rejected.
func MonthRange(from, to Month) ([]Month, error) {
	if from.IsZero() || to.IsZero() {
		return nil, ErrInvalidRange
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidRange, from, to)
	}
	if n := MonthsBetween(from, to); n > MaxRangeMonths {
		return nil, fmt.Errorf("%w: %s..%s spans %d months, limit %d", ErrInvalidRange, from, to, n, MaxRangeMonths)
	}
	months := make([]Month, 0, MonthsBetween(from, to))
	for m := from; !to.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return months, nil
}

// ParseMonths parses a list of month ids, keeping order and dropping duplicates.
func ParseMonths(ids []string) ([]Month, error) {
	seen := make(map[Month]struct{}, len(ids))
	months := make([]Month, 0, len(ids))
	for _, id := range ids {
		m, err := ParseMonth(id)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	return months, nil
}
