package shared

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the form and query-string format for calendar dates.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar day.
//
// Attendance, payment and expense dates are stored this way so equality and range comparisons agree in SQLite.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidArgument, s)
	}
	return t, nil
}

// Period is a half-open [Start, End) range of dates.
type Period struct {
	Start time.Time
	End   time.Time
	Kind  PeriodKind
}

// PeriodKind distinguishes month and year periods so the previous period can be derived.
type PeriodKind int

const (
	PeriodCustom PeriodKind = iota
	PeriodMonth
	PeriodYear
)

// MonthRange returns the period covering the given month.
func MonthRange(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0), Kind: PeriodMonth}
}

// YearRange returns the period covering the given calendar year.
func YearRange(year int) Period {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(1, 0, 0), Kind: PeriodYear}
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Previous returns the period of the same kind immediately before p.
func (p Period) Previous() Period {
	switch p.Kind {
	case PeriodMonth:
		return MonthRange(p.Start.AddDate(0, -1, 0).Year(), p.Start.AddDate(0, -1, 0).Month())
	case PeriodYear:
		return YearRange(p.Start.Year() - 1)
	default:
		span := p.End.Sub(p.Start)
		return Period{Start: p.Start.Add(-span), End: p.Start, Kind: PeriodCustom}
	}
}

// Label renders "March 2025", "2025" or "2025-03-01 to 2025-03-15".
func (p Period) Label() string {
	switch p.Kind {
	case PeriodMonth:
		return p.Start.Format("January 2006")
	case PeriodYear:
		return p.Start.Format("2006")
	default:
		return fmt.Sprintf("%s to %s", p.Start.Format(DateLayout), p.End.AddDate(0, 0, -1).Format(DateLayout))
	}
}

// FormatMoney renders an amount with a currency symbol and thousands separators, e.g. "₹12,500.00".
func FormatMoney(amount float64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	cents := int64(math.Round(amount * 100))
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return fmt.Sprintf("%s%s%s.%02d", sign, currency, b.String(), cents%100)
}

// PercentChange returns the relative change from prev to curr as a percentage; 0 when prev is 0.
func PercentChange(prev, curr float64) float64 {
	if prev == 0 {
		return 0
	}
	return (curr - prev) / math.Abs(prev) * 100
}
