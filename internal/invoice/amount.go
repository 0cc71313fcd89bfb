package invoice

import (
	"errors"
	"strings"
	"time"

	"github.com/govalues/decimal"
)

// MoneyScale is the number of fractional digits kept for prices and totals.
const MoneyScale = 2

// DateLayout is the wire and storage format of invoice dates.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned by ParseDate for unrecognised input.
var ErrInvalidDate = errors.New("invalid date")

// accepted input layouts, tried in order. "1" and "2" match one or two digits.
var dateLayouts = []string{
	DateLayout,
	"1-2-2006",
	"1/2/2006",
	time.RFC3339,
}

// RoundHalfUp rounds d to scale digits, ties away from zero, and pads the
// result so it always carries exactly scale fractional digits. This matches
// Postgres round(numeric, int).
func RoundHalfUp(d decimal.Decimal, scale int) (decimal.Decimal, error) {
	half, err := decimal.New(5, scale+1)
	if err != nil {
		return decimal.Decimal{}, err
	}
	r, err := d.Abs().Add(half)
	if err != nil {
		return decimal.Decimal{}, err
	}
	r = r.Trunc(scale).Pad(scale)
	if d.IsNeg() {
		r = r.Neg()
	}
	return r, nil
}

// FormatMoney renders d with exactly two fractional digits.
func FormatMoney(d decimal.Decimal) string {
	r, err := RoundHalfUp(d, MoneyScale)
	if err != nil {
		return d.String()
	}
	return r.String()
}

// ParseDate accepts ISO dates, US month-day-year dates with '-' or '/' and
// RFC3339 timestamps. The result is the calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// Day truncates t to its calendar date in t's own location, expressed as
// midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }
