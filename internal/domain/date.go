package domain

import (
	"fmt"
	"strings"
	"time"
)

// WireDateFormat is the textual date layout used at the API boundary.
// Internally all date arithmetic happens on (year, month, day) triples;
// parsing and formatting happen only here.
const WireDateFormat = "02-01-2006" // dd-MM-yyyy

// Date is a calendar date without time-of-day or zone.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year, month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// Today returns the current date in UTC.
func Today() Date {
	y, m, d := time.Now().UTC().Date()
	return Date{Year: y, Month: int(m), Day: d}
}

// ParseDate parses a dd-MM-yyyy string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(WireDateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}, nil
}

// String formats the date as dd-MM-yyyy.
func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, d.Month, d.Year)
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Before reports whether d is chronologically before other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is chronologically after other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// MarshalJSON encodes the date as a dd-MM-yyyy string. The zero date
// encodes as null so optional dates round-trip cleanly.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a dd-MM-yyyy string or null.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysInMonth returns the number of days in the given month, accounting
// for leap years.
func DaysInMonth(year, month int) int {
	// Day 0 of month+1 is the last day of month.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
