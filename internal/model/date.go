package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Date is a calendar day without a time zone, rendered as YYYY-MM-DD.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, eris.Wrapf(err, "model: parse date %q", s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) IsZero() bool { return d.Year == 0 }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Before reports whether d falls strictly before o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// MonthYear truncates the date to its month.
func (d Date) MonthYear() MonthYear {
	return MonthYear{Month: int(d.Month), Year: d.Year}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthYear is a month-resolution point in time, rendered as MM.YYYY.
type MonthYear struct {
	Month int
	Year  int
}

func (m MonthYear) IsZero() bool { return m.Year == 0 }

func (m MonthYear) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%02d.%04d", m.Month, m.Year)
}

// Before reports whether m is strictly earlier than o.
func (m MonthYear) Before(o MonthYear) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// ParseMonthYear parses MM.YYYY.
func ParseMonthYear(s string) (MonthYear, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 {
		return MonthYear{}, eris.Errorf("model: month-year %q is not MM.YYYY", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return MonthYear{}, eris.Errorf("model: month-year %q has invalid month", s)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthYear{}, eris.Wrapf(err, "model: month-year %q has invalid year", s)
	}
	return MonthYear{Month: month, Year: year}, nil
}

// Span is a closed month-year interval rendered as MM.YYYY-MM.YYYY.
type Span struct {
	From MonthYear
	To   MonthYear
}

func (s Span) String() string {
	if s.From.IsZero() && s.To.IsZero() {
		return ""
	}
	return s.From.String() + "-" + s.To.String()
}

// CoversYear reports whether the calendar year falls inside the span.
func (s Span) CoversYear(year int) bool {
	return s.From.Year <= year && year <= s.To.Year
}

// ParseSpan parses MM.YYYY-MM.YYYY.
func ParseSpan(s string) (Span, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Span{}, nil
	}
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return Span{}, eris.Errorf("model: span %q has no separator", s)
	}
	f, err := ParseMonthYear(from)
	if err != nil {
		return Span{}, err
	}
	t, err := ParseMonthYear(to)
	if err != nil {
		return Span{}, err
	}
	return Span{From: f, To: t}, nil
}

func (s Span) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Span) UnmarshalText(b []byte) error {
	parsed, err := ParseSpan(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
