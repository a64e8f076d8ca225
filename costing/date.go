/*
Package costing provides the core production costing engine.

PURPOSE:
  This package contains the pure computation at the heart of production
  tracking: calendar-day classification, working-day counting, exact
  apportionment of money across weighted shares, and the cost/profit
  rollups over the WorkOrder -> Item -> SubTask hierarchy.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: A calendar day (no time-of-day component, always UTC)
  - All open-ended ranges are closed with an explicit "as-of" Date;
    the engine never reads the wall clock

DESIGN PRINCIPLES:
  1. Purity: No I/O, no ambient clock, no global state
  2. Precision: Money uses decimal.Decimal, never float64
  3. Determinism: Same inputs always produce byte-identical outputs

SEE ALSO:
  - calendar.go: Day classification and working-day counting
  - apportion.go: Exact money splitting
  - costmodel.go: Labor cost and profit rollups
*/
package costing

import (
	"time"
)

// =============================================================================
// DATE - Calendar day abstraction
// =============================================================================

// Date is a calendar day. The time-of-day component is always midnight UTC;
// every constructor normalizes, so Dates are safe to compare and to use as
// map keys via String().
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.t.Format("2006-01-02") }

// Min returns the earlier of two dates.
func (d Date) Min(other Date) Date {
	if other.Before(d) {
		return other
	}
	return d
}

// Max returns the later of two dates.
func (d Date) Max(other Date) Date {
	if other.After(d) {
		return other
	}
	return d
}

// DaysBetween returns the number of whole days from 'from' to 'to'.
// Negative if 'to' precedes 'from'.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}
