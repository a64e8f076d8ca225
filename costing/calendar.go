/*
calendar.go - Day classification and working-day counting

PURPOSE:
  Turns a date range plus a holiday set plus pause intervals into billable
  working days. This is the foundation every labor cost in the system is
  computed from.

CLASSIFICATION PRECEDENCE (fixed, evaluated per day):
  1. Weekend (Saturday/Sunday)  - always excluded, regardless of other flags
  2. Holiday                    - excluded
  3. Inside a PausePeriod       - excluded (open-ended pauses extend
                                  through the injected as-of date)
  4. Otherwise                  - a working day

  Classification is mutually exclusive: a Saturday that is also a holiday
  counts once, as a weekend day. This gives the partition property

    Working + Weekend + Holiday + Paused == days in range

  which the tests rely on.

DETERMINISM:
  There is no implicit "today". Open-ended pause periods are closed with an
  explicit asOf Date supplied by the caller, so the same inputs always
  classify identically.

SEE ALSO:
  - costmodel.go: Multiplies working days by daily rates
  - types.go: PausePeriod definition
*/
package costing

// =============================================================================
// DAY CLASSIFICATION
// =============================================================================

type DayClass int

const (
	DayWorking DayClass = iota
	DayWeekend
	DayHoliday
	DayPaused
)

func (c DayClass) String() string {
	switch c {
	case DayWorking:
		return "working"
	case DayWeekend:
		return "weekend"
	case DayHoliday:
		return "holiday"
	case DayPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// HolidaySet is a membership set of holiday dates.
type HolidaySet map[string]struct{}

func NewHolidaySet(holidays ...Holiday) HolidaySet {
	hs := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		hs[h.Date.String()] = struct{}{}
	}
	return hs
}

func (hs HolidaySet) Add(d Date) { hs[d.String()] = struct{}{} }

func (hs HolidaySet) Contains(d Date) bool {
	_, ok := hs[d.String()]
	return ok
}

// ClassifyDay classifies a single day under the fixed precedence.
// asOf closes open-ended pause periods.
func ClassifyDay(d Date, holidays HolidaySet, pauses []PausePeriod, asOf Date) DayClass {
	if d.IsWeekend() {
		return DayWeekend
	}
	if holidays.Contains(d) {
		return DayHoliday
	}
	for _, p := range pauses {
		if p.Contains(d, asOf) {
			return DayPaused
		}
	}
	return DayWorking
}

// =============================================================================
// WORKING-DAY COUNTING
// =============================================================================

// DayCounts is the per-class tally for a date range. Exactly one class per
// day, so the fields sum to the number of days in the range.
type DayCounts struct {
	Working int
	Weekend int
	Holiday int
	Paused  int
}

func (c DayCounts) Total() int { return c.Working + c.Weekend + c.Holiday + c.Paused }

// CountWorkingDays classifies every day in [start, end] inclusive.
// start after end yields all-zero counts.
func CountWorkingDays(start, end Date, holidays HolidaySet, pauses []PausePeriod, asOf Date) DayCounts {
	var counts DayCounts
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		switch ClassifyDay(d, holidays, pauses, asOf) {
		case DayWeekend:
			counts.Weekend++
		case DayHoliday:
			counts.Holiday++
		case DayPaused:
			counts.Paused++
		default:
			counts.Working++
		}
	}
	return counts
}

// WorkingDates returns the working days in [start, end] inclusive, in order.
// Same classification as CountWorkingDays; used for WorkLog generation and
// missing-attendance detection.
func WorkingDates(start, end Date, holidays HolidaySet, pauses []PausePeriod, asOf Date) []Date {
	var dates []Date
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if ClassifyDay(d, holidays, pauses, asOf) == DayWorking {
			dates = append(dates, d)
		}
	}
	return dates
}
