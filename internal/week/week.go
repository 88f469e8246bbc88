// Package week computes the Monday-to-Sunday span containing a given instant.
package week

import (
	"fmt"
	"time"

	"holidayd/internal/model"
)

// Range is an inclusive [Start, End] week span. Start is Monday 00:00:00 and
// End is the last instant of the following Sunday.
type Range struct {
	Start time.Time
	End   time.Time
}

// Current returns the week containing now, in now's location. Only the
// Monday-start convention is supported.
func Current(now time.Time) Range {
	dow := now.Weekday()
	daysSinceMonday := int(dow) - 1
	if dow == time.Sunday {
		daysSinceMonday = 6
	}

	start := model.Midnight(now).AddDate(0, 0, -daysSinceMonday)
	endDay := start.AddDate(0, 0, 6)
	end := time.Date(endDay.Year(), endDay.Month(), endDay.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), endDay.Location())

	return Range{Start: start, End: end}
}

// Contains reports whether t falls within the range, boundaries included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days returns the seven calendar days of the range.
func (r Range) Days() []time.Time {
	days := make([]time.Time, 0, 7)
	for i := 0; i < 7; i++ {
		days = append(days, r.Start.AddDate(0, 0, i))
	}
	return days
}

// Label renders the range as "dd/mm/yyyy - dd/mm/yyyy".
func (r Range) Label() string {
	const layout = "02/01/2006"
	return fmt.Sprintf("%s - %s", r.Start.Format(layout), r.End.Format(layout))
}

func (r Range) String() string {
	return r.Start.Format(model.DateLayout) + ".." + r.End.Format(model.DateLayout)
}
