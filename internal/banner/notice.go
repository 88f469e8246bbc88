// Package banner presents the weekly holiday notice as a transient,
// single-instance banner and renders it as HTML or plain entries.
package banner

import (
	"fmt"
	"time"

	"holidayd/internal/model"
	"holidayd/internal/week"
)

// ElementID is the id of the one banner element a page may carry.
const ElementID = "holiday-reminder-banner"

// Kind selects the banner variant and therefore its lifetime.
type Kind string

const (
	KindHolidays Kind = "holidays"
	KindEmpty    Kind = "empty"
	KindError    Kind = "error"
)

// Durations are the banner lifetimes per kind plus the fade-out time.
type Durations struct {
	Holidays time.Duration
	Empty    time.Duration
	Error    time.Duration
	Fade     time.Duration
}

func DefaultDurations() Durations {
	return Durations{
		Holidays: 15 * time.Second,
		Empty:    5 * time.Second,
		Error:    3 * time.Second,
		Fade:     300 * time.Millisecond,
	}
}

// Normalize replaces non-positive values with the defaults.
func (d Durations) Normalize() Durations {
	def := DefaultDurations()
	if d.Holidays <= 0 {
		d.Holidays = def.Holidays
	}
	if d.Empty <= 0 {
		d.Empty = def.Empty
	}
	if d.Error <= 0 {
		d.Error = def.Error
	}
	if d.Fade <= 0 {
		d.Fade = def.Fade
	}
	return d
}

// For returns how long a banner of kind k stays before fading.
func (d Durations) For(k Kind) time.Duration {
	switch k {
	case KindEmpty:
		return d.Empty
	case KindError:
		return d.Error
	default:
		return d.Holidays
	}
}

// Notice is the content of one banner.
type Notice struct {
	Kind     Kind
	Week     week.Range
	Holidays []model.Holiday
	// Test marks a notice forced by the test trigger.
	Test bool
}

// Entry is one displayed holiday line.
type Entry struct {
	Name string `json:"name"`
	When string `json:"when"`
	Date string `json:"date"`
}

// HolidaysNotice builds the notice for a week that has holidays. An empty
// list yields the "no holidays" variant.
func HolidaysNotice(r week.Range, hs []model.Holiday) Notice {
	if len(hs) == 0 {
		return EmptyNotice(r)
	}
	return Notice{Kind: KindHolidays, Week: r, Holidays: hs}
}

func EmptyNotice(r week.Range) Notice {
	return Notice{Kind: KindEmpty, Week: r, Holidays: []model.Holiday{}}
}

func ErrorNotice(r week.Range) Notice {
	return Notice{Kind: KindError, Week: r, Holidays: []model.Holiday{}}
}

func (n Notice) Title() string {
	switch n.Kind {
	case KindEmpty:
		return "🎉 No national holidays this week!"
	case KindError:
		return "⚠️ Could not load holiday information"
	default:
		if len(n.Holidays) == 1 {
			return "🎉 1 holiday this week"
		}
		return fmt.Sprintf("🎉 %d holidays this week", len(n.Holidays))
	}
}

func (n Notice) Subtitle() string {
	switch n.Kind {
	case KindEmpty:
		return "Perfect time for productivity 💼"
	case KindError:
		return "Please try again later."
	default:
		return "Week: " + n.Week.Label()
	}
}

func (n Notice) Entries() []Entry {
	out := make([]Entry, 0, len(n.Holidays))
	for _, h := range n.Holidays {
		out = append(out, EntryFor(h))
	}
	return out
}

// EntryFor formats a holiday as "<Weekday>, <day> <Month>".
func EntryFor(h model.Holiday) Entry {
	return Entry{
		Name: h.DisplayName(),
		When: fmt.Sprintf("%s, %d %s", h.Date.Weekday(), h.Date.Day(), h.Date.Month()),
		Date: h.DateString(),
	}
}
