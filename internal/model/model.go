package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Holiday is a single public holiday on a calendar date.
//
// Date is midnight of the holiday in the display location. Holidays are
// built per lookup and never mutated afterwards.
type Holiday struct {
	Date      time.Time
	Name      string
	LocalName string
}

// DisplayName prefers the English name and falls back to the local one.
func (h Holiday) DisplayName() string {
	if strings.TrimSpace(h.Name) != "" {
		return h.Name
	}
	return h.LocalName
}

// DateString returns the date as YYYY-MM-DD.
func (h Holiday) DateString() string {
	return h.Date.Format(DateLayout)
}

type holidayJSON struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	LocalName string `json:"localName,omitempty"`
}

func (h Holiday) MarshalJSON() ([]byte, error) {
	return json.Marshal(holidayJSON{
		Date:      h.DateString(),
		Name:      h.Name,
		LocalName: h.LocalName,
	})
}

// UnmarshalJSON parses the date in UTC. Callers that care about the display
// location should use ParseDate instead.
func (h *Holiday) UnmarshalJSON(data []byte) error {
	var raw holidayJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := ParseDate(raw.Date, time.UTC)
	if err != nil {
		return err
	}
	h.Date = d
	h.Name = raw.Name
	h.LocalName = raw.LocalName
	return nil
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Midnight truncates t to 00:00 of its calendar day in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
