package holiday

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "holidayd/internal/log"
	"holidayd/internal/model"
)

// ICSRemote reads holidays from an iCalendar feed, for regions whose
// holidays are published as a calendar subscription. URLTemplate may
// contain {year} and {region} placeholders.
type ICSRemote struct {
	client      HTTPClient
	urlTemplate string
	loc         *time.Location
}

func NewICSRemote(client HTTPClient, urlTemplate string, loc *time.Location) *ICSRemote {
	if client == nil {
		client = &http.Client{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &ICSRemote{client: client, urlTemplate: urlTemplate, loc: loc}
}

func (r *ICSRemote) URL(year int, region string) string {
	u := strings.ReplaceAll(r.urlTemplate, "{year}", strconv.Itoa(year))
	return strings.ReplaceAll(u, "{region}", strings.ToUpper(region))
}

func (r *ICSRemote) Fetch(ctx context.Context, year int, region string) (FetchResult, error) {
	if r.urlTemplate == "" {
		return FetchResult{}, errors.New("holiday: ics url is empty")
	}
	feedURL := r.URL(year, region)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := r.client.Do(req)
	if err != nil {
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FetchResult{}, fmt.Errorf("holiday: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return FetchResult{}, err
	}

	holidays, err := ParseICS(body, year, r.loc)
	if err != nil {
		return FetchResult{}, err
	}
	if len(holidays) == 0 {
		return FetchResult{}, ErrNoHolidays
	}
	appLog.Info("holiday ics fetch success", "url", redactURL(feedURL), "count", len(holidays))
	return FetchResult{Holidays: holidays}, nil
}

// ParseICS extracts the holidays falling in year from an ICS payload.
// Recurring VEVENTs are expanded with their RRULE; events without a
// usable DTSTART or SUMMARY are skipped.
func ParseICS(body []byte, year int, loc *time.Location) ([]model.Holiday, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	if loc == nil {
		loc = time.Local
	}

	calendar, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("holiday: ics parse: %w", err)
	}

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	yearEnd := yearStart.AddDate(1, 0, 0).Add(-time.Nanosecond)

	out := make([]model.Holiday, 0)
	for _, ve := range calendar.Events() {
		summary := ""
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			summary = strings.TrimSpace(p.Value)
		}
		if summary == "" {
			continue
		}

		start, err := eventDate(ve, loc)
		if err != nil {
			appLog.Debug("ics vevent skipped", "summary", summary, "err", err)
			continue
		}

		dates := []time.Time{start}
		if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && p.Value != "" {
			rule, err := rrule.StrToRRule(p.Value)
			if err != nil {
				appLog.Error("ics: failed to parse RRULE", err, "summary", summary, "rrule", p.Value)
				continue
			}
			rule.DTStart(start)
			dates = rule.Between(yearStart, yearEnd, true)
		}

		for _, d := range dates {
			d = model.Midnight(d.In(loc))
			if d.Year() != year {
				continue
			}
			out = append(out, model.Holiday{Date: d, Name: summary, LocalName: summary})
		}
	}

	sortByDate(out)
	return out, nil
}

// eventDate returns the calendar day of DTSTART in loc. All-day values
// (YYYYMMDD) are taken literally rather than converted across zones.
func eventDate(ve *ical.VEvent, loc *time.Location) (time.Time, error) {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return time.Time{}, errors.New("missing DTSTART")
	}
	v := strings.TrimSpace(p.Value)
	if len(v) == 8 && !strings.Contains(v, "T") {
		return time.ParseInLocation("20060102", v, loc)
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return time.Time{}, err
	}
	return model.Midnight(start.In(loc)), nil
}

// ICSProductID identifies exported calendars.
const ICSProductID = "-//holidayd//Holiday Reminder//EN"

// WriteICS serialises holidays as all-day events of a published calendar.
func WriteICS(w io.Writer, name string, holidays []model.Holiday, stamp time.Time) error {
	c := ical.NewCalendar()
	c.SetMethod(ical.MethodPublish)
	c.SetProductId(ICSProductID)
	c.SetXWRCalName(name)

	for _, h := range holidays {
		uid := fmt.Sprintf("%s-%s@holidayd", h.DateString(), slug(h.DisplayName()))
		ev := c.AddEvent(uid)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(h.Date)
		ev.SetAllDayEndAt(h.Date.AddDate(0, 0, 1))
		ev.SetSummary(h.DisplayName())
		if h.LocalName != "" && h.LocalName != h.Name {
			ev.SetDescription(h.LocalName)
		}
	}

	_, err := io.WriteString(w, c.Serialize())
	return err
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// redactURL keeps only scheme and host of a feed URL for logging, since
// private calendar URLs often embed a token.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i == -1 {
		return "ics://...(redacted)"
	}
	j := i + 3
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + "/...(redacted)"
}
