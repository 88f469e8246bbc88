package holiday

import (
	"sort"
	"strings"
	"time"

	cal "github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/teambition/rrule-go"

	appLog "holidayd/internal/log"
	"holidayd/internal/model"
)

// ruleEntry is a fallback holiday expressed as an RRULE anchored at
// January 1st of the requested year.
type ruleEntry struct {
	Rule      string
	Name      string
	LocalName string
}

// indiaRules lists major national and popular Indian holidays. Lunar
// festivals are pinned to a fixed day and only approximate.
var indiaRules = []ruleEntry{
	{"FREQ=YEARLY;BYMONTH=1;BYMONTHDAY=1", "New Year's Day", "New Year's Day"},
	{"FREQ=YEARLY;BYMONTH=1;BYMONTHDAY=14", "Makar Sankranti", "Makar Sankranti"},
	{"FREQ=YEARLY;BYMONTH=1;BYMONTHDAY=26", "Republic Day", "Republic Day"},
	{"FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=13", "Holi", "Holi"},
	{"FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=14", "Holi (Second Day)", "Dhulandi"},
	{"FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=31", "Ram Navami", "Ram Navami"},
	{"FREQ=YEARLY;BYMONTH=4;BYMONTHDAY=14", "Dr. Ambedkar Jayanti", "Ambedkar Jayanti"},
	{"FREQ=YEARLY;BYMONTH=4;BYMONTHDAY=18", "Good Friday", "Good Friday"},
	{"FREQ=YEARLY;BYMONTH=5;BYMONTHDAY=1", "Labour Day", "May Day"},
	{"FREQ=YEARLY;BYMONTH=5;BYMONTHDAY=12", "Buddha Purnima", "Buddha Purnima"},
	{"FREQ=YEARLY;BYMONTH=8;BYMONTHDAY=15", "Independence Day", "Independence Day"},
	{"FREQ=YEARLY;BYMONTH=8;BYMONTHDAY=16", "Janmashtami", "Krishna Janmashtami"},
	{"FREQ=YEARLY;BYMONTH=9;BYMONTHDAY=7", "Ganesh Chaturthi", "Ganesh Chaturthi"},
	{"FREQ=YEARLY;BYMONTH=10;BYMONTHDAY=2", "Gandhi Jayanti", "Gandhi Jayanti"},
	{"FREQ=YEARLY;BYMONTH=10;BYMONTHDAY=12", "Dussehra", "Vijayadashami"},
	{"FREQ=YEARLY;BYMONTH=11;BYMONTHDAY=1", "Diwali", "Deepavali"},
	{"FREQ=YEARLY;BYMONTH=11;BYMONTHDAY=15", "Guru Nanak Jayanti", "Guru Nanak Jayanti"},
	{"FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=25", "Christmas Day", "Christmas Day"},
}

// usHolidays are the US federal holidays, computed by rickar/cal.
var usHolidays = []*cal.Holiday{
	us.NewYear,
	us.MlkDay,
	us.PresidentsDay,
	us.MemorialDay,
	us.Juneteenth,
	us.IndependenceDay,
	us.LaborDay,
	us.ColumbusDay,
	us.VeteransDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

// Regions returns the region codes that have a built-in fallback table.
func Regions() []string {
	return []string{"IN", "US"}
}

// Fallback returns the built-in holidays for region and year, sorted by
// date. Unknown regions yield an empty list.
func Fallback(region string, year int, loc *time.Location) []model.Holiday {
	if loc == nil {
		loc = time.Local
	}
	switch strings.ToUpper(strings.TrimSpace(region)) {
	case "IN":
		return expandRules(indiaRules, year, loc)
	case "US":
		return calHolidays(usHolidays, year, loc)
	default:
		return []model.Holiday{}
	}
}

func expandRules(entries []ruleEntry, year int, loc *time.Location) []model.Holiday {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	yearEnd := yearStart.AddDate(1, 0, 0).Add(-time.Nanosecond)

	out := make([]model.Holiday, 0, len(entries))
	for _, e := range entries {
		r, err := rrule.StrToRRule(e.Rule)
		if err != nil {
			appLog.Error("fallback: bad rule", err, "rule", e.Rule, "name", e.Name)
			continue
		}
		r.DTStart(yearStart)
		for _, occ := range r.Between(yearStart, yearEnd, true) {
			out = append(out, model.Holiday{
				Date:      model.Midnight(occ.In(loc)),
				Name:      e.Name,
				LocalName: e.LocalName,
			})
		}
	}
	sortByDate(out)
	return out
}

func calHolidays(hs []*cal.Holiday, year int, loc *time.Location) []model.Holiday {
	out := make([]model.Holiday, 0, len(hs))
	for _, h := range hs {
		actual, _ := h.Calc(year)
		if actual.IsZero() || actual.Year() != year {
			continue
		}
		out = append(out, model.Holiday{
			Date:      time.Date(actual.Year(), actual.Month(), actual.Day(), 0, 0, 0, 0, loc),
			Name:      h.Name,
			LocalName: h.Name,
		})
	}
	sortByDate(out)
	return out
}

func sortByDate(hs []model.Holiday) {
	sort.SliceStable(hs, func(i, j int) bool {
		return hs[i].Date.Before(hs[j].Date)
	})
}
