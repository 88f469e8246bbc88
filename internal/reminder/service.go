// Package reminder wires the holiday lookup, the weekly filter, the banner
// presenter and the shown-once guard into the page-visit and popup flows.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"holidayd/internal/banner"
	"holidayd/internal/clock"
	"holidayd/internal/guard"
	"holidayd/internal/holiday"
	appLog "holidayd/internal/log"
	"holidayd/internal/messaging"
	"holidayd/internal/model"
	"holidayd/internal/store"
	"holidayd/internal/week"
)

// SettingCountry is the store key of the region preference.
const SettingCountry = "country"

var ErrInvalidCountry = errors.New("reminder: country must be a two-letter code")

// HolidaySource is satisfied by *holiday.Source.
type HolidaySource interface {
	Lookup(ctx context.Context, year int, region string) holiday.Result
}

// Options configures a Service.
type Options struct {
	// TargetSite is the host whose pages (and subdomains) get the banner.
	TargetSite string
	// DefaultRegion applies until a country setting is saved.
	DefaultRegion string
}

// Service is safe for concurrent use.
type Service struct {
	source    HolidaySource
	guard     *guard.Guard
	presenter *banner.Presenter
	kv        store.KeyValueStore
	clock     clock.Clock
	router    *messaging.Router

	targetSite    string
	defaultRegion string

	pagesMu sync.Mutex
	pages   int
}

func New(src HolidaySource, kv store.KeyValueStore, c clock.Clock, p *banner.Presenter, router *messaging.Router, opts Options) *Service {
	if router == nil {
		router = messaging.NewRouter()
	}
	region := strings.ToUpper(opts.DefaultRegion)
	if !validCountry(region) {
		region = "IN"
	}
	s := &Service{
		source:        src,
		guard:         guard.New(kv, c),
		presenter:     p,
		kv:            kv,
		clock:         c,
		router:        router,
		targetSite:    strings.ToLower(strings.TrimSpace(opts.TargetSite)),
		defaultRegion: region,
	}
	s.registerHandlers()
	return s
}

func (s *Service) Router() *messaging.Router { return s.router }
func (s *Service) Guard() *guard.Guard       { return s.guard }
func (s *Service) TargetSite() string        { return s.targetSite }

// Now is the service clock's current time.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Report is the current week's holiday list for the active region.
type Report struct {
	Week        week.Range
	Region      string
	Holidays    []model.Holiday
	Origin      holiday.Origin
	Unavailable bool
}

// Week looks up the holidays of the week containing now. A week that
// straddles New Year consults both years.
func (s *Service) Week(ctx context.Context) Report {
	now := s.clock.Now()
	r := week.Current(now)
	region := s.Region(ctx)

	years := []int{r.Start.Year()}
	if r.End.Year() != r.Start.Year() {
		years = append(years, r.End.Year())
	}

	rep := Report{Week: r, Region: region, Holidays: []model.Holiday{}}
	unavailable := false
	for _, y := range years {
		res := s.source.Lookup(ctx, y, region)
		if rep.Origin == "" || res.Origin == holiday.OriginFallback {
			rep.Origin = res.Origin
		}
		if res.Unavailable() {
			unavailable = true
		}
		rep.Holidays = append(rep.Holidays, holiday.Filter(res.Holidays, r)...)
	}
	// An empty week from a working source is just an empty week.
	rep.Unavailable = unavailable && len(rep.Holidays) == 0
	return rep
}

// Year looks up a whole year for the active region.
func (s *Service) Year(ctx context.Context, year int) holiday.Result {
	return s.source.Lookup(ctx, year, s.Region(ctx))
}

// VisitOutcome says what a page visit did.
type VisitOutcome struct {
	Shown   bool        `json:"shown"`
	Kind    banner.Kind `json:"kind,omitempty"`
	Count   int         `json:"count"`
	Skipped string      `json:"skipped,omitempty"`
}

// Visit runs the passive flow for a page load: target-site check, guard,
// lookup, filter, present, mark.
func (s *Service) Visit(ctx context.Context, pageURL string) (VisitOutcome, error) {
	if !s.IsTarget(pageURL) {
		return VisitOutcome{Skipped: "not the target site"}, nil
	}
	if s.guard.HasShownToday(ctx) {
		appLog.Debug("banner already shown today", "url", pageURL)
		return VisitOutcome{Skipped: "already shown today"}, nil
	}

	rep := s.Week(ctx)
	n := noticeFor(rep)
	if err := s.presenter.Present(n); err != nil {
		return VisitOutcome{}, err
	}
	s.guard.MarkShownToday(ctx)

	appLog.Info("banner presented", "kind", n.Kind, "count", len(rep.Holidays), "region", rep.Region, "week", rep.Week.String(), "origin", rep.Origin)
	return VisitOutcome{Shown: true, Kind: n.Kind, Count: len(rep.Holidays)}, nil
}

func noticeFor(rep Report) banner.Notice {
	if rep.Unavailable {
		return banner.ErrorNotice(rep.Week)
	}
	return banner.HolidaysNotice(rep.Week, rep.Holidays)
}

// IsTarget reports whether pageURL is on the target site or a subdomain.
func (s *Service) IsTarget(pageURL string) bool {
	raw := strings.TrimSpace(pageURL)
	if raw == "" || s.targetSite == "" {
		return false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	return host == s.targetSite || strings.HasSuffix(host, "."+s.targetSite)
}

// PopupView is the on-demand rendering of the current week.
type PopupView struct {
	Week        string         `json:"week"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	Region      string         `json:"region"`
	Origin      holiday.Origin `json:"origin"`
	Holidays    []banner.Entry `json:"holidays"`
	Message     string         `json:"message,omitempty"`
	Detail      string         `json:"detail,omitempty"`
	Unavailable bool           `json:"unavailable,omitempty"`
}

// Popup repeats lookup and filter without touching the guard or the banner.
func (s *Service) Popup(ctx context.Context) PopupView {
	rep := s.Week(ctx)
	n := noticeFor(rep)

	v := PopupView{
		Week:        "Week: " + rep.Week.Label(),
		Start:       rep.Week.Start.Format(model.DateLayout),
		End:         rep.Week.End.Format(model.DateLayout),
		Region:      rep.Region,
		Origin:      rep.Origin,
		Holidays:    n.Entries(),
		Unavailable: rep.Unavailable,
	}
	if n.Kind != banner.KindHolidays {
		v.Message = n.Title()
		v.Detail = n.Subtitle()
	}
	return v
}

// TestBanner forces a banner with one synthetic holiday dated today. The
// guard is neither consulted nor updated.
func (s *Service) TestBanner(ctx context.Context) error {
	now := s.clock.Now()
	r := week.Current(now)
	n := banner.HolidaysNotice(r, []model.Holiday{{
		Date:      model.Midnight(now),
		Name:      "Test Holiday",
		LocalName: "Test Holiday",
	}})
	n.Test = true
	return s.presenter.Present(n)
}

// CloseBanner is the banner's close button.
func (s *Service) CloseBanner() {
	s.presenter.Close()
}

// Banner exposes the presenter state.
func (s *Service) Banner() (banner.State, *banner.Notice) {
	return s.presenter.State()
}

// Sweep removes stale shown flags.
func (s *Service) Sweep(ctx context.Context) int {
	return s.guard.Sweep(ctx)
}

// Prefetch warms the lookup for the current week's year(s).
func (s *Service) Prefetch(ctx context.Context) {
	started := time.Now()
	rep := s.Week(ctx)
	appLog.Info("holiday prefetch done", "region", rep.Region, "origin", rep.Origin, "week_count", len(rep.Holidays), "elapsed", time.Since(started))
}

// Settings are the user preferences persisted in the store.
type Settings struct {
	Country string `json:"country"`
}

// Region is the saved country or the configured default.
func (s *Service) Region(ctx context.Context) string {
	v, err := s.kv.Get(ctx, SettingCountry)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			appLog.Error("settings read failed; using default region", err)
		}
		return s.defaultRegion
	}
	v = strings.ToUpper(strings.TrimSpace(v))
	if !validCountry(v) {
		return s.defaultRegion
	}
	return v
}

func (s *Service) GetSettings(ctx context.Context) Settings {
	return Settings{Country: s.Region(ctx)}
}

func (s *Service) SaveSettings(ctx context.Context, in Settings) (Settings, error) {
	country := strings.ToUpper(strings.TrimSpace(in.Country))
	if !validCountry(country) {
		return Settings{}, fmt.Errorf("%w: %q", ErrInvalidCountry, in.Country)
	}
	if err := s.kv.Set(ctx, SettingCountry, country); err != nil {
		return Settings{}, fmt.Errorf("reminder: save settings: %w", err)
	}
	appLog.Info("settings saved", "country", country)
	return Settings{Country: country}, nil
}

// InstallDefaults stores the default country if none is saved yet.
func (s *Service) InstallDefaults(ctx context.Context) {
	_, err := s.kv.Get(ctx, SettingCountry)
	if err == nil {
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		appLog.Error("settings read failed", err)
		return
	}
	if err := s.kv.Set(ctx, SettingCountry, s.defaultRegion); err != nil {
		appLog.Error("settings defaults write failed", err)
		return
	}
	appLog.Info("installed default settings", "country", s.defaultRegion)
}

// NoReceiverAlert is the message shown when a test banner has no page to
// land on.
func (s *Service) NoReceiverAlert() string {
	return NoReceiverAlert(s.targetSite)
}

func NoReceiverAlert(site string) string {
	return fmt.Sprintf("Please visit %s first to test the banner", site)
}

func validCountry(c string) bool {
	if len(c) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}
