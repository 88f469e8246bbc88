package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidayd/internal/auth"
	"holidayd/internal/banner"
	"holidayd/internal/clock"
	"holidayd/internal/config"
	"holidayd/internal/holiday"
	"holidayd/internal/reminder"
	"holidayd/internal/scheduler"
	"holidayd/internal/store"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type testEnv struct {
	srv     *httptest.Server
	svc     *reminder.Service
	server  *Server
	hub     *Hub
	surface *banner.MemorySurface
}

func newTestEnv(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := clock.NewFake(time.Date(2026, 1, 26, 10, 0, 0, 0, ist))
	surface := banner.NewMemorySurface()
	hub := NewHub()
	p := banner.NewPresenter(banner.Multi{surface, hub}, c, banner.DefaultDurations())
	svc := reminder.New(holiday.NewSource(nil, 0, ist), store.NewMemory(), c, p, nil, reminder.Options{
		TargetSite:    "timesheet.com",
		DefaultRegion: "IN",
	})

	server := NewServer(cfg, svc, surface, hub)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return testEnv{srv: ts, svc: svc, server: server, hub: hub, surface: surface}
}

func (e testEnv) post(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, body := e.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestMessage_GetHolidays(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, body := e.post(t, "/api/message", `{"action":"getHolidays"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data reminder.PopupView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Week: 26/01/2026 - 01/02/2026", out.Data.Week)
	require.Len(t, out.Data.Holidays, 1)
	assert.Equal(t, "Republic Day", out.Data.Holidays[0].Name)
}

func TestMessage_Errors(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.post(t, "/api/message", `{"action":"nope"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Unknown action"}`, string(body))

	resp, body = e.post(t, "/api/message", `{"action":"saveSettings","payload":{"country":"India"}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"error"`)

	resp, _ = e.post(t, "/api/message", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.post(t, "/api/message", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMessage_TestBannerWithoutPage(t *testing.T) {
	e := newTestEnv(t, nil)
	resp, body := e.post(t, "/api/message", `{"action":"testBanner"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Please visit timesheet.com first to test the banner"}`, string(body))
	assert.Equal(t, 0, e.surface.Mounts())
}

func TestVisit(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.post(t, "/api/visit", `{"url":"https://timesheet.com/week"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out reminder.VisitOutcome
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Shown)
	assert.Equal(t, banner.KindHolidays, out.Kind)

	_, body = e.post(t, "/api/visit", `{"url":"https://timesheet.com/week"}`)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Shown)

	_, body = e.get(t, "/api/banner")
	var st bannerResponse
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, banner.StateShowing, st.State)
	assert.Equal(t, "🎉 1 holiday this week", st.Title)

	_, body = e.post(t, "/api/banner/close", ``)
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, banner.StateFading, st.State)
}

func TestICSExport(t *testing.T) {
	e := newTestEnv(t, nil)

	resp, body := e.get(t, "/api/holidays.ics?year=2026")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar"))
	assert.Contains(t, string(body), "SUMMARY:Republic Day")
	assert.Contains(t, string(body), "SUMMARY:Independence Day")
	assert.Contains(t, string(body), "DTSTAMP:20260126T043000Z", "stamped from the service clock")

	_, body = e.get(t, "/api/holidays.ics")
	assert.Contains(t, string(body), "SUMMARY:Republic Day")
	assert.NotContains(t, string(body), "Independence Day")

	resp, _ = e.get(t, "/api/holidays.ics?year=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBannerPage(t *testing.T) {
	e := newTestEnv(t, nil)

	_, body := e.get(t, "/banner")
	assert.NotContains(t, string(body), `id="holiday-reminder-banner"`)

	_, err := e.svc.Visit(context.Background(), "https://timesheet.com")
	require.NoError(t, err)

	resp, body := e.get(t, "/banner")
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.Contains(t, string(body), `id="holiday-reminder-banner"`)
	assert.Contains(t, string(body), "Republic Day")
}

func TestBasicAuth(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", PasswordHash: hash}
	e := newTestEnv(t, cfg)

	resp, _ := e.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.get(t, "/api/banner")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/banner", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.SetBasicAuth("admin", "s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebsocketPageEnablesTestBanner(t *testing.T) {
	e := newTestEnv(t, nil)

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return e.svc.Pages() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, body := e.post(t, "/api/message", `{"action":"testBanner"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"data":{"shown":true}}`, string(body))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev pageEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "mount", ev.Type)
	assert.Contains(t, ev.HTML, "Test Holiday")
	assert.Contains(t, ev.HTML, `id="holiday-reminder-banner"`)

	conn.Close()
	require.Eventually(t, func() bool { return e.svc.Pages() == 0 }, 2*time.Second, 10*time.Millisecond)

	resp, _ = e.post(t, "/api/message", `{"action":"testBanner"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

type fakeJobs struct {
	ran []string
}

func (f *fakeJobs) RunNow(name string) error {
	if name != "sweep" {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	f.ran = append(f.ran, name)
	return nil
}

func (f *fakeJobs) Entries() []scheduler.Entry {
	return []scheduler.Entry{{Name: "sweep", Spec: "0 3 * * *"}}
}

func TestJobs(t *testing.T) {
	e := newTestEnv(t, nil)

	_, body := e.get(t, "/api/jobs")
	assert.JSONEq(t, `[]`, string(body))

	jobs := &fakeJobs{}
	e.server.SetJobs(jobs)

	_, body = e.get(t, "/api/jobs")
	var entries []scheduler.Entry
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "sweep", entries[0].Name)

	resp, _ := e.post(t, "/api/jobs/sweep", ``)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"sweep"}, jobs.ran)

	resp, _ = e.post(t, "/api/jobs/nope", ``)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
