package banner

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidayd/internal/clock"
	"holidayd/internal/model"
	"holidayd/internal/week"
)

var monday = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func sampleNotice() Notice {
	r := week.Current(monday)
	return HolidaysNotice(r, []model.Holiday{
		{Date: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), Name: "Dussehra", LocalName: "Vijayadashami"},
	})
}

func newTestPresenter() (*Presenter, *MemorySurface, *clock.Fake) {
	c := clock.NewFake(monday)
	s := NewMemorySurface()
	return NewPresenter(s, c, DefaultDurations()), s, c
}

func TestPresenter_HolidaysLifecycle(t *testing.T) {
	p, s, c := newTestPresenter()

	require.NoError(t, p.Present(sampleNotice()))
	st, n := p.State()
	assert.Equal(t, StateShowing, st)
	require.NotNil(t, n)
	assert.Equal(t, KindHolidays, n.Kind)

	c.Advance(15*time.Second - time.Millisecond)
	st, _ = p.State()
	assert.Equal(t, StateShowing, st)

	c.Advance(time.Millisecond)
	st, _ = p.State()
	assert.Equal(t, StateFading, st)
	_, fading, ok := s.Current()
	assert.True(t, ok)
	assert.True(t, fading)

	c.Advance(300 * time.Millisecond)
	st, n = p.State()
	assert.Equal(t, StateAbsent, st)
	assert.Nil(t, n)
	assert.Equal(t, 0, s.Elements())
}

func TestPresenter_DurationsPerKind(t *testing.T) {
	r := week.Current(monday)
	cases := []struct {
		notice Notice
		ttl    time.Duration
	}{
		{EmptyNotice(r), 5 * time.Second},
		{ErrorNotice(r), 3 * time.Second},
		{sampleNotice(), 15 * time.Second},
	}
	for _, tc := range cases {
		t.Run(string(tc.notice.Kind), func(t *testing.T) {
			p, _, c := newTestPresenter()
			require.NoError(t, p.Present(tc.notice))

			c.Advance(tc.ttl - time.Millisecond)
			st, _ := p.State()
			assert.Equal(t, StateShowing, st)

			c.Advance(time.Millisecond + 300*time.Millisecond)
			st, _ = p.State()
			assert.Equal(t, StateAbsent, st)
		})
	}
}

func TestPresenter_CloseStartsFade(t *testing.T) {
	p, s, c := newTestPresenter()
	require.NoError(t, p.Present(sampleNotice()))

	c.Advance(2 * time.Second)
	p.Close()
	st, _ := p.State()
	assert.Equal(t, StateFading, st)

	// Closing again while fading changes nothing.
	p.Close()
	c.Advance(300 * time.Millisecond)
	st, _ = p.State()
	assert.Equal(t, StateAbsent, st)
	assert.Equal(t, 0, s.Elements())
	assert.Equal(t, 0, c.Pending())
}

func TestPresenter_PresentReplacesExisting(t *testing.T) {
	p, s, c := newTestPresenter()
	r := week.Current(monday)

	require.NoError(t, p.Present(sampleNotice()))
	c.Advance(14 * time.Second)
	require.NoError(t, p.Present(EmptyNotice(r)))

	assert.Equal(t, 1, s.Elements())
	assert.Equal(t, 2, s.Mounts())

	// The first banner's 15s timer must not cut the second one short.
	c.Advance(2 * time.Second)
	st, n := p.State()
	assert.Equal(t, StateShowing, st)
	assert.Equal(t, KindEmpty, n.Kind)

	c.Advance(3*time.Second + 300*time.Millisecond)
	st, _ = p.State()
	assert.Equal(t, StateAbsent, st)
}

func TestPresenter_PresentWhileFading(t *testing.T) {
	p, s, c := newTestPresenter()
	require.NoError(t, p.Present(sampleNotice()))
	p.Close()

	require.NoError(t, p.Present(sampleNotice()))
	_, fading, ok := s.Current()
	assert.True(t, ok)
	assert.False(t, fading)

	// The stale removal must not take down the new banner.
	c.Advance(300 * time.Millisecond)
	st, _ := p.State()
	assert.Equal(t, StateShowing, st)
	assert.Equal(t, 1, s.Elements())
}

func TestPresenter_ConcurrentPresentKeepsSingleElement(t *testing.T) {
	c := clock.NewFake(monday)
	s := NewMemorySurface()
	p := NewPresenter(s, c, DefaultDurations())

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.Present(sampleNotice())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, s.Elements())
	assert.Equal(t, 20, s.Mounts())
}

type brokenSurface struct{ MemorySurface }

func (*brokenSurface) Mount(Notice) error { return errors.New("no page") }

func TestPresenter_MountFailure(t *testing.T) {
	p := NewPresenter(&brokenSurface{}, clock.NewFake(monday), Durations{})

	assert.Error(t, p.Present(sampleNotice()))
	st, _ := p.State()
	assert.Equal(t, StateAbsent, st)
}

func TestMulti_RollsBackOnFailure(t *testing.T) {
	first := NewMemorySurface()
	m := Multi{first, &brokenSurface{}}

	assert.Error(t, m.Mount(sampleNotice()))
	assert.Equal(t, 0, first.Elements())
}

func TestNoticeText(t *testing.T) {
	n := sampleNotice()
	assert.Equal(t, "🎉 1 holiday this week", n.Title())
	assert.Equal(t, "Week: 19/10/2026 - 25/10/2026", n.Subtitle())
	assert.Equal(t, []Entry{{Name: "Dussehra", When: "Tuesday, 20 October", Date: "2026-10-20"}}, n.Entries())

	empty := HolidaysNotice(n.Week, nil)
	assert.Equal(t, KindEmpty, empty.Kind)
	assert.Equal(t, "🎉 No national holidays this week!", empty.Title())
}

func TestRenderElement(t *testing.T) {
	var buf bytes.Buffer
	n := sampleNotice()
	n.Holidays[0].Name = "<script>alert(1)</script>"

	require.NoError(t, RenderElement(&buf, n, false))
	out := buf.String()

	assert.Contains(t, out, `id="holiday-reminder-banner"`)
	assert.Contains(t, out, `aria-label="Close"`)
	assert.Contains(t, out, "Tuesday, 20 October")
	assert.NotContains(t, out, "<script>")
	assert.Equal(t, 1, strings.Count(out, ElementID))
}

func TestRenderPage_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPage(&buf, nil, false))
	assert.NotContains(t, buf.String(), `id="holiday-reminder-banner"`)
	assert.Contains(t, buf.String(), "<!doctype html>")
	assert.Contains(t, buf.String(), `"/ws"`)
}

func TestRenderPage_WithBanner(t *testing.T) {
	var buf bytes.Buffer
	n := sampleNotice()
	require.NoError(t, RenderPage(&buf, &n, true))

	out := buf.String()
	assert.Contains(t, out, `id="holiday-reminder-banner"`)
	assert.Contains(t, out, "opacity:0")
	assert.Contains(t, out, "Dussehra")
}
