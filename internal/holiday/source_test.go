package holiday

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holidayd/internal/model"
)

type stubRemote struct {
	res   FetchResult
	err   error
	delay time.Duration
	calls int
}

func (s *stubRemote) Fetch(ctx context.Context, year int, region string) (FetchResult, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return FetchResult{}, ctx.Err()
		}
	}
	return s.res, s.err
}

// sleepyClient ignores the request context entirely.
type sleepyClient struct {
	delay time.Duration
}

func (c sleepyClient) Do(req *http.Request) (*http.Response, error) {
	time.Sleep(c.delay)
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteString(`[{"date":"2026-01-26","name":"Remote Republic Day","localName":"x"}]`)
	return rec.Result(), nil
}

func TestClampTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, ClampTimeout(0))
	assert.Equal(t, MinTimeout, ClampTimeout(time.Second))
	assert.Equal(t, 4*time.Second, ClampTimeout(4*time.Second))
	assert.Equal(t, MaxTimeout, ClampTimeout(time.Minute))
}

func TestLookup_RemoteReplacesFallback(t *testing.T) {
	remote := &stubRemote{res: FetchResult{Holidays: []model.Holiday{
		{Date: time.Date(2026, 1, 26, 0, 0, 0, 0, ist), Name: "Republic Day"},
	}}}
	src := NewSource(remote, 3*time.Second, ist)

	res := src.Lookup(context.Background(), 2026, "IN")

	assert.Equal(t, OriginRemote, res.Origin)
	assert.NoError(t, res.RemoteErr)
	require.Len(t, res.Holidays, 1)
	assert.Equal(t, "Republic Day", res.Holidays[0].Name)
}

func TestLookup_CacheOrigin(t *testing.T) {
	remote := &stubRemote{res: FetchResult{
		Holidays:  []model.Holiday{{Date: time.Date(2026, 8, 15, 0, 0, 0, 0, ist), Name: "Independence Day"}},
		FromCache: true,
	}}

	res := NewSource(remote, 0, ist).Lookup(context.Background(), 2026, "IN")

	assert.Equal(t, OriginCache, res.Origin)
}

func TestLookup_FailureKeepsFallback(t *testing.T) {
	cases := map[string]*stubRemote{
		"error":        {err: errors.New("connection refused")},
		"empty result": {res: FetchResult{}},
	}
	for name, remote := range cases {
		t.Run(name, func(t *testing.T) {
			res := NewSource(remote, 0, ist).Lookup(context.Background(), 2026, "IN")

			assert.Equal(t, OriginFallback, res.Origin)
			assert.Error(t, res.RemoteErr)
			assert.Equal(t, Fallback("IN", 2026, ist), res.Holidays)
			assert.False(t, res.Unavailable())
		})
	}
}

func TestLookup_NoRemote(t *testing.T) {
	res := NewSource(nil, 0, ist).Lookup(context.Background(), 2026, "IN")
	assert.ErrorIs(t, res.RemoteErr, ErrNoRemote)
	assert.Len(t, res.Holidays, 18)
}

func TestLookup_UnavailableWithoutFallback(t *testing.T) {
	remote := &stubRemote{err: errors.New("dns failure")}
	res := NewSource(remote, 0, time.UTC).Lookup(context.Background(), 2026, "ZZ")

	assert.Empty(t, res.Holidays)
	assert.True(t, res.Unavailable())
}

func TestLookup_TimeoutReturnsFallbackUnmodified(t *testing.T) {
	// A server answering after 4s against a 3s bound. The client ignores
	// the context so only Lookup's own bound can end the wait.
	remote := NewNagerRemote(sleepyClient{delay: 4 * time.Second}, "http://holidays.invalid", "", ist)
	src := NewSource(remote, 3*time.Second, ist)

	started := time.Now()
	res := src.Lookup(context.Background(), 2026, "IN")
	elapsed := time.Since(started)

	assert.Less(t, elapsed, 3900*time.Millisecond)
	assert.GreaterOrEqual(t, elapsed, 2900*time.Millisecond)
	assert.ErrorIs(t, res.RemoteErr, context.DeadlineExceeded)
	assert.Equal(t, OriginFallback, res.Origin)
	assert.Equal(t, Fallback("IN", 2026, ist), res.Holidays)
}

func TestLookup_NeverEmptyWhenFallbackExists(t *testing.T) {
	outcomes := []*stubRemote{
		{err: context.DeadlineExceeded},
		{err: ErrNotJSON},
		{res: FetchResult{Holidays: nil}},
		{res: FetchResult{Holidays: []model.Holiday{{Date: time.Date(2026, 5, 1, 0, 0, 0, 0, ist), Name: "Labour Day"}}}},
	}
	for _, remote := range outcomes {
		res := NewSource(remote, 0, ist).Lookup(context.Background(), 2026, "IN")
		assert.NotEmpty(t, res.Holidays)
	}
}

type countingRemote struct {
	calls atomic.Int32
	delay time.Duration
}

func (c *countingRemote) Fetch(ctx context.Context, year int, region string) (FetchResult, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	return FetchResult{Holidays: []model.Holiday{{Date: time.Date(year, 1, 26, 0, 0, 0, 0, ist), Name: "Republic Day"}}}, nil
}

func TestLookup_ConcurrentCallsShareRemote(t *testing.T) {
	remote := &countingRemote{delay: 500 * time.Millisecond}
	src := NewSource(remote, 0, ist)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := src.Lookup(context.Background(), 2026, "IN")
			assert.Equal(t, OriginRemote, res.Origin)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), remote.calls.Load())
}

// slowRemote honours ctx and signals once its first fetch is under way.
type slowRemote struct {
	calls   atomic.Int32
	started chan struct{}
	once    sync.Once
	delay   time.Duration
}

func (r *slowRemote) Fetch(ctx context.Context, year int, region string) (FetchResult, error) {
	r.calls.Add(1)
	r.once.Do(func() { close(r.started) })
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return FetchResult{}, ctx.Err()
	}
	return FetchResult{Holidays: []model.Holiday{{Date: time.Date(year, 1, 26, 0, 0, 0, 0, ist), Name: "Republic Day"}}}, nil
}

func TestLookup_JoinedCallerSurvivesFirstCallerCancel(t *testing.T) {
	remote := &slowRemote{started: make(chan struct{}), delay: 400 * time.Millisecond}
	src := NewSource(remote, 0, ist)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan Result, 1)
	go func() { first <- src.Lookup(firstCtx, 2026, "IN") }()
	<-remote.started

	second := make(chan Result, 1)
	go func() { second <- src.Lookup(context.Background(), 2026, "IN") }()
	time.Sleep(50 * time.Millisecond)
	cancelFirst()

	res := <-first
	assert.Equal(t, OriginFallback, res.Origin)
	assert.ErrorIs(t, res.RemoteErr, context.Canceled)

	res = <-second
	assert.Equal(t, OriginRemote, res.Origin)
	assert.NoError(t, res.RemoteErr)
	assert.Equal(t, int32(1), remote.calls.Load())
}
