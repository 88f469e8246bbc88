// Package holiday supplies public-holiday lists for a region and year,
// preferring a remote lookup and falling back to built-in tables.
package holiday

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	appLog "holidayd/internal/log"
	"holidayd/internal/model"
)

const (
	// DefaultTimeout bounds a single remote lookup.
	DefaultTimeout = 3 * time.Second
	MinTimeout     = 3 * time.Second
	MaxTimeout     = 5 * time.Second
)

var (
	ErrNoRemote    = errors.New("holiday: no remote configured")
	ErrEmptyBody   = errors.New("holiday: empty response body")
	ErrNotJSON     = errors.New("holiday: response is not JSON")
	ErrNoHolidays  = errors.New("holiday: response contains no holidays")
	ErrBadRecord   = errors.New("holiday: malformed holiday record")
	ErrNotModified = errors.New("holiday: 304 without cached body")
)

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Remote fetches holidays for one region and year from somewhere off-box.
type Remote interface {
	Fetch(ctx context.Context, year int, region string) (FetchResult, error)
}

// FetchResult is a validated, non-empty remote answer.
type FetchResult struct {
	Holidays  []model.Holiday
	FromCache bool
}

// Origin tells where a Result's holidays came from.
type Origin string

const (
	OriginRemote   Origin = "remote"
	OriginCache    Origin = "cache"
	OriginFallback Origin = "fallback"
)

// Result is what Lookup returns. RemoteErr is informational only.
type Result struct {
	Year      int
	Region    string
	Holidays  []model.Holiday
	Origin    Origin
	RemoteErr error
}

// Unavailable reports the "nothing to show, nothing to fall back on" case.
func (r Result) Unavailable() bool {
	return len(r.Holidays) == 0 && r.RemoteErr != nil
}

// Source combines a Remote with the static fallback tables. Concurrent
// lookups for the same region and year share one remote call.
type Source struct {
	Remote   Remote
	Timeout  time.Duration
	Location *time.Location

	group singleflight.Group
}

// NewSource returns a Source with the timeout clamped to [MinTimeout, MaxTimeout].
func NewSource(remote Remote, timeout time.Duration, loc *time.Location) *Source {
	return &Source{Remote: remote, Timeout: ClampTimeout(timeout), Location: loc}
}

func ClampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	default:
		return d
	}
}

type fetchOutcome struct {
	res FetchResult
	err error
}

// Lookup never fails. The fallback list is loaded first and replaced only
// by a validated remote answer that arrives within the timeout.
func (s *Source) Lookup(ctx context.Context, year int, region string) Result {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}

	result := Result{
		Year:     year,
		Region:   region,
		Holidays: Fallback(region, year, loc),
		Origin:   OriginFallback,
	}

	if s.Remote == nil {
		result.RemoteErr = ErrNoRemote
		return result
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// The shared fetch is detached from this caller's cancellation so
	// callers joining it are not failed by the first one going away.
	sharedCtx := context.WithoutCancel(ctx)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The remote runs on its own goroutine so a client that ignores ctx
	// still cannot hold the caller past the timeout.
	done := make(chan fetchOutcome, 1)
	key := strings.ToUpper(region) + "/" + strconv.Itoa(year)
	go func() {
		v, err, _ := s.group.Do(key, func() (any, error) {
			fetchCtx, fetchCancel := context.WithTimeout(sharedCtx, timeout)
			defer fetchCancel()
			return s.Remote.Fetch(fetchCtx, year, region)
		})
		res, _ := v.(FetchResult)
		done <- fetchOutcome{res: res, err: err}
	}()

	var out fetchOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if out.err == nil && len(out.res.Holidays) == 0 {
		out.err = ErrNoHolidays
	}
	if out.err != nil {
		appLog.Warn("holiday remote lookup failed; using fallback",
			"region", region,
			"year", year,
			"fallback_count", len(result.Holidays),
			"err", out.err,
		)
		result.RemoteErr = out.err
		return result
	}

	result.Holidays = out.res.Holidays
	result.Origin = OriginRemote
	if out.res.FromCache {
		result.Origin = OriginCache
	}
	appLog.Debug("holiday remote lookup succeeded", "region", region, "year", year, "count", len(result.Holidays), "origin", result.Origin)
	return result
}
