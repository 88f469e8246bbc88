package holiday

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "holidayd/internal/log"
	"holidayd/internal/model"
)

// DefaultBaseURL is the public Nager.Date API.
const DefaultBaseURL = "https://date.nager.at"

// maxBodyBytes caps how much of a response is read. A full year of holidays
// for one country is a few kilobytes.
const maxBodyBytes = 1 << 20

// cacheEntry holds HTTP cache metadata for a single lookup URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NagerRemote queries GET {base}/api/v3/PublicHolidays/{year}/{region}.
//
// When cacheDir is set, validated bodies are kept on disk and revalidated
// with If-None-Match / If-Modified-Since. Only a 304 reuses the cached
// body; every other failure is returned to the caller.
type NagerRemote struct {
	client   HTTPClient
	baseURL  string
	cacheDir string
	loc      *time.Location
}

// nagerRecord is the subset of the API's PublicHolidayV3Dto we use.
type nagerRecord struct {
	Date      string `json:"date"`
	LocalName string `json:"localName"`
	Name      string `json:"name"`
}

func NewNagerRemote(client HTTPClient, baseURL, cacheDir string, loc *time.Location) *NagerRemote {
	if client == nil {
		client = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if loc == nil {
		loc = time.Local
	}
	return &NagerRemote{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		cacheDir: cacheDir,
		loc:      loc,
	}
}

// URL returns the lookup URL for year and region.
func (n *NagerRemote) URL(year int, region string) string {
	return fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", n.baseURL, year, url.PathEscape(strings.ToUpper(region)))
}

func (n *NagerRemote) Fetch(ctx context.Context, year int, region string) (FetchResult, error) {
	lookupURL := n.URL(year, region)

	var (
		meta       cacheEntry
		cachedBody []byte
		cachePath  string
	)
	if n.cacheDir != "" {
		cachePath = cachePathForURL(n.cacheDir, lookupURL)
		meta, _ = loadCacheMeta(cachePath)
		cachedBody, _ = loadCacheBody(cachePath)
	}

	fromCache := func(cause error) (FetchResult, error) {
		if len(cachedBody) == 0 {
			return FetchResult{}, cause
		}
		holidays, err := decodeNager(cachedBody, year, n.loc)
		if err != nil {
			return FetchResult{}, fmt.Errorf("cached body unusable: %w", err)
		}
		appLog.Debug("holiday lookup using cached body", "url", lookupURL, "cause", cause)
		return FetchResult{Holidays: holidays, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("holiday fetch start", "url", lookupURL)

	resp, err := n.client.Do(req)
	if err != nil {
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	// Only a 304 revalidates the cache; any other failure leaves the
	// caller on the fallback list.
	switch {
	case resp.StatusCode == http.StatusNotModified:
		return fromCache(ErrNotModified)

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return FetchResult{}, fmt.Errorf("holiday: unexpected status %s", resp.Status)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return FetchResult{}, fmt.Errorf("%w: content-type %q", ErrNotJSON, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return FetchResult{}, err
	}

	holidays, err := decodeNager(body, year, n.loc)
	if err != nil {
		return FetchResult{}, err
	}

	if cachePath != "" {
		newMeta := cacheEntry{
			URL:          lookupURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Error("holiday cache save failed", err, "url", lookupURL)
		}
	}

	appLog.Info("holiday fetch success", "url", lookupURL, "status", resp.StatusCode, "count", len(holidays))
	return FetchResult{Holidays: holidays}, nil
}

// decodeNager validates an API body: non-blank, not "null", a JSON array
// with at least one element, and every record a dated holiday in year.
func decodeNager(body []byte, year int, loc *time.Location) ([]model.Holiday, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, ErrEmptyBody
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: not an array", ErrNotJSON)
	}

	var records []nagerRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	if len(records) == 0 {
		return nil, ErrNoHolidays
	}

	out := make([]model.Holiday, 0, len(records))
	for i, rec := range records {
		h, err := recordToHoliday(rec, year, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: index %d: %v", ErrBadRecord, i, err)
		}
		out = append(out, h)
	}
	return out, nil
}

func recordToHoliday(rec nagerRecord, year int, loc *time.Location) (model.Holiday, error) {
	if strings.TrimSpace(rec.Name) == "" && strings.TrimSpace(rec.LocalName) == "" {
		return model.Holiday{}, errors.New("missing name")
	}
	d, err := model.ParseDate(rec.Date, loc)
	if err != nil {
		return model.Holiday{}, err
	}
	if d.Year() != year {
		return model.Holiday{}, fmt.Errorf("date %s outside year %d", rec.Date, year)
	}
	return model.Holiday{Date: d, Name: rec.Name, LocalName: rec.LocalName}, nil
}

func cachePathForURL(cacheDir, u string) string {
	sum := sha256.Sum256([]byte(u))
	// Use first 16 hex chars as directory name.
	return filepath.Join(cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return err
	}

	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}
