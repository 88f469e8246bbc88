package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"holidayd/internal/banner"
	"holidayd/internal/holiday"
	appLog "holidayd/internal/log"
)

// Default values used by DefaultConfig and Normalize.
const (
	DefaultPath       = "/etc/holidayd/config.yaml"
	DefaultListen     = "127.0.0.1:8787"
	DefaultTimezone   = "Asia/Kolkata"
	DefaultRegion     = "IN"
	DefaultTargetSite = "timesheet.com"
	DefaultStatePath  = "/var/lib/holidayd/state.json"
	DefaultCacheDir   = "/var/lib/holidayd/cache"
	DefaultSweepCron  = "0 3 * * *"

	SourceNager = "nager"
	SourceICS   = "ics"
)

var regionPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidRegion reports whether s is a two-letter upper-case region code.
func ValidRegion(s string) bool {
	return regionPattern.MatchString(s)
}

// APIConfig configures the remote holiday lookup.
type APIConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Timeout bounds one lookup; clamped to 3-5s.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// BannerConfig holds the banner lifetimes.
type BannerConfig struct {
	Holidays time.Duration `yaml:"holidays" json:"holidays"`
	Empty    time.Duration `yaml:"empty" json:"empty"`
	Error    time.Duration `yaml:"error" json:"error"`
	Fade     time.Duration `yaml:"fade" json:"fade"`
}

// Durations converts to the presenter's form.
func (b BannerConfig) Durations() banner.Durations {
	return banner.Durations{
		Holidays: b.Holidays,
		Empty:    b.Empty,
		Error:    b.Error,
		Fade:     b.Fade,
	}.Normalize()
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
// PasswordHash, when set, is an argon2id hash and takes precedence over
// Password.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password,omitempty" json:"-"`
	PasswordHash string `yaml:"password_hash,omitempty" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API and banner page.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone that defines "today" and the week.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is kept for config compatibility; only "monday" is supported.
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Region is the default two-letter country code. The stored "country"
	// setting overrides it at runtime.
	Region string `yaml:"region" json:"region"`

	// TargetSite is the host (and its subdomains) on which page visits
	// trigger the banner.
	TargetSite string `yaml:"target_site" json:"target_site"`

	// Source selects the remote: "nager" (JSON API) or "ics" (calendar feed).
	Source string `yaml:"source" json:"source"`

	API APIConfig `yaml:"api" json:"api"`

	// ICSURL is the feed template for Source "ics"; {year} and {region}
	// are substituted.
	ICSURL string `yaml:"ics_url,omitempty" json:"ics_url,omitempty"`

	StatePath string `yaml:"state_path" json:"state_path"`
	CacheDir  string `yaml:"cache_dir" json:"cache_dir"`

	// SweepCron schedules removal of stale shown flags.
	SweepCron string `yaml:"sweep" json:"sweep"`

	// PrefetchCron, if set, warms the remote cache on a schedule.
	PrefetchCron string `yaml:"prefetch,omitempty" json:"prefetch,omitempty"`

	Banner BannerConfig `yaml:"banner" json:"banner"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	d := banner.DefaultDurations()
	return &Config{
		Listen:     DefaultListen,
		Timezone:   DefaultTimezone,
		WeekStart:  "monday",
		Region:     DefaultRegion,
		TargetSite: DefaultTargetSite,
		Source:     SourceNager,
		API: APIConfig{
			BaseURL: holiday.DefaultBaseURL,
			Timeout: holiday.DefaultTimeout,
		},
		StatePath: DefaultStatePath,
		CacheDir:  DefaultCacheDir,
		SweepCron: DefaultSweepCron,
		Banner: BannerConfig{
			Holidays: d.Holidays,
			Empty:    d.Empty,
			Error:    d.Error,
			Fade:     d.Fade,
		},
		LogLevel:  "info",
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}

	switch strings.ToLower(c.WeekStart) {
	case "monday", "":
		c.WeekStart = "monday"
	default:
		appLog.Warn("unsupported week_start; using monday", "week_start", c.WeekStart)
		c.WeekStart = "monday"
	}

	c.Region = strings.ToUpper(strings.TrimSpace(c.Region))
	if !ValidRegion(c.Region) {
		if c.Region != "" {
			appLog.Warn("invalid region; using default", "region", c.Region, "default", DefaultRegion)
		}
		c.Region = DefaultRegion
	}

	c.TargetSite = strings.ToLower(strings.TrimSpace(c.TargetSite))
	if c.TargetSite == "" {
		c.TargetSite = DefaultTargetSite
	}

	switch c.Source {
	case SourceNager:
	case SourceICS:
		if c.ICSURL == "" {
			appLog.Warn("source ics without ics_url; using nager")
			c.Source = SourceNager
		}
	default:
		c.Source = SourceNager
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = holiday.DefaultBaseURL
	}
	c.API.Timeout = holiday.ClampTimeout(c.API.Timeout)

	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.SweepCron == "" {
		c.SweepCron = DefaultSweepCron
	}

	d := c.Banner.Durations()
	c.Banner = BannerConfig{Holidays: d.Holidays, Empty: d.Empty, Error: d.Error, Fade: d.Fade}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".holidayd-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
