package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"holidayd/internal/config"
	"holidayd/internal/holiday"
	appLog "holidayd/internal/log"
)

func configPath(cmd *cobra.Command) string {
	p, _ := cmd.Flags().GetString("config")
	if p == "" {
		p = os.Getenv(envConfig)
	}
	if p == "" {
		p = config.DefaultPath
	}
	return p
}

// loadConfig reads the config file and applies its log level. A first run
// that cannot write the default file still gets the defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath(cmd)
	cfg, err := config.Load(path)
	if err != nil {
		if cfg == nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		appLog.Warn("could not write default config; using defaults", "path", path, "error", err)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func buildRemote(cfg *config.Config) holiday.Remote {
	loc := cfg.Location()
	if cfg.Source == config.SourceICS {
		return holiday.NewICSRemote(nil, cfg.ICSURL, loc)
	}
	return holiday.NewNagerRemote(nil, cfg.API.BaseURL, cfg.CacheDir, loc)
}

func buildSource(cfg *config.Config) *holiday.Source {
	return holiday.NewSource(buildRemote(cfg), cfg.API.Timeout, cfg.Location())
}
