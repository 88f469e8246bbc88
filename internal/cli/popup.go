package cli

import (
	"context"

	"github.com/spf13/cobra"

	"holidayd/internal/banner"
	"holidayd/internal/clock"
	"holidayd/internal/config"
	"holidayd/internal/messaging"
	"holidayd/internal/reminder"
	"holidayd/internal/store"
)

var popupCmd = LeafCommand{
	Use:   "popup",
	Short: "Show this week's holidays",
	BoolFlags: []BoolFlag{
		{Name: "offline", Usage: "look up directly instead of asking the running daemon"},
	},
	StrFlags: []StringFlag{
		{Name: "region", Usage: "country code for --offline (default: config region)"},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		offline, _ := cmd.Flags().GetBool("offline")
		region, _ := cmd.Flags().GetString("region")

		fetch := daemonPopup(newAPIClient(cfg))
		if offline {
			fetch = offlinePopup(cfg, region)
		}
		return runPopup(cmd, fetch)
	},
}.Build()

type popupFunc func(ctx context.Context) (reminder.PopupView, error)

func daemonPopup(c *apiClient) popupFunc {
	return func(ctx context.Context) (reminder.PopupView, error) {
		var v reminder.PopupView
		err := c.message(ctx, messaging.ActionGetHolidays, nil, &v)
		return v, err
	}
}

// offlinePopup builds a throwaway service; nothing is persisted.
func offlinePopup(cfg *config.Config, region string) popupFunc {
	return func(ctx context.Context) (reminder.PopupView, error) {
		if region == "" {
			region = cfg.Region
		}
		c := clock.Real{Loc: cfg.Location()}
		p := banner.NewPresenter(banner.NewMemorySurface(), c, cfg.Banner.Durations())
		svc := reminder.New(buildSource(cfg), store.NewMemory(), c, p, nil, reminder.Options{
			TargetSite:    cfg.TargetSite,
			DefaultRegion: region,
		})
		return svc.Popup(ctx), nil
	}
}

func runPopup(cmd *cobra.Command, fetch popupFunc) error {
	v, err := fetch(cmd.Context())
	if err != nil {
		return err
	}
	renderPopup(cmd.OutOrStdout(), v)
	return nil
}
