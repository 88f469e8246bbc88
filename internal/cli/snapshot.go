package cli

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"holidayd/internal/capture"
	"holidayd/internal/config"
)

var snapshotCmd = LeafCommand{
	Use:   "snapshot",
	Short: "Screenshot the live banner page with headless Chromium",
	StrFlags: []StringFlag{
		{Name: "out", Usage: "PNG output path", Default: "banner.png"},
	},
	BoolFlags: []BoolFlag{
		{Name: "element", Usage: "capture only the banner element"},
	},
	IntFlags: []IntFlag{
		{Name: "width", Usage: "viewport width", Default: capture.DefaultWidth},
		{Name: "height", Usage: "viewport height", Default: capture.DefaultHeight},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		element, _ := cmd.Flags().GetBool("element")
		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")

		opts := capture.Options{
			URL:        bannerPageURL(cfg),
			OutputPath: out,
			Width:      width,
			Height:     height,
			Element:    element,
			Timeout:    20 * time.Second,
		}
		if err := capture.CaptureBannerPNG(cmd.Context(), opts); err != nil {
			return fmt.Errorf("%w (is a banner showing?)", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", Primary("wrote"), out)
		return nil
	},
}.Build()

// bannerPageURL points at the daemon's /banner page, carrying basic auth
// credentials when the config has a plain password.
func bannerPageURL(cfg *config.Config) string {
	u := url.URL{Scheme: "http", Host: cfg.Listen, Path: "/banner"}
	c := newAPIClient(cfg)
	if c.user != "" && c.password != "" {
		u.User = url.UserPassword(c.user, c.password)
	}
	return u.String()
}
