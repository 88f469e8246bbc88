package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"holidayd/internal/messaging"
	"holidayd/internal/reminder"
)

var testBannerCmd = LeafCommand{
	Use:   "test-banner",
	Short: "Show a test banner on the connected target page",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runTestBanner(cmd, newAPIClient(cfg), cfg.TargetSite)
	},
}.Build()

// runTestBanner asks the daemon for a test banner. With no page to show it
// on, the user gets an alert rather than an error.
func runTestBanner(cmd *cobra.Command, c *apiClient, site string) error {
	err := c.message(cmd.Context(), messaging.ActionTestBanner, nil, nil)
	w := cmd.OutOrStdout()

	var ae *apiError
	switch {
	case err == nil:
		_, _ = fmt.Fprintln(w, Primary("Test banner shown"))
		return nil
	case errors.As(err, &ae) && ae.Status == http.StatusConflict:
		_, _ = fmt.Fprintln(w, Warning(ae.Message))
		return nil
	case errors.Is(err, errUnreachable):
		_, _ = fmt.Fprintln(w, Warning(reminder.NoReceiverAlert(site)))
		return nil
	default:
		return err
	}
}
