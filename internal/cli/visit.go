package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"holidayd/internal/reminder"
)

var visitCmd = LeafCommand{
	Use:   "visit <url>",
	Short: "Report a page visit to the daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runVisit(cmd, newAPIClient(cfg), args[0])
	},
}.Build()

func runVisit(cmd *cobra.Command, c *apiClient, pageURL string) error {
	var out reminder.VisitOutcome
	if err := c.do(cmd.Context(), http.MethodPost, "/api/visit", map[string]string{"url": pageURL}, &out); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !out.Shown {
		_, _ = fmt.Fprintf(w, "%s %s\n", Silent("skipped:"), out.Skipped)
		return nil
	}
	_, _ = fmt.Fprintf(w, "%s %s banner (%d holiday(s))\n", Primary("shown:"), out.Kind, out.Count)
	return nil
}
