package cli

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"holidayd/internal/scheduler"
)

var jobsCmd = GroupCommand{
	Use:   "jobs",
	Short: "Inspect or trigger the daemon's scheduled jobs",
	Subcommands: []*cobra.Command{
		jobsListCmd,
		jobsRunCmd,
	},
}.Build()

var jobsListCmd = LeafCommand{
	Use:   "list",
	Short: "List scheduled jobs and their next run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runJobsList(cmd, newAPIClient(cfg))
	},
}.Build()

var jobsRunCmd = LeafCommand{
	Use:   "run <name>",
	Short: "Run a job now, e.g. sweep",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runJobsRun(cmd, newAPIClient(cfg), args[0])
	},
}.Build()

func runJobsList(cmd *cobra.Command, c *apiClient) error {
	var entries []scheduler.Entry
	if err := c.do(cmd.Context(), http.MethodGet, "/api/jobs", nil, &entries); err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, Silent("no jobs scheduled"))
		return nil
	}
	for _, e := range entries {
		next := "-"
		if !e.Next.IsZero() {
			next = e.Next.Format("2006-01-02 15:04 MST")
		}
		_, _ = fmt.Fprintf(w, "%-10s %-14s %s\n", Primary(e.Name), e.Spec, Silent("next: "+next))
	}
	return nil
}

func runJobsRun(cmd *cobra.Command, c *apiClient, name string) error {
	if err := c.do(cmd.Context(), http.MethodPost, "/api/jobs/"+url.PathEscape(name), nil, nil); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", Primary("ran:"), name)
	return nil
}
