package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"holidayd/internal/messaging"
	"holidayd/internal/reminder"
)

var settingsCmd = GroupCommand{
	Use:   "settings",
	Short: "Read or change the saved country",
	Subcommands: []*cobra.Command{
		settingsGetCmd,
		settingsSetCmd,
	},
}.Build()

var settingsGetCmd = LeafCommand{
	Use:   "get",
	Short: "Print the saved country",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runSettingsGet(cmd, newAPIClient(cfg))
	},
}.Build()

var settingsSetCmd = LeafCommand{
	Use:   "set <country>",
	Short: "Save a two-letter country code, e.g. IN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runSettingsSet(cmd, newAPIClient(cfg), args[0])
	},
}.Build()

func runSettingsGet(cmd *cobra.Command, c *apiClient) error {
	var s reminder.Settings
	if err := c.message(cmd.Context(), messaging.ActionGetSettings, nil, &s); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", Silent("country:"), Primary(s.Country))
	return nil
}

func runSettingsSet(cmd *cobra.Command, c *apiClient, country string) error {
	var s reminder.Settings
	if err := c.message(cmd.Context(), messaging.ActionSaveSettings, reminder.Settings{Country: country}, &s); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", Primary("saved country:"), s.Country)
	return nil
}
