package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// envConfig overrides the default config path; it may come from a .env
// file in the working directory.
const envConfig = "HOLIDAYD_CONFIG"

var rootCmd = &cobra.Command{
	Use:           "holidayd",
	Short:         "Weekly public-holiday reminder daemon",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is the normal case.
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to config file (default $"+envConfig+" or /etc/holidayd/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(popupCmd)
	rootCmd.AddCommand(visitCmd)
	rootCmd.AddCommand(testBannerCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(exportICSCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(versionCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
