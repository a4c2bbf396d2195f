package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cakahlul/em-cockpit/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "em-cockpit",
	Short: "Engineering status cockpit",
	Long:  "em-cockpit aggregates pull requests, incidents, and tickets from your team's trackers into one status view.",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	versionCmd.Flags().BoolVar(&flagVersionCheck, "check", false, "check for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(prsCmd)
	rootCmd.AddCommand(incidentsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(cacheCmd)
}

var flagVersionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("em-cockpit %s (commit: %s, built: %s)\n", version, commit, date)
		if flagVersionCheck {
			if r := update.Check(context.Background(), version); r != nil {
				fmt.Printf("A newer version is available: %s\n", r.LatestVersion)
			} else {
				fmt.Println("You are up to date.")
			}
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
