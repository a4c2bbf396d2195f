package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cakahlul/em-cockpit/internal/incidents"
	"github.com/cakahlul/em-cockpit/internal/tracker"
)

var (
	flagIncAll         bool
	flagIncMinSeverity string
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List current incidents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		mon, err := a.incidentMonitor()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		filter := incidents.Filter{IncludeResolved: flagIncAll}
		if flagIncMinSeverity != "" {
			sev, err := parseSeverity(flagIncMinSeverity)
			if err != nil {
				return err
			}
			filter.MinSeverity = &sev
		}

		list, err := mon.Incidents(ctx, filter)
		if err != nil {
			return fmt.Errorf("fetching incidents: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No incidents.")
			return nil
		}
		for _, in := range list {
			fmt.Println(renderIncident(in))
		}
		return nil
	},
}

func init() {
	incidentsCmd.Flags().BoolVar(&flagIncAll, "all", false, "include resolved incidents")
	incidentsCmd.Flags().StringVar(&flagIncMinSeverity, "min-severity", "", "lowest severity to show (low, medium, high, critical)")
}

func parseSeverity(s string) (tracker.Severity, error) {
	switch strings.ToLower(s) {
	case "low":
		return tracker.SeverityLow, nil
	case "medium":
		return tracker.SeverityMedium, nil
	case "high":
		return tracker.SeverityHigh, nil
	case "critical":
		return tracker.SeverityCritical, nil
	default:
		return 0, fmt.Errorf("unknown severity %q (valid: low, medium, high, critical)", s)
	}
}
