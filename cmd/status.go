package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cakahlul/em-cockpit/internal/alert"
	"github.com/cakahlul/em-cockpit/internal/incidents"
	"github.com/cakahlul/em-cockpit/internal/prs"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the combined team status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	level := alert.Neutral
	var panels []string

	if agg, err := a.prAggregator(); err == nil {
		summary, err := agg.Summary(ctx)
		if err != nil {
			// Serve the last cached summary when the fetch fails.
			var stale prs.Summary
			if a.cache.GetStale(ctx, prs.SummaryCacheKey, &stale) {
				fmt.Println(warnStyle.Render("PR fetch failed, showing cached data: " + err.Error()))
				summary = stale
			} else {
				return fmt.Errorf("fetching pr summary: %w", err)
			}
		}
		level = alert.Combine(level, summary.Level)
		panels = append(panels, renderPRSummary(summary))
	} else {
		panels = append(panels, panelStyle.Render(labelStyle.Render(err.Error())))
	}

	if mon, err := a.incidentMonitor(); err == nil {
		summary, err := mon.Summary(ctx)
		if err != nil {
			var stale incidents.Summary
			if a.cache.GetStale(ctx, incidents.SummaryCacheKey, &stale) {
				fmt.Println(warnStyle.Render("Incident fetch failed, showing cached data: " + err.Error()))
				summary = stale
			} else {
				return fmt.Errorf("fetching incident summary: %w", err)
			}
		}
		level = alert.Combine(level, summary.Level)
		panels = append(panels, renderIncidentSummary(summary))
	} else {
		panels = append(panels, panelStyle.Render(labelStyle.Render(err.Error())))
	}

	fmt.Printf("%s %s\n\n", titleStyle.Render("em-cockpit"), levelBadge(level))
	fmt.Println(lipgloss.JoinVertical(lipgloss.Left, panels...))
	return nil
}
