package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cakahlul/em-cockpit/internal/alert"
	"github.com/cakahlul/em-cockpit/internal/incidents"
	"github.com/cakahlul/em-cockpit/internal/prs"
	"github.com/cakahlul/em-cockpit/internal/search"
	"github.com/cakahlul/em-cockpit/internal/tracker"
)

var (
	colorDim    = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

func levelBadge(l alert.Level) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(l.ColorHex())).
		Padding(0, 1).
		Render(l.String())
}

func renderPRSummary(s prs.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render("Pull Requests"), levelBadge(s.Level))
	fmt.Fprintf(&b, "%s %d open, %d pending your review\n",
		labelStyle.Render("Queue:"), s.TotalOpen, s.PendingReview)
	if s.HasStale {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render(
			fmt.Sprintf("Stale: %d (oldest idle %dh)", s.StaleCount, s.OldestStaleHrs)))
	}
	for repo, n := range s.ByRepository {
		fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render(repo+":"), n)
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderIncidentSummary(s incidents.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render("Incidents"), levelBadge(s.Level))
	if s.TotalActive == 0 {
		fmt.Fprintf(&b, "%s\n", labelStyle.Render("No active incidents."))
	} else {
		fmt.Fprintf(&b, "%s %d active (critical %d, high %d, medium %d, low %d)\n",
			labelStyle.Render("Active:"), s.TotalActive,
			s.CriticalCount, s.HighCount, s.MediumCount, s.LowCount)
		fmt.Fprintf(&b, "%s %dm\n", labelStyle.Render("Longest running:"), s.LongestMinutes)
		for svc, n := range s.ByService {
			fmt.Fprintf(&b, "  %s %d\n", labelStyle.Render(svc+":"), n)
		}
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderPR(pr tracker.PullRequest, staleAfter time.Duration) string {
	line := fmt.Sprintf("%s %s  %s",
		titleStyle.Render("#"+pr.ID),
		pr.Title,
		labelStyle.Render(fmt.Sprintf("%s by %s, idle %s", pr.Repository, pr.Author.Name, idleFor(pr.UpdatedAt))))
	if time.Since(pr.UpdatedAt) > staleAfter {
		line += " " + warnStyle.Render("[stale]")
	}
	return line
}

func renderIncident(in tracker.Incident) string {
	sev := lipgloss.NewStyle().Bold(true)
	switch in.Severity {
	case tracker.SeverityCritical:
		sev = sev.Foreground(lipgloss.Color("#EF4444"))
	case tracker.SeverityHigh:
		sev = sev.Foreground(lipgloss.Color("#F59E0B"))
	default:
		sev = sev.Foreground(colorDim)
	}
	line := fmt.Sprintf("%s %s  %s",
		sev.Render("["+in.Severity.String()+"]"),
		in.Description,
		labelStyle.Render(fmt.Sprintf("%s, started %s ago", in.Service, idleFor(in.StartedAt))))
	if !in.Active() {
		line += " " + labelStyle.Render("(resolved)")
	}
	return line
}

func renderResult(i int, r search.Result) string {
	line := fmt.Sprintf("%2d. %s %s", i+1, titleStyle.Render(r.ID), r.Title)
	if r.Subtitle != "" {
		line += "\n    " + labelStyle.Render(r.Subtitle)
	}
	return line
}

func idleFor(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
