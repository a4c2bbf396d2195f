package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cakahlul/em-cockpit/internal/event"
	"github.com/cakahlul/em-cockpit/internal/poller"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the background poller until interrupted",
	Long: `Poll the configured trackers on their schedules and print status changes
as they happen. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	cfg := poller.Config{
		PRInterval:       a.cfg.PRPollInterval(),
		IncidentInterval: a.cfg.IncidentPollInterval(),
		CleanupInterval:  poller.DefaultConfig().CleanupInterval,
	}

	prAgg, err := a.prAggregator()
	cfg.PREnabled = err == nil
	if err != nil {
		fmt.Println(warnStyle.Render("PR polling disabled: " + err.Error()))
	}
	mon, err := a.incidentMonitor()
	cfg.IncidentEnabled = err == nil
	if err != nil {
		fmt.Println(warnStyle.Render("Incident polling disabled: " + err.Error()))
	}
	if !cfg.PREnabled && !cfg.IncidentEnabled {
		return fmt.Errorf("nothing to poll: configure snapshot_file or status_feeds")
	}

	bus := event.NewBus()
	bus.Subscribe(printEvent)

	p := poller.New(cfg, bus, prAgg, mon, a.cache)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		return err
	}
	fmt.Println(titleStyle.Render("em-cockpit watch") + labelStyle.Render("  (Ctrl-C to stop)"))

	// Prime the first view instead of waiting a full interval.
	p.RefreshAll(ctx)

	<-ctx.Done()
	p.Stop()

	state := p.State()
	fmt.Printf("\n%s %s\n", labelStyle.Render("Final level:"), levelBadge(state.Level))
	for domain, d := range state.Domains {
		fmt.Printf("%s %d polls, %d consecutive failures\n",
			labelStyle.Render(string(domain)+":"), d.PollCount, d.ConsecutiveFailures)
	}
	return nil
}

func printEvent(e event.Event) {
	switch ev := e.(type) {
	case event.AlertChanged:
		fmt.Printf("%s %s -> %s  %s\n",
			titleStyle.Render("alert"),
			ev.Transition.From, levelBadge(ev.Transition.To),
			labelStyle.Render(ev.Transition.Reason))
	case event.PRDataUpdated:
		fmt.Printf("%s %d open, %d stale, %d pending review\n",
			labelStyle.Render("prs:"), ev.TotalOpen, ev.StaleCount, ev.PendingReview)
	case event.IncidentsUpdated:
		fmt.Printf("%s %d active, %d critical\n",
			labelStyle.Render("incidents:"), ev.ActiveCount, ev.CriticalCount)
	case event.ErrorOccurred:
		fmt.Println(warnStyle.Render(fmt.Sprintf("error [%s]: %s", ev.Source, ev.Message)))
	}
}
