package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cakahlul/em-cockpit/internal/prs"
)

var (
	flagPRsStale bool
	flagPRsGroup string
)

var prsCmd = &cobra.Command{
	Use:   "prs",
	Short: "List open pull requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		agg, err := a.prAggregator()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if flagPRsStale {
			stale, err := agg.StalePRs(ctx)
			if err != nil {
				return fmt.Errorf("fetching stale prs: %w", err)
			}
			if len(stale) == 0 {
				fmt.Println("No stale pull requests.")
				return nil
			}
			for _, pr := range stale {
				fmt.Println(renderPR(pr, a.cfg.StaleThresholdDuration()))
			}
			return nil
		}

		open, err := agg.OpenPRs(ctx)
		if err != nil {
			return fmt.Errorf("fetching prs: %w", err)
		}

		if flagPRsGroup != "" {
			criterion, err := parseGroupCriterion(flagPRsGroup)
			if err != nil {
				return err
			}
			for _, g := range agg.GroupBy(open, criterion) {
				fmt.Printf("%s %s\n", titleStyle.Render(g.Label),
					labelStyle.Render(fmt.Sprintf("(%d prs, %d stale)", len(g.PRs), g.StaleCount)))
				for _, pr := range g.PRs {
					fmt.Println("  " + renderPR(pr, a.cfg.StaleThresholdDuration()))
				}
			}
			return nil
		}

		if len(open) == 0 {
			fmt.Println("No open pull requests.")
			return nil
		}
		for _, pr := range open {
			fmt.Println(renderPR(pr, a.cfg.StaleThresholdDuration()))
		}
		return nil
	},
}

func init() {
	prsCmd.Flags().BoolVar(&flagPRsStale, "stale", false, "only show stale pull requests")
	prsCmd.Flags().StringVar(&flagPRsGroup, "group", "", "group by repository, author, or age")
}

func parseGroupCriterion(s string) (prs.GroupCriterion, error) {
	switch s {
	case "repository", "repo":
		return prs.GroupByRepository, nil
	case "author":
		return prs.GroupByAuthor, nil
	case "age":
		return prs.GroupByAge, nil
	default:
		return 0, fmt.Errorf("unknown group %q (valid: repository, author, age)", s)
	}
}
