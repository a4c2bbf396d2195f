package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cakahlul/em-cockpit/internal/browser"
	"github.com/cakahlul/em-cockpit/internal/search"
)

var openCmd = &cobra.Command{
	Use:   "open <query>",
	Short: "Open the best-matching ticket in the browser",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		svc, err := a.searchService()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		query := search.Query{Text: strings.Join(args, " "), Limit: 1}
		results, err := svc.Search(ctx, query)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if len(results) == 0 {
			return fmt.Errorf("no results for %q", query.Text)
		}

		top := results[0]
		if top.URL == "" {
			return fmt.Errorf("%s has no URL in the snapshot", top.ID)
		}
		fmt.Printf("Opening %s  %s\n", titleStyle.Render(top.ID), labelStyle.Render(top.URL))
		return browser.Open(top.URL)
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}
