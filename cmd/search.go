package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cakahlul/em-cockpit/internal/search"
)

var flagSearchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tickets by key or text",
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

		query := search.Query{Text: strings.Join(args, " "), Limit: flagSearchLimit}
		start := time.Now()
		results, err := svc.Search(ctx, query)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}

		if len(results) == 0 {
			fmt.Printf("No results for %q.\n", query.Text)
			return nil
		}
		for i, r := range results {
			fmt.Println(renderResult(i, r))
		}
		fmt.Println(labelStyle.Render(fmt.Sprintf("\n%d result(s) in %s", len(results), time.Since(start).Round(time.Millisecond))))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 0, "maximum results (default 10)")
}
