package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"saun/internal/bootstrap"
	"saun/internal/domain"
	"saun/internal/search"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		maxItems int
		market   string
	)
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Look up the top shopping result for each query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			agg := search.NewAggregator(search.NewCache(nil), bootstrap.NewSerpAPI(cfg), search.Options{
				LookupTimeout: cfg.SearchLookupTimeout,
				Logger:        logger,
			})
			ctx := cmd.Context()
			if market = strings.TrimSpace(market); market != "" {
				ctx = search.WithMarket(ctx, market)
			}
			results, err := agg.BatchSearch(ctx, args, maxItems, cfg.SearchMaxConcurrency)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, results, func() ([]string, [][]string) {
				return searchTable(results)
			})
		},
	}
	cmd.Flags().IntVar(&maxItems, "max-items", 10, "Maximum number of distinct queries")
	cmd.Flags().StringVar(&market, "market", "", "ISO country code to localize results")
	return cmd
}

func searchTable(results []domain.QueryResult) ([]string, [][]string) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		title, price, source := "-", "-", "-"
		if r.Item != nil {
			title, price, source = r.Item.Title, orDash(r.Item.Price), orDash(r.Item.Source)
		}
		if r.Error != "" {
			title = "error: " + r.Error
		}
		rows = append(rows, []string{r.Query, truncate(title, 48), price, source, fmt.Sprintf("%t", r.Cached)})
	}
	return []string{"Query", "Top result", "Price", "Source", "Cached"}, rows
}
