package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosarica/price-crawler/internal/chains"
	"github.com/kosarica/price-crawler/internal/crawl"
)

var (
	historyStart  string
	historyEnd    string
	historyChains string
)

var historyCmd = &cobra.Command{
	Use:   "history <output_root>",
	Short: "Backfill daily archives over a date range",
	Long: `Crawls every day from the start date to the end date inclusive, skipping
days already present under <output_root>. The database is never touched;
this produces CSV snapshots and ZIPs only.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyStart, "start", "s", "", "first date, YYYY-MM-DD (default 2025-05-02)")
	historyCmd.Flags().StringVarP(&historyEnd, "end", "e", "", "last date, YYYY-MM-DD (default today)")
	historyCmd.Flags().StringVarP(&historyChains, "chains", "c", "", "comma-separated chain slugs (default all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	start := crawl.LawEffectiveDate
	if historyStart != "" {
		parsed, err := time.Parse("2006-01-02", historyStart)
		if err != nil {
			return fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", historyStart)
		}
		start = parsed
	}

	end := time.Now()
	if historyEnd != "" {
		parsed, err := time.Parse("2006-01-02", historyEnd)
		if err != nil {
			return fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", historyEnd)
		}
		end = parsed
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	opts := crawl.Options{
		Root:     args[0],
		Chains:   splitChains(historyChains),
		Registry: chains.Default(),
		Parallel: parallelism(),
	}
	return crawl.RunRange(cmd.Context(), opts, start, end)
}
