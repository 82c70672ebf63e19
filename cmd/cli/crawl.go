package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosarica/price-crawler/config"
	"github.com/kosarica/price-crawler/internal/chains"
	"github.com/kosarica/price-crawler/internal/crawl"
	"github.com/kosarica/price-crawler/internal/database"
)

var (
	crawlDate       string
	crawlChains     string
	crawlSaveDB     bool
	crawlDropDB     bool
	crawlFromCSVDir string
	crawlListChains bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [output_root]",
	Short: "Crawl all chains for one date and build the daily archive",
	Long: `Crawls each chain's price publication for the given date, writes the
canonical stores/products/prices CSVs per chain under <output_root>/<date>/,
packages the day into <output_root>/<date>.zip and optionally reconciles
the prices into the database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlDate, "date", "d", "", "date to crawl, YYYY-MM-DD (default today)")
	crawlCmd.Flags().StringVarP(&crawlChains, "chains", "c", "", "comma-separated chain slugs (default all)")
	crawlCmd.Flags().BoolVarP(&crawlSaveDB, "save-db", "s", false, "reconcile crawled prices into the database")
	crawlCmd.Flags().BoolVar(&crawlDropDB, "dropdb", false, "drop and recreate the database schema first")
	crawlCmd.Flags().StringVar(&crawlFromCSVDir, "from-csv-dir", "", "replay from existing CSVs instead of crawling")
	crawlCmd.Flags().BoolVarP(&crawlListChains, "list-chains", "l", false, "list registered chains and exit")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	registry := chains.Default()

	if crawlListChains {
		if crawlFromCSVDir != "" {
			return fmt.Errorf("--from-csv-dir cannot be combined with --list-chains")
		}
		for _, slug := range registry.Slugs() {
			fmt.Println(slug)
		}
		return nil
	}

	if crawlFromCSVDir != "" {
		if len(args) == 0 {
			return fmt.Errorf("--from-csv-dir requires an output_root argument")
		}
		if crawlDropDB {
			return fmt.Errorf("--from-csv-dir cannot be combined with --dropdb")
		}
	}

	date := time.Now()
	if crawlDate != "" {
		parsed, err := time.Parse("2006-01-02", crawlDate)
		if err != nil {
			return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", crawlDate)
		}
		date = parsed
	}

	var db *database.DB
	if crawlSaveDB || crawlDropDB {
		var err error
		db, err = connectDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if crawlDropDB {
			if err := db.DropSchema(cmd.Context()); err != nil {
				return err
			}
		}
		if err := db.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
	}

	// --dropdb without an output root resets the schema and stops.
	if len(args) == 0 {
		if crawlDropDB {
			return nil
		}
		return fmt.Errorf("output_root argument is required")
	}

	opts := crawl.Options{
		Root:     args[0],
		Date:     date,
		Chains:   splitChains(crawlChains),
		Registry: registry,
		Parallel: parallelism(),
	}
	if crawlSaveDB {
		opts.DB = db
	}

	var err error
	if crawlFromCSVDir != "" {
		_, _, err = crawl.RunFromCSV(cmd.Context(), opts, crawlFromCSVDir)
	} else {
		_, _, err = crawl.Run(cmd.Context(), opts)
	}
	return err
}

func connectDB(cmd *cobra.Command) (*database.DB, error) {
	url := config.GetDatabaseURL()
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL not set but database writes were requested")
	}
	return database.Connect(cmd.Context(), url)
}

func splitChains(s string) []string {
	if s == "" {
		return nil
	}
	var slugs []string
	for _, slug := range strings.Split(s, ",") {
		if slug = strings.TrimSpace(slug); slug != "" {
			slugs = append(slugs, slug)
		}
	}
	return slugs
}

func parallelism() int {
	if cfg != nil && cfg.Crawl.Parallel > 1 {
		return cfg.Crawl.Parallel
	}
	return 1
}
