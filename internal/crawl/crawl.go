// Package crawl drives the daily pipeline: fetch every chain, write the
// canonical CSVs, optionally reconcile into the database, then pack the day
// into a ZIP.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/price-crawler/internal/archive"
	"github.com/kosarica/price-crawler/internal/chains"
	"github.com/kosarica/price-crawler/internal/csvio"
	"github.com/kosarica/price-crawler/internal/database"
	"github.com/kosarica/price-crawler/internal/model"
)

// Options configures one pipeline run.
type Options struct {
	Root     string
	Date     time.Time
	Chains   []string // empty means all registered chains
	Registry *chains.Registry
	DB       *database.DB // nil skips reconciliation
	Parallel int          // max chains fetched at once; <= 1 is sequential
}

// Result is the per-chain outcome of a run. A chain that failed carries its
// error and zero counts; failures never cancel other chains.
type Result struct {
	Chain    string
	Elapsed  time.Duration
	Stores   int
	Products int // distinct product ids
	Prices   int // price observations
	Err      error
}

// Run crawls all requested chains for the date, writes their CSVs under
// root/<date>/<chain>/ and returns the path of the finished ZIP. When a DB
// is configured each successful chain is reconciled right after its CSVs
// are written; reconciliation failures are contained per chain.
func Run(ctx context.Context, opts Options) (string, []Result, error) {
	return run(ctx, opts, nil)
}

// RunFromCSV is the replay variant: instead of fetching, each chain is read
// back from csvDir/<date>/<chain>/. Chains with no input directory are
// skipped.
func RunFromCSV(ctx context.Context, opts Options, csvDir string) (string, []Result, error) {
	day := opts.Date.Format("2006-01-02")
	dateDir := filepath.Join(csvDir, day)
	reader := func(ctx context.Context, slug string) ([]model.Store, error) {
		chainDir := filepath.Join(dateDir, slug)
		stores, err := csvio.ReadChain(chainDir, slug)
		if errors.Is(err, csvio.ErrChainDirNotFound) {
			log.Info().Str("chain", slug).Str("dir", chainDir).Msg("No CSV input for chain, skipping")
			return nil, nil
		}
		return stores, err
	}
	return run(ctx, opts, reader)
}

type fetchFunc func(ctx context.Context, slug string) ([]model.Store, error)

func run(ctx context.Context, opts Options, fetch fetchFunc) (string, []Result, error) {
	slugs, err := resolveChains(opts)
	if err != nil {
		return "", nil, err
	}

	day := opts.Date.Format("2006-01-02")
	dateDir := filepath.Join(opts.Root, day)
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create %s: %w", dateDir, err)
	}

	if fetch == nil {
		fetch = func(ctx context.Context, slug string) ([]model.Store, error) {
			source, ok := opts.Registry.Get(slug)
			if !ok {
				return nil, fmt.Errorf("unknown chain %q", slug)
			}
			return source.Fetch(ctx, opts.Date)
		}
	}

	results := make([]Result, len(slugs))

	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	// Reconciliation stays single-writer even when fetching in parallel.
	var dbMu sync.Mutex

	for i, slug := range slugs {
		i, slug := i, slug
		g.Go(func() error {
			results[i] = processChain(gctx, opts, dateDir, slug, fetch, &dbMu)
			return nil
		})
	}
	g.Wait()

	if err := archive.CopyNotice(dateDir); err != nil {
		return "", results, err
	}
	zipPath := filepath.Join(opts.Root, day+".zip")
	if err := archive.Create(dateDir, zipPath); err != nil {
		return "", results, err
	}

	log.Info().Str("date", day).Str("zip", zipPath).Msg("Crawl complete")
	return zipPath, results, nil
}

func processChain(ctx context.Context, opts Options, dateDir, slug string, fetch fetchFunc, dbMu *sync.Mutex) Result {
	start := time.Now()
	result := Result{Chain: slug}

	stores, err := fetch(ctx, slug)
	if err != nil {
		result.Err = err
		result.Elapsed = time.Since(start)
		log.Error().Str("chain", slug).Err(err).Msg("Chain crawl failed")
		return result
	}
	if len(stores) == 0 {
		result.Elapsed = time.Since(start)
		log.Warn().Str("chain", slug).Msg("Chain produced no stores")
		return result
	}

	chainDir := filepath.Join(dateDir, slug)
	if err := csvio.WriteChain(chainDir, stores); err != nil {
		result.Err = err
		result.Elapsed = time.Since(start)
		log.Error().Str("chain", slug).Err(err).Msg("CSV write failed")
		return result
	}

	result.Stores = len(stores)
	distinct := make(map[string]bool)
	for _, store := range stores {
		result.Prices += len(store.Items)
		for _, p := range store.Items {
			distinct[p.ProductID] = true
		}
	}
	result.Products = len(distinct)

	if opts.DB != nil {
		dbMu.Lock()
		_, err := opts.DB.Reconcile(ctx, opts.Date, slug, stores)
		dbMu.Unlock()
		if err != nil {
			// The chain's CSVs are already on disk; only the DB write is lost.
			log.Error().Str("chain", slug).Err(err).Msg("Reconciliation failed")
		}
	}

	result.Elapsed = time.Since(start)
	log.Info().
		Str("chain", slug).
		Dur("elapsed", result.Elapsed).
		Int("stores", result.Stores).
		Int("products", result.Products).
		Int("prices", result.Prices).
		Msg("Chain done")
	return result
}

func resolveChains(opts Options) ([]string, error) {
	if len(opts.Chains) == 0 {
		return opts.Registry.Slugs(), nil
	}
	for _, slug := range opts.Chains {
		if _, ok := opts.Registry.Get(slug); !ok {
			return nil, fmt.Errorf("unknown chain %q", slug)
		}
	}
	return opts.Chains, nil
}
