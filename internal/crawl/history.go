package crawl

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// LawEffectiveDate is the first day Croatian chains were required to
// publish price lists; historical backfills start here by default.
var LawEffectiveDate = time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC)

// RunRange backfills all days from start to end inclusive. Days whose date
// directory or ZIP already exist under opts.Root are skipped, so the range
// can be re-run after interruptions. Backfills never touch the database;
// per-day failures are logged and the range continues.
func RunRange(ctx context.Context, opts Options, start, end time.Time) error {
	opts.DB = nil

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}

		date := day.Format("2006-01-02")
		dateDir := filepath.Join(opts.Root, date)
		zipPath := filepath.Join(opts.Root, date+".zip")
		if exists(dateDir) || exists(zipPath) {
			log.Info().Str("date", date).Msg("Already archived, skipping")
			continue
		}

		dayOpts := opts
		dayOpts.Date = day
		if _, _, err := Run(ctx, dayOpts); err != nil {
			log.Error().Str("date", date).Err(err).Msg("Backfill day failed")
		}
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
