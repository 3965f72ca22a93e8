// Command coupon-import bulk loads coupon definitions from gzip-compressed
// JSON-lines files. Codes that occur more than once across the batch are
// rejected, every other definition is validated and upserted by code.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/coupon-engine/internal/repository"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		capacity    uint
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz coupon files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "bloom-capacity", 10_000_000, "expected number of codes per file")
	flag.BoolVar(&dryRun, "dry-run", false, "validate and report without writing to the database")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, capacity, dryRun); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, capacity uint, dryRun bool) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list data files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}
	slices.Sort(files)

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	indexes, err := indexFiles(ctx, files, capacity)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: counting candidate codes")

	dupes, err := findDuplicates(ctx, files, indexes)
	if err != nil {
		return errors.Wrap(err, "find duplicate codes")
	}

	slog.Info("duplicate codes found", slog.Int("count", len(dupes)))

	var store upserter = discard{}
	if !dryRun {
		slog.Info("connecting to database")

		pool, err := repository.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		if err := repository.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		store = repository.NewCouponRepository(pool)
	}

	slog.Info("pass 3: importing coupons", slog.Bool("dry_run", dryRun))

	st, err := importFiles(ctx, files, dupes, store)
	if err != nil {
		return errors.Wrap(err, "import coupons")
	}

	slog.Info("import summary",
		slog.Int("imported", st.imported),
		slog.Int("duplicates", st.duplicates),
		slog.Int("invalid", st.invalid),
	)
	return nil
}
