// Command seed-db loads a YAML coupon catalog into PostgreSQL. Coupons are
// upserted by code, so running it twice leaves one row per code.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/coupon-engine/db"
	"github.com/xenking/coupon-engine/internal/repository"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "file", "", "YAML coupon catalog (defaults to the built-in seed catalog)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func loadCatalog(path string) (*repository.FileCatalog, error) {
	if path == "" {
		slog.Info("using built-in seed catalog")
		return repository.ParseCatalog(db.SeedCatalog)
	}
	slog.Info("reading catalog file", slog.String("path", path))
	return repository.LoadCatalogFile(path)
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	catalog, err := loadCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := repository.NewCouponRepository(pool)
	coupons := catalog.All()
	slog.Info("upserting coupons", slog.Int("count", len(coupons)))

	for _, c := range coupons {
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		slog.Info("upserted coupon",
			slog.String("code", c.Code),
			slog.String("type", string(c.Type())),
			slog.Bool("active", c.Active),
		)
	}

	return nil
}
