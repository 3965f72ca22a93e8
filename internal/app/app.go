// Package app wires the coupon API together and runs it until shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/handler"
	"github.com/xenking/coupon-engine/internal/repository"
	"github.com/xenking/coupon-engine/pkg/health"
	"github.com/xenking/coupon-engine/pkg/httpmiddleware"
)

const serviceName = "coupon-api"

// catalogSource is where coupons come from: PostgreSQL when configured,
// otherwise a read-only YAML file.
type catalogSource struct {
	catalog coupon.Catalog
	// store is nil for the file catalog, which disables the admin API.
	store *repository.CouponRepository
	ping  health.CheckFunc
	close func()
}

func openCatalog(ctx context.Context, lg *zap.Logger, cfg *Config) (*catalogSource, error) {
	if cfg.DatabaseURL == "" {
		fc, err := repository.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return nil, errors.Wrap(err, "load catalog file")
		}
		lg.Info("Serving coupons from file",
			zap.String("path", cfg.CatalogFile),
			zap.Int("coupons", len(fc.All())),
		)
		return &catalogSource{catalog: fc, close: func() {}}, nil
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := repository.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	repo := repository.NewCouponRepository(pool)
	return &catalogSource{
		catalog: repo,
		store:   repo,
		ping:    pool.Ping,
		close:   pool.Close,
	}, nil
}

// routes holds what newRouter mounts.
type routes struct {
	lg         *zap.Logger
	health     *health.Health
	api        *handler.Handler
	rateLimit  httpmiddleware.Middleware
	instrument httpmiddleware.Middleware
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	if rt.instrument != nil {
		r.Use(rt.instrument, httpmiddleware.Labeler())
	}
	r.Use(httpmiddleware.LogRequests())

	r.Get("/livez", rt.health.LiveEndpoint)
	r.Get("/readyz", rt.health.ReadyEndpoint)
	r.Group(func(r chi.Router) {
		r.Use(rt.rateLimit)
		rt.api.Register(r)
	})

	return httpmiddleware.Wrap(r,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(rt.lg),
		httpmiddleware.Recovery(),
	)
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	src, err := openCatalog(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer src.close()

	catalog := repository.NewCachedCatalog(src.catalog, cfg.CatalogTTL)
	svc := coupon.NewService(catalog)

	opts := handler.Options{
		OnChange: catalog.Invalidate,
		Meter:    m.MeterProvider().Meter(serviceName),
	}
	if src.store != nil {
		opts.Store = src.store
	}
	h, err := handler.New(svc, opts)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	healthSvc := health.New(lg)
	healthSvc.AddLivenessCheck("goroutines", health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", health.GCMaxPauseCheck(time.Second))
	if src.ping != nil {
		healthSvc.AddReadinessCheck("postgres", src.ping, health.WithTimeout(5*time.Second))
	}
	healthSvc.AddReadinessCheck("catalog", catalog.Check, health.WithTimeout(5*time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: newRouter(routes{
			lg:     lg,
			health: healthSvc,
			api:    h,
			rateLimit: httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				RPS:   cfg.RateLimit.RPS,
				Burst: cfg.RateLimit.Burst,
			}),
			instrument: httpmiddleware.Instrument(serviceName, m),
		}),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening",
		zap.String("addr", cfg.Addr),
		zap.Bool("admin_api", src.store != nil),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
