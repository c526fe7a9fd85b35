package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/authhub/internal/cache"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	httpx "github.com/geocoder89/authhub/internal/http"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/repo/memory"
	"github.com/geocoder89/authhub/internal/repo/postgres"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// userStore is what the service, the seeder and readiness need from a store.
type userStore interface {
	service.UserStore
	db.SeedStore
	Ping(ctx context.Context) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer := observability.NoopShutdown
	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(ctx, observability.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		shutdownTracer = shutdown
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		if err := shutdownTracer(tctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	hasher := security.NewBcrypt(cfg.BcryptCost)

	store, schema, closeStore, err := openStore(cfg, prom)
	if err != nil {
		return err
	}
	defer closeStore()

	initCtx, cancelInit := context.WithTimeout(ctx, 30*time.Second)
	err = db.NewInitializer(schema, store, hasher, log).Initialize(initCtx, db.DefaultSeeds(cfg)...)
	cancelInit()
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}

	var opts []service.Option
	if cfg.ProfileCacheTTL > 0 {
		profiles, closeCache := openProfileCache(ctx, cfg, log)
		defer closeCache()
		opts = append(opts, service.WithProfileCache(profiles))
	}

	users := service.NewUserService(store, hasher, log, opts...)

	var draining atomic.Bool

	router := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Log:      log,
		Users:    users,
		Ping:     store.Ping,
		Draining: draining.Load,
		Prom:     prom,
		Gatherer: reg,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("server shutting down")
	draining.Store(true)

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")

	return nil
}

// openStore returns the configured store and, for postgres, the schema
// migrator that must run before seeding.
func openStore(cfg config.Config, prom *observability.Prom) (userStore, db.SchemaMigrator, func(), error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.NewUsersRepo(), nil, func() {}, nil

	case "postgres", "":
		pool, err := db.NewPool(cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db connect failed: %w", err)
		}

		migrator, err := db.NewMigrator(cfg.DBURL)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}

		closeFn := func() {
			if err := migrator.Close(); err != nil {
				slog.Warn("migrator close failed", "err", err)
			}
			pool.Close()
		}

		return postgres.NewUsersRepo(pool, prom), migrator, closeFn, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// openProfileCache uses redis when REDIS_ADDR is set and reachable, and an
// in-process cache otherwise.
func openProfileCache(ctx context.Context, cfg config.Config, log *slog.Logger) (service.ProfileCache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryProfiles(cfg.ProfileCacheTTL), func() {}
	}

	rc := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rc.Ping(pctx); err != nil {
		log.Warn("redis unreachable, using in-process profile cache", "addr", cfg.RedisAddr, "err", err)
		_ = rc.Close()
		return cache.NewMemoryProfiles(cfg.ProfileCacheTTL), func() {}
	}

	return cache.NewRedisProfiles(rc, cfg.ProfileCacheTTL, log), func() { _ = rc.Close() }
}
