package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vmarkevych/storefront/internal/accounts"
	"github.com/vmarkevych/storefront/internal/auth"
	"github.com/vmarkevych/storefront/internal/checkout"
	"github.com/vmarkevych/storefront/internal/config"
	"github.com/vmarkevych/storefront/internal/db"
	httpx "github.com/vmarkevych/storefront/internal/http"
	"github.com/vmarkevych/storefront/internal/http/handlers"
	"github.com/vmarkevych/storefront/internal/jobs"
	"github.com/vmarkevych/storefront/internal/observability"
	"github.com/vmarkevych/storefront/internal/queue/redisclient"
	"github.com/vmarkevych/storefront/internal/repo/memory"
	"github.com/vmarkevych/storefront/internal/repo/postgres"
)

const serviceName = "storefront-api"

type stores struct {
	users   accounts.UserStore
	catalog httpx.Catalog
	carts   checkout.Store
	pool    *pgxpool.Pool
}

func openStores(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return stores{
			users:   memory.NewUsersRepo(),
			catalog: memory.NewProductsRepo(),
			carts:   memory.NewCartsRepo(),
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DB.URL(), 10)
	if err != nil {
		return stores{}, fmt.Errorf("db connect: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("db migrate: %w", err)
	}

	return stores{
		users:   postgres.NewUsersRepo(pool, prom),
		catalog: postgres.NewProductsRepo(pool, prom),
		carts:   postgres.NewCartsRepo(pool, prom),
		pool:    pool,
	}, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, serviceName)
	slog.SetDefault(log)

	if cfg.TracingEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: serviceName,
			Env:         cfg.Env,
			Endpoint:    cfg.OTLPEndpoint,
			SampleRatio: cfg.TraceSampling,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	st, err := openStores(ctx, cfg, prom, log)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	checks := map[string]handlers.Pinger{}
	if st.pool != nil {
		defer st.pool.Close()
		checks["postgres"] = st.pool.Ping
	}

	accountsSvc := accounts.NewService(st.users)
	if created, err := accountsSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Error("bootstrap admin failed", "err", err)
		os.Exit(1)
	} else if created {
		log.Info("bootstrap admin created", "email", cfg.Admin.Email)
	}

	sessions, err := auth.NewManager(auth.Config{
		Secret:             cfg.Auth.JWTSecret,
		Issuer:             cfg.Auth.Issuer,
		CustomerAccessTTL:  cfg.Auth.CustomerAccessTTL,
		AdminAccessTTL:     cfg.Auth.AdminAccessTTL,
		RefreshTTL:         cfg.Auth.RefreshTTL,
		MaxSessionLifetime: cfg.Auth.MaxSessionLifetime,
	})
	if err != nil {
		log.Error("session authority init failed", "err", err)
		os.Exit(1)
	}

	deps := httpx.Deps{
		Accounts: accountsSvc,
		Sessions: sessions,
		Catalog:  st.catalog,
		Cart:     checkout.NewEngine(st.catalog, st.carts),
		Prom:     prom,
		Checks:   checks,
	}

	// order confirmations are optional; without redis checkout still works
	if cfg.Redis.Addr != "" {
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis unreachable", "err", err)
			os.Exit(1)
		}
		defer rc.Close()

		deps.Publisher = jobs.NewPublisher(redisclient.NewQueue(rc, cfg.Redis.QueueKey), cfg.Worker.MaxAttempts)
		checks["redis"] = rc.Ping
	} else {
		log.Info("REDIS_ADDR not set, order confirmations disabled")
	}

	router := httpx.NewRouter(log, cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
