package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nitesh/news_service/internal/api"
	"github.com/nitesh/news_service/internal/config"
	"github.com/nitesh/news_service/internal/db"
	"github.com/nitesh/news_service/internal/feed"
	"github.com/nitesh/news_service/internal/logger"
	"github.com/nitesh/news_service/internal/reports"
	"github.com/nitesh/news_service/internal/scheduler"
	"github.com/nitesh/news_service/internal/service"
	"github.com/nitesh/news_service/internal/store"
)

type backend interface {
	service.ArticleStore
	service.SourceRegistry
}

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st backend
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		st = store.NewMemoryStore()
	default:
		sqlDB, err := db.Open(ctx, cfg.PostgresURL(), cfg.DBConnectAttempts, 2*time.Second)
		if err != nil {
			log.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer sqlDB.Close()

		// ensure tables exist (run migrations)
		if err := store.RunMigrations(ctx, sqlDB); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		st = store.NewPgStore(sqlDB)
	}

	opts := []service.Option{service.WithLogger(log)}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis ping failed, sweep reports may not be saved", "addr", cfg.RedisAddr, "error", err)
		}
		cancel()
		opts = append(opts, service.WithReports(reports.NewRedisStore(rdb, cfg.ReportTTL)))
	}

	fetcher := feed.NewFetcher(cfg.FetchTimeout, feed.NewHostRateLimiter(cfg.FetchHostInterval))
	svc := service.NewService(st, st, fetcher, opts...)
	sched := scheduler.New(svc, cfg.SweepInterval, cfg.SweepWorkers, log)

	router := api.NewRouter(api.NewHandler(svc, sched), cfg.CORSAllowOrigins)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
