package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"lifedrop/internal/donor"
	"lifedrop/internal/ledger"
	"lifedrop/internal/lifecycle"
	"lifedrop/internal/matching"
	"lifedrop/internal/matching/cache"
	"lifedrop/internal/notify"
	"lifedrop/internal/platform/config"
	"lifedrop/internal/platform/httpserver"
	"lifedrop/internal/platform/logger"
	"lifedrop/internal/platform/metrics"
	platformredis "lifedrop/internal/platform/redis"
	"lifedrop/internal/request"
	"lifedrop/internal/storage"
	"lifedrop/internal/storage/memory"
	"lifedrop/internal/storage/postgres"
	httptransport "lifedrop/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		donorStore        storage.DonorStore
		requestStore      storage.RequestStore
		notificationStore storage.NotificationStore
		ledgerStore       storage.LedgerStore
	)
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("apply schema", "error", err)
			os.Exit(1)
		}
		donorStore = postgres.NewDonorStore(db)
		requestStore = postgres.NewRequestStore(db)
		notificationStore = postgres.NewNotificationStore(db)
		ledgerStore = postgres.NewLedgerStore(db)
		log.Info("using postgres storage")
	} else {
		donorStore = memory.NewDonorStore()
		requestStore = memory.NewRequestStore()
		notificationStore = memory.NewNotificationStore()
		ledgerStore = memory.NewLedgerStore()
		log.Info("using in-memory storage")
	}

	m := metrics.New()

	var dispatcher lifecycle.Dispatcher = notify.Discard{}
	var worker *notify.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		worker = notify.NewWorker(publisher, cfg.Notify.Buffer, log)
		dispatcher = worker
		log.Info("notifications via kafka", "brokers", cfg.Kafka.Brokers)
	} else {
		log.Info("notifications disabled")
	}

	ledgerSvc := ledger.New(ledgerStore, ledger.WithLogger(log), ledger.WithMetrics(m))
	intakeSvc := request.New(requestStore, notificationStore, donorStore, ledgerSvc,
		request.WithLogger(log), request.WithMetrics(m))
	donorSvc := donor.New(donorStore, donor.WithLogger(log))

	matchingOpts := []matching.Option{matching.WithLogger(log), matching.WithMetrics(m)}
	lifecycleOpts := []lifecycle.Option{lifecycle.WithLogger(log), lifecycle.WithMetrics(m)}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		rankCache := cache.NewRedisRankCache(redisClient.Client, cfg.Redis.RankTTL)
		matchingOpts = append(matchingOpts, matching.WithCache(rankCache))
		lifecycleOpts = append(lifecycleOpts, lifecycle.WithRankInvalidator(rankCache))
		log.Info("rank cache enabled", "ttl", cfg.Redis.RankTTL)
	}

	matchingSvc := matching.New(requestStore, donorStore, matchingOpts...)
	lifecycleSvc := lifecycle.New(donorStore, requestStore, notificationStore, ledgerSvc, dispatcher, lifecycleOpts...)

	handler := httptransport.NewHandler(intakeSvc, matchingSvc, lifecycleSvc, ledgerSvc, donorSvc, log)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler, log))

	g, ctx := errgroup.WithContext(ctx)
	if worker != nil {
		g.Go(func() error {
			err := worker.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		log.Info("starting lifedrop", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
