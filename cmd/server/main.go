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
	"golang.org/x/sync/errgroup"

	"parktrust/internal/allocation"
	"parktrust/internal/audit"
	auditkafka "parktrust/internal/audit/store/kafka"
	auditmemory "parktrust/internal/audit/store/memory"
	auditpostgres "parktrust/internal/audit/store/postgres"
	auditredis "parktrust/internal/audit/store/redisstream"
	auditworker "parktrust/internal/audit/worker"
	"parktrust/internal/geometry"
	"parktrust/internal/lot"
	"parktrust/internal/platform/config"
	"parktrust/internal/platform/httpserver"
	"parktrust/internal/platform/logger"
	"parktrust/internal/platform/metrics"
	platformredis "parktrust/internal/platform/redis"
	"parktrust/internal/reconcile"
	slotstore "parktrust/internal/slot/store"
	ticketservice "parktrust/internal/ticket/service"
	ticketstore "parktrust/internal/ticket/store"
	httptransport "parktrust/internal/transport/http"
)

// main wires stores, the audit pipeline and the three domain services behind
// the HTTP router, and owns the process lifecycle. Business rules live in the
// internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "parktrust: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout := lot.Default()
	if cfg.LayoutPath != "" {
		loaded, err := lot.Load(cfg.LayoutPath)
		if err != nil {
			return fmt.Errorf("load layout: %w", err)
		}
		layout = loaded
	}
	if err := layout.Validate(); err != nil {
		return fmt.Errorf("invalid layout: %w", err)
	}

	geo := geometry.NewIndex()
	layout.Apply(geo)

	var (
		slots   slotstore.Store
		tickets ticketstore.Store
		pool    *pgxpool.Pool
	)
	if cfg.PostgresDSN != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}

		pg := slotstore.NewPostgres(pool)
		if err := pg.Seed(ctx, slotstore.SlotsFromLayout(layout)); err != nil {
			return fmt.Errorf("seed slots: %w", err)
		}
		slots = pg
		tickets = ticketstore.NewPostgres(pool)
		log.Info("using postgres stores")
	} else {
		slots = slotstore.FromLayout(layout)
		tickets = ticketstore.NewInMemory()
		log.Info("using in-memory stores")
	}

	sink, sinkClose, err := buildAuditSink(cfg, pool, log)
	if err != nil {
		return fmt.Errorf("audit sink: %w", err)
	}
	if sinkClose != nil {
		defer sinkClose()
	}
	worker := auditworker.New(sink, cfg.AuditBuffer, log)

	m := metrics.New()

	ledger := ticketservice.NewLedger(tickets, slots,
		ticketservice.WithLogger(log),
		ticketservice.WithAuditEmitter(worker),
		ticketservice.WithMetrics(m),
	)
	engine := allocation.NewEngine(slots, geo, ledger,
		allocation.WithLogger(log),
		allocation.WithAuditEmitter(worker),
		allocation.WithMetrics(m),
		allocation.WithMaxRetries(cfg.AllocationRetries),
	)
	reconciler := reconcile.New(slots,
		reconcile.WithLogger(log),
		reconcile.WithAuditEmitter(worker),
		reconcile.WithMetrics(m),
	)

	handler := httptransport.NewHandler(engine, reconciler, ledger, slots, log)
	router := httptransport.NewRouter(handler, cfg.AdminToken, log)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("audit worker: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting parktrust",
			"addr", cfg.Addr,
			"gates", len(layout.Gates),
			"slots", len(layout.Slots),
			"audit_sink", cfg.AuditSink,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("parktrust stopped")
	return nil
}

// buildAuditSink resolves the configured audit sink. The returned close
// function, when non-nil, must run after the worker has drained.
func buildAuditSink(cfg config.Server, pool *pgxpool.Pool, log *slog.Logger) (audit.Store, func(), error) {
	switch cfg.AuditSink {
	case "memory", "":
		return auditmemory.New(), nil, nil
	case "postgres":
		if pool == nil {
			return nil, nil, fmt.Errorf("postgres audit sink requires PARKTRUST_POSTGRES_DSN")
		}
		return auditpostgres.New(pool), nil, nil
	case "redis":
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, fmt.Errorf("redis audit sink requires PARKTRUST_REDIS_URL")
		}
		return auditredis.New(client.Client, cfg.RedisStream), func() { _ = client.Close() }, nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, nil, fmt.Errorf("kafka audit sink requires PARKTRUST_KAFKA_BROKERS")
		}
		store, err := auditkafka.New(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit sink %q", cfg.AuditSink)
	}
}
