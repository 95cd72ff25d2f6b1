package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"veritasor/internal/attestation"
	"veritasor/internal/bond/handler"
	"veritasor/internal/bond/service"
	"veritasor/internal/bond/store"
	jwttoken "veritasor/internal/jwt_token"
	"veritasor/internal/platform/config"
	"veritasor/internal/platform/httpserver"
	"veritasor/internal/platform/logger"
	"veritasor/internal/platform/metrics"
	platformredis "veritasor/internal/platform/redis"
	"veritasor/internal/treasury"
	"veritasor/pkg/domain"
	"veritasor/pkg/platform/audit/publisher"
	kafkasink "veritasor/pkg/platform/audit/publishers/kafka"
	auditmemory "veritasor/pkg/platform/audit/store/memory"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store: durable when POSTGRES_URL is set, in-memory otherwise.
	var bondStore store.Store
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		bondStore = pg
		log.Info("using postgres bond store")
	} else {
		bondStore = store.NewInMemory()
		log.Warn("using in-memory bond store, data will not survive restarts")
	}

	// Attestation client, with an optional Redis read-through cache.
	var attClient attestation.Client
	if cfg.AttestationURL != "" {
		attClient = attestation.NewHTTPClient(cfg.AttestationURL)
	} else {
		attClient = attestation.NewInMemoryClient()
		log.Warn("no attestation service configured, redemptions will find no attestations")
	}
	if cfg.RedisURL != "" {
		rdb, err := platformredis.New(cfg.Redis())
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		if err := rdb.Health(ctx); err != nil {
			log.Error("redis health check failed", "error", err)
			os.Exit(1)
		}
		attClient = attestation.NewCachedClient(attClient, rdb.Client, log)
		log.Info("attestation cache enabled")
	}

	// Treasury: external transfer service, or the in-memory ledger for dev.
	var tokens treasury.TokenClient
	if cfg.TreasuryURL != "" {
		tokens = treasury.NewHTTPClient(cfg.TreasuryURL)
	} else {
		tokens = treasury.NewInMemoryLedger()
		log.Warn("no treasury service configured, using in-memory ledger")
	}

	// Audit: always persisted to the store, optionally mirrored to Kafka.
	auditOpts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(1024),
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := kafkasink.NewSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditOpts = append(auditOpts, publisher.WithSink(sink))
		log.Info("kafka audit sink enabled", "topic", cfg.AuditTopic)
	}
	auditor := publisher.NewPublisher(auditmemory.NewInMemoryStore(), auditOpts...)
	defer auditor.Close()

	m := metrics.New()
	svc, err := service.New(bondStore, attClient, tokens,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(auditor),
	)
	if err != nil {
		log.Error("failed to build bond service", "error", err)
		os.Exit(1)
	}

	if cfg.AdminSubject != "" {
		if err := svc.Initialize(ctx, domain.Identity(cfg.AdminSubject)); err != nil {
			// Already-initialized is the normal restart path.
			log.Info("admin initialization skipped", "reason", err.Error())
		} else {
			log.Info("admin registered", "admin", cfg.AdminSubject)
		}
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "veritasor", "veritasor")

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handler.New(svc, log, jwtService).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("bond service listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
