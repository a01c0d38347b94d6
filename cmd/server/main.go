package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"draftline/internal/canonical"
	"draftline/internal/identity"
	"draftline/internal/lineage"
	lineagehandler "draftline/internal/lineage/handler"
	"draftline/internal/pipeline"
	pipelinehandler "draftline/internal/pipeline/handler"
	pipelinemetrics "draftline/internal/pipeline/metrics"
	"draftline/internal/platform/config"
	"draftline/internal/platform/httpserver"
	"draftline/internal/platform/kafka/consumer"
	"draftline/internal/platform/kafka/producer"
	"draftline/internal/platform/logger"
	platformmetrics "draftline/internal/platform/metrics"
	"draftline/internal/platform/migrations"
	platformredis "draftline/internal/platform/redis"
	"draftline/internal/quality"
	qualityhandler "draftline/internal/quality/handler"
	qualitymetrics "draftline/internal/quality/metrics"
	"draftline/internal/reconcile"
	reconcilehandler "draftline/internal/reconcile/handler"
	reconcilemetrics "draftline/internal/reconcile/metrics"
	"draftline/internal/snapshot"
	snapshothandler "draftline/internal/snapshot/handler"
	snapshotmetrics "draftline/internal/snapshot/metrics"
	"draftline/internal/staging"
	"draftline/internal/transform"
	transformmetrics "draftline/internal/transform/metrics"
	httptransport "draftline/internal/transport/http"
)

// main wires storage, background workers, and the HTTP surface. Business
// logic lives in the internal feature packages; everything here is
// assembly and lifecycle.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	probes := map[string]httptransport.HealthProbe{}

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = openPostgres(ctx, cfg.Postgres)
		if err != nil {
			fatal(log, "postgres setup failed", err)
		}
		defer db.Close()
		probes["postgres"] = db.PingContext
	} else {
		log.Warn("no postgres dsn configured, running on in-memory stores")
	}

	st := newStores(db)

	var cache identity.NativeIDCache
	if cfg.Redis.URL != "" {
		rc, err := platformredis.New(cfg.Redis)
		if err != nil {
			fatal(log, "redis setup failed", err)
		}
		defer rc.Close()
		cache = identity.NewRedisCache(rc)
		probes["redis"] = rc.Health
	}

	recorder := lineage.NewRecorder(st.lineage)
	matcher := identity.NewMatcher(st.prospects, cache, cfg.Matcher, log)
	registry := transform.NewRegistry(
		transform.NewNFLTransformer(),
		transform.NewESPNTransformer(),
		transform.NewCBSTransformer(),
	)
	processor := transform.NewProcessor(registry, matcher, st.sourceValues, recorder,
		transformmetrics.New(), log, cfg.Pipeline.Parallelism)
	engine := reconcile.NewEngine(st.sourceValues, st.resolvedValues, st.conflicts, recorder,
		cfg.Tolerances, reconcilemetrics.New(), log)
	validator := quality.NewValidator(st.prospects, st.sourceValues, recorder, log)
	qualitySvc := quality.NewService(validator, st.prospects, st.sourceValues,
		st.reports, st.qualityMetrics, log, qualitymetrics.New())

	activeBlobs, err := snapshot.NewFSBlobStore(cfg.Snapshot.Dir)
	if err != nil {
		fatal(log, "snapshot store setup failed", err)
	}
	archiveBlobs, err := snapshot.NewFSBlobStore(cfg.Snapshot.ArchiveDir)
	if err != nil {
		fatal(log, "snapshot archive setup failed", err)
	}
	snapMgr := snapshot.NewManager(st.prospects, st.resolvedValues, st.snapshots,
		activeBlobs, archiveBlobs, cfg.Snapshot, log, snapshotmetrics.New())

	orchestrator := pipeline.NewOrchestrator(st.staged, st.prospects, processor, engine,
		qualitySvc, snapMgr, cfg.Pipeline, log, pipelinemetrics.New())

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	if len(cfg.Kafka.Brokers) > 0 {
		prod, err := producer.New(cfg.Kafka.Brokers)
		if err != nil {
			fatal(log, "kafka producer setup failed", err)
		}
		defer prod.Close()

		topics := append(append([]string{}, cfg.Kafka.StagingTopics...), cfg.Kafka.LineageTopic)
		if err := prod.EnsureTopics(ctx, 1, topics...); err != nil {
			fatal(log, "kafka topic setup failed", err)
		}

		cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup,
			cfg.Kafka.StagingTopics, staging.NewIntakeHandler(st.staged, log), log)
		if err != nil {
			fatal(log, "kafka consumer setup failed", err)
		}
		defer cons.Close()
		go func() {
			if err := cons.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("intake consumer stopped", "error", err)
			}
		}()

		// The outbox lives in Postgres; without a database there is
		// nothing for the relay to drain.
		if db != nil {
			relay := lineage.NewOutboxRelay(db,
				lineage.NewPublisher(prod, cfg.Kafka.LineageTopic), log, time.Second, 100)
			go func() {
				if err := relay.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("outbox relay stopped", "error", err)
				}
			}()
		}
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Lineage:        lineagehandler.New(recorder, log),
		Conflicts:      reconcilehandler.New(engine, log),
		Quality:        qualityhandler.New(qualitySvc, log),
		Snapshots:      snapshothandler.New(snapMgr, log),
		Pipeline:       pipelinehandler.New(orchestrator, log),
		OperatorJWTKey: cfg.Server.OperatorJWTKey,
		Logger:         log,
		Probes:         probes,
		Metrics:        platformmetrics.New(),
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting draftline", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(log, "server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal(log, "graceful shutdown failed", err)
	}
	log.Info("shutdown complete")
}

func openPostgres(ctx context.Context, cfg config.Postgres) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// stores groups one implementation of every persistence interface so the
// wiring above reads the same with or without a database.
type stores struct {
	prospects      canonical.Store
	sourceValues   canonical.SourceValueStore
	resolvedValues canonical.ResolvedValueStore
	staged         staging.Store
	lineage        lineage.Store
	conflicts      reconcile.Store
	reports        quality.ReportStore
	qualityMetrics quality.MetricStore
	snapshots      snapshot.MetadataStore
}

func newStores(db *sql.DB) stores {
	if db == nil {
		prospects := canonical.NewInMemoryStore()
		return stores{
			prospects:      prospects,
			sourceValues:   canonical.NewInMemorySourceValueStore(prospects),
			resolvedValues: canonical.NewInMemoryResolvedValueStore(),
			staged:         staging.NewInMemoryStore(),
			lineage:        lineage.NewInMemoryStore(),
			conflicts:      reconcile.NewInMemoryStore(),
			reports:        quality.NewInMemoryReportStore(),
			qualityMetrics: quality.NewInMemoryMetricStore(),
			snapshots:      snapshot.NewInMemoryMetadataStore(),
		}
	}
	return stores{
		prospects:      canonical.NewPostgresStore(db),
		sourceValues:   canonical.NewPostgresSourceValueStore(db),
		resolvedValues: canonical.NewPostgresResolvedValueStore(db),
		staged:         staging.NewPostgresStore(db),
		lineage:        lineage.NewPostgresStore(db),
		conflicts:      reconcile.NewPostgresStore(db),
		reports:        quality.NewPostgresReportStore(db),
		qualityMetrics: quality.NewPostgresMetricStore(db),
		snapshots:      snapshot.NewPostgresMetadataStore(db),
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
