package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-warehouse-ops/internal/audit"
	"github.com/ariefcatur/go-warehouse-ops/internal/config"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	kafkax "github.com/ariefcatur/go-warehouse-ops/internal/kafka"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/packages"
	"github.com/ariefcatur/go-warehouse-ops/internal/postgres"
	"github.com/ariefcatur/go-warehouse-ops/internal/redisx"
	"github.com/ariefcatur/go-warehouse-ops/internal/worker"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log, err := logx.New(cfg.LogEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 4)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	trail := audit.NewRepo(db)
	if err := trail.Migrate(ctx); err != nil {
		log.Fatal("audit migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for the package events MarkError emits
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 256, log)
	// Outlives ctx; Close flushes it after the consumer has stopped.
	prod.Start(context.Background())
	em := &kafkax.Emitter{Producer: prod, Service: cfg.ServiceName + "-worker"}

	// The worker has no session; it acts as the service account.
	crm := espo.NewClient(cfg.EspoBaseURL, cfg.EspoTimeout,
		espo.Static{Username: cfg.EspoUsername, Password: cfg.EspoPassword}, log)

	w := &worker.Worker{
		Packages: packages.NewService(crm, "", em, log),
		Audit:    trail,
		Dedup:    worker.RedisDedup{RDB: rdb, TTL: redisx.TTLDedup},
		Log:      log,
	}

	topics := worker.Topics()
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, topics, cfg.WorkerConcurrency, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("worker consumer started",
			zap.String("group", cfg.WorkerGroup),
			zap.Strings("topics", topics),
			zap.Int("workers", cfg.WorkerConcurrency))
		if err := cons.Start(ctx, w.Handle); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down worker")
	cancel()
	<-done
	prod.Close()
	prod.WaitClosed()
}
