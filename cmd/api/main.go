package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/audit"
	"github.com/ariefcatur/go-warehouse-ops/internal/catalog"
	"github.com/ariefcatur/go-warehouse-ops/internal/config"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/httpx"
	"github.com/ariefcatur/go-warehouse-ops/internal/inventory"
	kafkax "github.com/ariefcatur/go-warehouse-ops/internal/kafka"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/orders"
	"github.com/ariefcatur/go-warehouse-ops/internal/packages"
	"github.com/ariefcatur/go-warehouse-ops/internal/postgres"
	"github.com/ariefcatur/go-warehouse-ops/internal/production"
	"github.com/ariefcatur/go-warehouse-ops/internal/purchasing"
	"github.com/ariefcatur/go-warehouse-ops/internal/redisx"
	"github.com/ariefcatur/go-warehouse-ops/internal/reports"
	"github.com/ariefcatur/go-warehouse-ops/internal/session"
	"github.com/ariefcatur/go-warehouse-ops/internal/users"
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

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Fatal("redis ping", zap.Error(err))
	}

	// Audit trail is optional
	var trail audit.Store
	if cfg.PostgresDSN != "" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, 4)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		repo := audit.NewRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal("audit migrate", zap.Error(err))
		}
		trail = repo
	}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)
	em := &kafkax.Emitter{Producer: prod, Service: cfg.ServiceName}

	// CRM: the session's credentials, or the service account when configured
	crm := espo.NewClient(cfg.EspoBaseURL, cfg.EspoTimeout, espo.FromContext{
		Fallback: espo.Static{Username: cfg.EspoUsername, Password: cfg.EspoPassword},
	}, log)
	downloadBase := strings.TrimSuffix(cfg.EspoBaseURL, "/api/v1")
	est := reports.Estimates{
		CostRatio:           cfg.Report.CostRatio,
		ShippingFeePerOrder: cfg.Report.ShippingFeePerOrder,
		DefaultCurrency:     cfg.Report.DefaultCurrency,
	}

	router := httpx.NewRouter(httpx.Deps{
		Sessions:   session.NewManager(session.NewRedisStore(rdb), crm, cfg.SessionTTL, log),
		Orders:     orders.NewService(crm, log),
		Reports:    reports.NewService(crm, est, log),
		Packages:   packages.NewService(crm, downloadBase, em, log),
		Inventory:  inventory.NewService(crm, em, log),
		Purchasing: purchasing.NewService(crm, em, log),
		Catalog:    catalog.NewService(crm, log),
		Production: production.NewService(crm, log),
		Users:      users.NewService(crm, downloadBase, log),
		Audit:      trail,
		Log:        log,

		ReportChannels: cfg.Report.Channels,
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("crm", cfg.EspoBaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	// Handlers still running after the timeout drop their events instead of blocking.
	prod.Close()
	cancel()
	prod.WaitClosed()
}
