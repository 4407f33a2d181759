package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/movexa/tracking/config"
	"github.com/movexa/tracking/internal/api/webapp"
	"github.com/movexa/tracking/internal/broker/kafka"
	"github.com/movexa/tracking/internal/cache/rediscache"
	"github.com/movexa/tracking/internal/services/shipments"
	"github.com/movexa/tracking/internal/storage/pgshipments"
	"github.com/movexa/tracking/internal/storage/sqliteshipments"
)

type webApp struct {
	ctx    context.Context
	cancel context.CancelFunc

	httpAddr string
	handler  *webapp.Handler
	svc      *shipments.Service

	seedDemo   bool
	closeStore func()
}

func mustBootstrap() *webApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	httpAddr := cfg.Movexa.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	adminUser := cfg.Movexa.AdminUsername
	if adminUser == "" {
		adminUser = "movexa_admin"
	}
	if cfg.Movexa.AdminPassword == "" {
		panic("movexa.admin_password is required")
	}

	opTimeout := time.Duration(cfg.Database.OpTimeoutSeconds) * time.Second
	repo, closeStore := mustOpenStore(cfg.Database, opTimeout)

	viewTTL := time.Duration(cfg.Movexa.ViewTTLSeconds) * time.Second
	if viewTTL <= 0 {
		viewTTL = 10 * time.Minute
	}

	var viewCache *rediscache.RedisCache
	var quoteLimiter webapp.RateLimiter
	if cfg.Redis.Host != "" {
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		viewCache = rediscache.New(redisAddr)
		quoteLimiter = rediscache.NewRateLimiter(redisAddr)
	}

	var publisher shipments.Publisher
	topic := cfg.Kafka.ShipmentUpdatedTopicName
	if cfg.Kafka.Host != "" {
		if topic == "" {
			topic = "shipment.updated"
		}
		publisher = kafka.NewProducer([]string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)})
	}

	var svc *shipments.Service
	if viewCache != nil {
		svc = shipments.New(repo, viewCache, viewTTL, publisher, topic)
	} else {
		svc = shipments.New(repo, nil, 0, publisher, topic)
	}

	quoteLimit := int64(cfg.Movexa.QuoteRateLimitPerMinute)
	if quoteLimit <= 0 {
		quoteLimit = 60
	}

	handler, err := webapp.New(svc, webapp.Options{
		AdminUsername:           adminUser,
		AdminPassword:           cfg.Movexa.AdminPassword,
		QuoteLimiter:            quoteLimiter,
		QuoteRateLimitPerMinute: quoteLimit,
	})
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &webApp{
		ctx:        ctx,
		cancel:     cancel,
		httpAddr:   httpAddr,
		handler:    handler,
		svc:        svc,
		seedDemo:   cfg.Movexa.SeedDemo,
		closeStore: closeStore,
	}
}

func mustOpenStore(db config.DatabaseConfig, opTimeout time.Duration) (shipments.Repository, func()) {
	if db.URL != "" {
		st := mustOpenPostgresWithRetry(db.URL, opTimeout, 60*time.Second)
		return st, st.Close
	}

	path := db.SQLitePath
	if path == "" {
		path = "tracking.db"
	}
	st, err := sqliteshipments.New(path, opTimeout)
	if err != nil {
		panic(err)
	}
	slog.Info("using embedded sqlite store", "path", path)
	return st, st.Close
}

func mustOpenPostgresWithRetry(connString string, opTimeout, wait time.Duration) *pgshipments.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgshipments.New(connString, opTimeout)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *webApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.closeStore != nil {
		a.closeStore()
	}
}

func (a *webApp) Run() error {
	if a.seedDemo {
		seedDemoShipment(a.ctx, a.svc)
	}
	return runWebServer(a.ctx, webServerOpts{
		httpAddr: a.httpAddr,
		handler:  a.handler.Routes(),
	})
}
