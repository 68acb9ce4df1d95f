package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/radiant_bloom/internal/httpserver"
	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/internal/notify"
	"github.com/Skotchmaster/radiant_bloom/internal/ordernum"
	"github.com/Skotchmaster/radiant_bloom/internal/repo"
	"github.com/Skotchmaster/radiant_bloom/internal/search"
	"github.com/Skotchmaster/radiant_bloom/internal/service"
	"github.com/Skotchmaster/radiant_bloom/pkg/config"
	pkgdb "github.com/Skotchmaster/radiant_bloom/pkg/db"
	"github.com/Skotchmaster/radiant_bloom/pkg/events"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load().MustServer()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	r := repo.New(db)

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewProducer(cfg.KafkaBrokers)
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	var index search.ProductIndex = search.Nop{}
	if cfg.ElasticURL != "" {
		es, err := search.NewClient(cfg)
		if err != nil {
			logger.Warn("elasticsearch_disabled", "error", err)
		} else {
			index = search.NewElastic(es, cfg.ElasticIndex)
			logger.Info("elasticsearch_enabled", "index", cfg.ElasticIndex)
		}
	}

	var (
		numbers     ordernum.Generator = ordernum.NewDBSequence(r)
		redisClient *redis.Client
	)
	if cfg.RedisURL != "" {
		seq, client, err := ordernum.NewRedisSequence(context.Background(), cfg.RedisURL, cfg.ServiceName)
		if err != nil {
			logger.Warn("redis_disabled", "error", err)
		} else {
			numbers, redisClient = seq, client
			logger.Info("redis_order_sequence_enabled")
		}
	}

	hub := notify.NewHub(cfg.CORSOrigins)

	orders := service.NewOrderService(r, numbers, service.NewPricingPolicy(cfg.Pricing), publisher, hub)

	e := httpserver.New(httpserver.Options{
		Development: cfg.IsDevelopment(),
		CORSOrigins: cfg.CORSOrigins,
		BodyLimit:   cfg.BodyLimit,
		Logger:      logger,
	}, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:          service.NewAuthService(r, cfg.JWTSecret, cfg.JWTTTL, publisher),
			CookieTTL:    cfg.CookieTTL,
			SecureCookie: !cfg.IsDevelopment(),
		},
		CatalogHandler:   &httpserver.CatalogHTTP{Svc: service.NewCatalogService(r, index, publisher, cfg.LowStockDefault)},
		OrderHandler:     &httpserver.OrderHTTP{Svc: orders},
		ReviewHandler:    &httpserver.ReviewHTTP{Svc: service.NewReviewService(r, publisher)},
		AnalyticsHandler: &httpserver.AnalyticsHTTP{Svc: service.NewAnalyticsService(r, orders)},
		NotifyHandler:    &httpserver.NotifyHTTP{Hub: hub},
		Gate:             authmw.NewGate(cfg.JWTSecret, r),
		Ready:            r.Ping,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	hub.Close()
	_ = srv.Shutdown(shutdownCtx)

	if err := publisher.Close(); err != nil {
		logger.Warn("kafka_close_error", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	_ = pkgdb.Close(db)

	logger.Info("server_stopped")
}
