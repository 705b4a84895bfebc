package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saturn72/efaudit/internal/capture"
	"github.com/saturn72/efaudit/internal/catalog"
	"github.com/saturn72/efaudit/internal/platform/config"
	"github.com/saturn72/efaudit/internal/platform/httpserver"
	"github.com/saturn72/efaudit/internal/platform/kafka"
	"github.com/saturn72/efaudit/internal/platform/logger"
	"github.com/saturn72/efaudit/internal/platform/metrics"
	platformredis "github.com/saturn72/efaudit/internal/platform/redis"
	"github.com/saturn72/efaudit/internal/publish"
	"github.com/saturn72/efaudit/internal/store/postgres"
	"github.com/saturn72/efaudit/internal/tracking"
	httptransport "github.com/saturn72/efaudit/internal/transport/http"
)

// main wires the capture pipeline: snapshot registry, aggregator, publisher,
// and whichever sinks the environment configures. The in-process recorder is
// always on; Kafka, Redis, and Postgres sinks attach when configured.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	recorder := publish.NewRecorder()
	sinks := []publish.Sink{recorder}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		sinks = append(sinks, publish.NewBusSink(producer, cfg.AuditTopic))
		log.Info("kafka sink enabled", "topic", cfg.AuditTopic)
	}

	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(cfg.Redis())
		if err != nil {
			log.Error("redis client init failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		sinks = append(sinks, publish.NewRecentSink(redisClient, "audit:recent", 100))
		log.Info("redis recent sink enabled")
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := postgres.New(db)
		if err := store.EnsureSchema(context.Background()); err != nil {
			log.Error("postgres schema init failed", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, store)
		log.Info("postgres sink enabled")
	}

	registry := capture.NewRegistry()
	catalog.RegisterTypes(registry)

	publisher := publish.New(log, sinks...)
	aggregator := capture.NewAggregator(cfg.Source, registry, publisher,
		capture.WithLogger(log),
		capture.WithMetrics(m),
	)

	db := tracking.NewDB()
	cat := catalog.New(db, aggregator)
	handler := httptransport.NewHandler(log, cat, recorder, []byte(cfg.JWTSigningKey))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	srv := httpserver.New(cfg.Addr, mux)

	log.Info("starting efaudit sample server", "addr", cfg.Addr, "source", cfg.Source)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
