package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"labbook/internal/notifier"
	"labbook/pkg/config"
	"labbook/pkg/kafka"
	kafka_config "labbook/pkg/kafka/config"
	kafka_middleware "labbook/pkg/kafka/middleware"
	"labbook/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

const ServiceName = "labbook-notifier"

func main() {
	cfg := config.Load(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	registry := prometheus.NewRegistry()
	recorder := metrics.NewCollector(registry)
	auditor := notifier.NewAuditor(cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.KafkaTopic, cfg.KafkaGroupID, cfg.KafkaDLQTopic, auditor.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware(recorder))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     metrics.Handler(registry),
		ReadTimeout: cfg.ReadTimeout,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Metrics server failed", "error", err)
		}
	}()

	cfg.Log.Info("Starting booking event consumer",
		"topic", cfg.KafkaTopic,
		"group_id", cfg.KafkaGroupID,
		"dlq_topic", cfg.KafkaDLQTopic,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped unexpectedly", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Failed to stop metrics server", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}
