package main

import (
	"context"
	"time"

	"labbook/internal/auth"
	bookingshandler "labbook/internal/bookings/handler"
	"labbook/internal/bookings/lock"
	bookingsrepo "labbook/internal/bookings/repository"
	bookingsservice "labbook/internal/bookings/service"
	bookingsvalidator "labbook/internal/bookings/validator"
	deviceshandler "labbook/internal/devices/handler"
	devicesrepo "labbook/internal/devices/repository"
	devicesservice "labbook/internal/devices/service"
	devicesvalidator "labbook/internal/devices/validator"
	"labbook/internal/events"
	"labbook/internal/health"
	"labbook/internal/motor"
	"labbook/internal/throttle"
	usershandler "labbook/internal/users/handler"
	usersrepo "labbook/internal/users/repository"
	usersservice "labbook/internal/users/service"
	"labbook/pkg/app"
	"labbook/pkg/config"
	"labbook/pkg/contracts"
	"labbook/pkg/kafka"
	kafka_config "labbook/pkg/kafka/config"
	kafka_middleware "labbook/pkg/kafka/middleware"
	"labbook/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	ServiceName = "labbook"
	Version     = "1.0.0"

	throttlePruneInterval = time.Minute
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Labbook service", "version", Version)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	serverApp := app.NewApplication(cfg)
	bgCtx, stopBackground := context.WithCancel(context.Background())

	users := usersservice.NewUserService(usersrepo.NewMongoUserRepository(cfg), cfg)
	devices := devicesservice.NewDeviceService(
		devicesrepo.NewMongoDeviceRepository(cfg),
		devicesvalidator.NewDeviceValidator(),
		cfg,
	)

	publisher := initPublisher(cfg, serverApp, recorder)
	bookings := bookingsservice.NewBookingService(bookingsservice.Dependencies{
		Repo: bookingsrepo.NewMongoBookingRepository(cfg),
		Locker: lock.Chain(
			lock.NewKeyedMutex(),
			lock.NewMongoLocker(bookingsrepo.NewDeviceLockRepository(cfg), cfg.DeviceLockTTL, cfg.Log),
		),
		Devices:   devices,
		Owners:    users,
		Publisher: publisher,
		Metrics:   recorder,
		Validator: bookingsvalidator.NewBookingValidator(cfg.AllowPastBookings, cfg.Log),
	}, cfg)

	loginThrottle := throttle.New(
		throttle.WithMaxAttempts(cfg.LoginMaxAttempts),
		throttle.WithLockoutDuration(cfg.LoginLockoutDuration),
	)
	go loginThrottle.RunPruner(bgCtx, throttlePruneInterval)

	verifier, err := auth.NewVerifier(users, auth.DefaultHashCost)
	if err != nil {
		cfg.Log.Fatal("Failed to initialise password verifier", "error", err)
	}
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := auth.NewService(auth.Dependencies{
		Users:    users,
		Verifier: verifier,
		Tokens:   tokens,
		Throttle: loginThrottle,
		Metrics:  recorder,
	}, cfg)

	motorClient := motor.NewClient(cfg.MotorControllerAddr, cfg.MotorTimeout, cfg.Log)

	serverApp.SetApp(app.Options{
		Tokens:   tokens,
		Metrics:  recorder,
		Gatherer: registry,
		Health:   health.NewHealthHandler(cfg.Client.Mongo, ServiceName, Version, cfg.Log),
		Handlers: []contracts.Handler{
			auth.NewHandler(authService, cfg.SecureCookies, cfg.Log),
			usershandler.NewUserHandler(users, cfg.Log),
			deviceshandler.NewDeviceHandler(devices, cfg.Log),
			bookingshandler.NewBookingHandler(bookings, cfg.Log),
			motor.NewHandler(motorClient, cfg.Log),
		},
	})
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.OnShutdown(stopBackground)

	cfg.Log.Info("Labbook service initialized", "database", cfg.MongoDatabaseName)
	serverApp.Run()
}

// initPublisher returns a Kafka-backed publisher when Kafka is enabled. Booking
// writes never depend on it, so any setup failure falls back to a no-op.
func initPublisher(cfg *config.Config, serverApp *app.Application, recorder metrics.Recorder) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return events.NopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Error("Invalid Kafka configuration, booking events will not be published", "error", err)
		return events.NopPublisher{}
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaTopic, cfg.KafkaDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Error("Failed to create Kafka producer, booking events will not be published", "error", err)
		return events.NopPublisher{}
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware(recorder))

	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	cfg.Log.Info("Kafka producer initialized", "topic", cfg.KafkaTopic, "dlq_topic", cfg.KafkaDLQTopic)
	return events.NewKafkaPublisher(producer)
}
