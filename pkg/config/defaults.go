package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "labbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	DefaultJWTSecret = "labbook-development-secret-change-me"
	DefaultTokenTTL  = 7 * 24 * time.Hour

	DefaultSecureCookies = false

	DefaultLoginMaxAttempts     = 5
	DefaultLoginLockoutDuration = 15 * time.Minute

	DefaultAllowPastBookings = false
	DefaultDeviceLockTTL     = 10 * time.Second
	DefaultDeviceLockWait    = 5 * time.Second

	DefaultKafkaEnabled  = false
	DefaultKafkaTopic    = "booking-events"
	DefaultKafkaDLQTopic = "dlq-booking-events"
	DefaultKafkaGroupID  = "labbook-notifier"

	DefaultMotorControllerAddr = "192.168.1.100:8080"
	DefaultMotorTimeout        = 5 * time.Second
)
