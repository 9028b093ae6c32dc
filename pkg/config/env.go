package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvJWTSecret = "JWT_SECRET"
	EnvTokenTTL  = "JWT_EXPIRES_IN"

	EnvSecureCookies = "COOKIE_SECURE"

	EnvLoginMaxAttempts     = "LOGIN_MAX_ATTEMPTS"
	EnvLoginLockoutDuration = "LOGIN_LOCKOUT_DURATION"

	EnvAllowPastBookings = "BOOKING_ALLOW_PAST"
	EnvDeviceLockTTL     = "BOOKING_DEVICE_LOCK_TTL"
	EnvDeviceLockWait    = "BOOKING_DEVICE_LOCK_WAIT"

	EnvKafkaEnabled  = "KAFKA_ENABLED"
	EnvKafkaTopic    = "KAFKA_BOOKING_TOPIC"
	EnvKafkaDLQTopic = "KAFKA_BOOKING_DLQ_TOPIC"
	EnvKafkaGroupID  = "KAFKA_GROUP_ID"

	EnvMotorControllerAddr = "MOTOR_CONTROLLER_ADDR"
	EnvMotorTimeout        = "MOTOR_TIMEOUT"
)
