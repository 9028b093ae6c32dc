package config

import (
	"fmt"
	"labbook/pkg/client"
	"labbook/pkg/logger"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	JWTSecret     string
	TokenTTL      time.Duration
	SecureCookies bool

	LoginMaxAttempts     int
	LoginLockoutDuration time.Duration

	AllowPastBookings bool
	DeviceLockTTL     time.Duration
	DeviceLockWait    time.Duration

	KafkaEnabled  bool
	KafkaTopic    string
	KafkaDLQTopic string
	KafkaGroupID  string

	MotorControllerAddr string
	MotorTimeout        time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := FromEnv(serviceName)

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv reads the configuration without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		JWTSecret:     getEnvStr(EnvJWTSecret, DefaultJWTSecret),
		TokenTTL:      getEnvDuration(EnvTokenTTL, DefaultTokenTTL),
		SecureCookies: getEnvBool(EnvSecureCookies, DefaultSecureCookies),

		LoginMaxAttempts:     getEnvNum(EnvLoginMaxAttempts, DefaultLoginMaxAttempts),
		LoginLockoutDuration: getEnvDuration(EnvLoginLockoutDuration, DefaultLoginLockoutDuration),

		AllowPastBookings: getEnvBool(EnvAllowPastBookings, DefaultAllowPastBookings),
		DeviceLockTTL:     getEnvDuration(EnvDeviceLockTTL, DefaultDeviceLockTTL),
		DeviceLockWait:    getEnvDuration(EnvDeviceLockWait, DefaultDeviceLockWait),

		KafkaEnabled:  getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaTopic:    getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),
		KafkaDLQTopic: getEnvStr(EnvKafkaDLQTopic, DefaultKafkaDLQTopic),
		KafkaGroupID:  getEnvStr(EnvKafkaGroupID, DefaultKafkaGroupID),

		MotorControllerAddr: getEnvStr(EnvMotorControllerAddr, DefaultMotorControllerAddr),
		MotorTimeout:        getEnvDuration(EnvMotorTimeout, DefaultMotorTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(cfg.JWTSecret) < 16 {
		errors = append(errors, fmt.Sprintf("JWTSecret must be at least 16 characters, got: %d", len(cfg.JWTSecret)))
	}
	if cfg.TokenTTL <= 0 {
		errors = append(errors, fmt.Sprintf("TokenTTL must be positive, got: %s", cfg.TokenTTL))
	}

	if cfg.LoginMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("LoginMaxAttempts must be positive, got: %d", cfg.LoginMaxAttempts))
	}
	if cfg.LoginLockoutDuration <= 0 {
		errors = append(errors, fmt.Sprintf("LoginLockoutDuration must be positive, got: %s", cfg.LoginLockoutDuration))
	}

	if cfg.DeviceLockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("DeviceLockTTL must be positive, got: %s", cfg.DeviceLockTTL))
	}
	if cfg.DeviceLockWait <= 0 {
		errors = append(errors, fmt.Sprintf("DeviceLockWait must be positive, got: %s", cfg.DeviceLockWait))
	}

	if cfg.KafkaEnabled {
		if cfg.KafkaTopic == "" {
			errors = append(errors, "KafkaTopic cannot be empty when Kafka is enabled")
		}
		if cfg.KafkaTopic != "" && cfg.KafkaTopic == cfg.KafkaDLQTopic {
			errors = append(errors, fmt.Sprintf("KafkaDLQTopic must differ from KafkaTopic, got: %s", cfg.KafkaDLQTopic))
		}
	}

	if _, _, err := net.SplitHostPort(cfg.MotorControllerAddr); err != nil {
		errors = append(errors, fmt.Sprintf("MotorControllerAddr must be host:port, got: %s", cfg.MotorControllerAddr))
	}
	if cfg.MotorTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MotorTimeout must be positive, got: %s", cfg.MotorTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"token_ttl", cfg.TokenTTL,
		"secure_cookies", cfg.SecureCookies,
		"login_max_attempts", cfg.LoginMaxAttempts,
		"login_lockout_duration", cfg.LoginLockoutDuration,
		"allow_past_bookings", cfg.AllowPastBookings,
		"device_lock_ttl", cfg.DeviceLockTTL,
		"device_lock_wait", cfg.DeviceLockWait,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_topic", cfg.KafkaTopic,
		"motor_controller_addr", cfg.MotorControllerAddr,
		"motor_timeout", cfg.MotorTimeout,
	)
	if cfg.JWTSecret == DefaultJWTSecret {
		cfg.Log.Warn("JWT secret is the development default, set " + EnvJWTSecret + " in production")
	}
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
