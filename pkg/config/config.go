package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"clinicslots/pkg/client"
	"clinicslots/pkg/logger"
)

type Config struct {
	StoreDriver string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresURL      string
	PostgresMaxConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	RateLimitRPS   float64
	RateLimitBurst int

	RequestTimeout   time.Duration
	IdempotencyTTL   time.Duration
	IdempotencyStore string
	MaxRequestSize   int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	SlotGranularity      time.Duration
	MinLeadTime          time.Duration
	DefaultDailyCapacity int
	DefaultHoldTTL       time.Duration
	SchedulingTimezone   string
	Location             *time.Location
	LockTimeout          time.Duration

	ReclaimSchedule  string
	ReclaimLeaseTTL  time.Duration
	ReclaimBatchSize int

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		StoreDriver: getEnvStr(EnvStoreDriver, DefaultStoreDriver),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresURL:      getEnvStr(EnvPostgresURL, DefaultPostgresURL),
		PostgresMaxConns: getEnvNum(EnvPostgresMaxConns, DefaultPostgresMaxConns),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRPS:   getEnvFloat(EnvRateLimitRPS, DefaultRateLimitRPS),
		RateLimitBurst: getEnvNum(EnvRateLimitBurst, DefaultRateLimitBurst),

		RequestTimeout:   getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL:   getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		IdempotencyStore: getEnvStr(EnvIdempotencyStore, DefaultIdempotencyStore),
		MaxRequestSize:   getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		SlotGranularity:      getEnvDuration(EnvSlotGranularity, DefaultSlotGranularity),
		MinLeadTime:          getEnvDuration(EnvMinLeadTime, DefaultMinLeadTime),
		DefaultDailyCapacity: getEnvNum(EnvDefaultDailyCapacity, DefaultDailyCapacity),
		DefaultHoldTTL:       getEnvDuration(EnvDefaultHoldTTL, DefaultHoldTTL),
		SchedulingTimezone:   getEnvStr(EnvSchedulingTimezone, DefaultSchedulingTimezone),
		LockTimeout:          getEnvDuration(EnvLockTimeout, DefaultLockTimeout),

		ReclaimSchedule:  getEnvStr(EnvReclaimSchedule, DefaultReclaimSchedule),
		ReclaimLeaseTTL:  getEnvDuration(EnvReclaimLeaseTTL, DefaultReclaimLeaseTTL),
		ReclaimBatchSize: getEnvNum(EnvReclaimBatchSize, DefaultReclaimBatchSize),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if loc, err := time.LoadLocation(cfg.SchedulingTimezone); err == nil {
		cfg.Location = loc
	}

	return cfg
}

// SetStore opens the connection the configured store driver needs.
func (cfg *Config) SetStore() {
	switch cfg.StoreDriver {
	case StoreMongo:
		cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
	case StorePostgres:
		cfg.Client.SetPostgres(cfg.Log, cfg.PostgresURL, int32(cfg.PostgresMaxConns), cfg.MongoConnTimeout)
	}
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StorePostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresURL) {
			errors = append(errors, fmt.Sprintf("PostgresURL must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresURL)))
		}
		if cfg.PostgresMaxConns <= 0 {
			errors = append(errors, fmt.Sprintf("PostgresMaxConns must be positive, got: %d", cfg.PostgresMaxConns))
		}
	case StoreMemory:
	default:
		errors = append(errors, fmt.Sprintf("StoreDriver must be one of [mongo, postgres, memory], got: %s", cfg.StoreDriver))
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.IdempotencyStore != IdempotencyMemory && cfg.IdempotencyStore != IdempotencyRedis {
		errors = append(errors, fmt.Sprintf("IdempotencyStore must be one of [memory, redis], got: %s", cfg.IdempotencyStore))
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

	if cfg.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRPS must be positive, got: %v", cfg.RateLimitRPS))
	}
	if cfg.RateLimitBurst <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitBurst must be positive, got: %d", cfg.RateLimitBurst))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.SlotGranularity < time.Minute || cfg.SlotGranularity%time.Minute != 0 {
		errors = append(errors, fmt.Sprintf("SlotGranularity must be a whole number of minutes, got: %s", cfg.SlotGranularity))
	} else if (24*time.Hour)%cfg.SlotGranularity != 0 {
		errors = append(errors, fmt.Sprintf("SlotGranularity must divide a day evenly, got: %s", cfg.SlotGranularity))
	}
	if cfg.MinLeadTime < 0 {
		errors = append(errors, fmt.Sprintf("MinLeadTime cannot be negative, got: %s", cfg.MinLeadTime))
	}
	if cfg.DefaultDailyCapacity <= 0 {
		errors = append(errors, fmt.Sprintf("DefaultDailyCapacity must be positive, got: %d", cfg.DefaultDailyCapacity))
	}
	if cfg.DefaultHoldTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("DefaultHoldTTL must be at least one minute, got: %s", cfg.DefaultHoldTTL))
	}
	if cfg.Location == nil {
		errors = append(errors, fmt.Sprintf("SchedulingTimezone must be a valid IANA zone, got: %s", cfg.SchedulingTimezone))
	}
	if cfg.LockTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LockTimeout must be positive, got: %s", cfg.LockTimeout))
	}

	if cfg.ReclaimSchedule == "" {
		errors = append(errors, "ReclaimSchedule cannot be empty")
	}
	if cfg.ReclaimLeaseTTL <= 0 {
		errors = append(errors, fmt.Sprintf("ReclaimLeaseTTL must be positive, got: %s", cfg.ReclaimLeaseTTL))
	}
	if cfg.ReclaimBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("ReclaimBatchSize must be positive, got: %d", cfg.ReclaimBatchSize))
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
		"store_driver", cfg.StoreDriver,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_url", redactURI(cfg.PostgresURL),
		"postgres_max_conns", cfg.PostgresMaxConns,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"port", cfg.Port,
		"rate_limit_rps", cfg.RateLimitRPS,
		"rate_limit_burst", cfg.RateLimitBurst,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"idempotency_store", cfg.IdempotencyStore,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"slot_granularity", cfg.SlotGranularity,
		"min_lead_time", cfg.MinLeadTime,
		"default_daily_capacity", cfg.DefaultDailyCapacity,
		"default_hold_ttl", cfg.DefaultHoldTTL,
		"scheduling_timezone", cfg.SchedulingTimezone,
		"lock_timeout", cfg.LockTimeout,
		"reclaim_schedule", cfg.ReclaimSchedule,
		"reclaim_lease_ttl", cfg.ReclaimLeaseTTL,
		"reclaim_batch_size", cfg.ReclaimBatchSize,
	)
}

func redactURI(uri string) string {
	credentialRegex := regexp.MustCompile(`^([a-z+]+://)[^:/@]+:[^@]+@`)
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

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
	cfg.Client.GracefulShutdown(cfg.Log)
}
