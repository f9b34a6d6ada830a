package config

const (
	EnvStoreDriver = "STORE_DRIVER"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresURL      = "POSTGRES_URL"
	EnvPostgresMaxConns = "POSTGRES_MAX_CONNS"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRPS   = "RATE_LIMIT_RPS"
	EnvRateLimitBurst = "RATE_LIMIT_BURST"

	EnvRequestTimeout   = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL   = "IDEMPOTENCY_TTL"
	EnvIdempotencyStore = "IDEMPOTENCY_STORE"
	EnvMaxRequestSize   = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSlotGranularity      = "SLOT_GRANULARITY"
	EnvMinLeadTime          = "MIN_LEAD_TIME"
	EnvDefaultDailyCapacity = "DEFAULT_DAILY_CAPACITY"
	EnvDefaultHoldTTL       = "DEFAULT_HOLD_TTL"
	EnvSchedulingTimezone   = "SCHEDULING_TIMEZONE"
	EnvLockTimeout          = "LOCK_TIMEOUT"

	EnvReclaimSchedule  = "RECLAIM_SCHEDULE"
	EnvReclaimLeaseTTL  = "RECLAIM_LEASE_TTL"
	EnvReclaimBatchSize = "RECLAIM_BATCH_SIZE"
)
