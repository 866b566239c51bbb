package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "MARKETPLACE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv       = "MARKETPLACE_APP_ENV"
	EnvPort         = "MARKETPLACE_APP_PORT"
	EnvLogLevel     = "MARKETPLACE_LOG_LEVEL"
	EnvLogFormat    = "MARKETPLACE_LOG_FORMAT"
	EnvLogWarnStack = "MARKETPLACE_LOG_WARN_STACK"

	EnvDBDSN      = "MARKETPLACE_DB_DSN"
	EnvDBDriver   = "MARKETPLACE_DB_DRIVER"
	EnvDBHost     = "MARKETPLACE_DB_HOST"
	EnvDBPort     = "MARKETPLACE_DB_PORT"
	EnvDBUser     = "MARKETPLACE_DB_USER"
	EnvDBPassword = "MARKETPLACE_DB_PASSWORD"
	EnvDBName     = "MARKETPLACE_DB_NAME"
	EnvDBSSLMode  = "MARKETPLACE_DB_SSLMODE"

	EnvRedisURL = "MARKETPLACE_REDIS_URL"

	EnvJWTSecret  = "MARKETPLACE_JWT_SECRET"
	EnvJWTIssuer  = "MARKETPLACE_JWT_ISSUER"
	EnvJWTExpMins = "MARKETPLACE_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey   = "MARKETPLACE_STRIPE_API_KEY"
	EnvStripeSecret   = "MARKETPLACE_STRIPE_SECRET"
	EnvStripeEnv      = "MARKETPLACE_STRIPE_ENV"
	EnvStripeCurrency = "MARKETPLACE_STRIPE_CURRENCY"

	EnvClientURL          = "MARKETPLACE_CLIENT_URL"
	EnvCheckoutRateWindow = "MARKETPLACE_CHECKOUT_RATE_LIMIT_WINDOW"
	EnvCheckoutRateLimit  = "MARKETPLACE_CHECKOUT_RATE_LIMIT"
	EnvWebhookIdempotency = "MARKETPLACE_WEBHOOK_IDEMPOTENCY_TTL"
	EnvGCPProjectID       = "MARKETPLACE_GCP_PROJECT_ID"
	EnvGCPCredentialsJSON = "MARKETPLACE_GCP_CREDENTIALS_JSON"
	EnvPubSubOrdersTopic  = "MARKETPLACE_PUBSUB_ORDERS_TOPIC"
	EnvOutboxBatchSize    = "MARKETPLACE_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxPollMS       = "MARKETPLACE_OUTBOX_PUBLISH_POLL_MS"
	EnvOutboxMaxAttempts  = "MARKETPLACE_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxRetention    = "MARKETPLACE_OUTBOX_RETENTION_DAYS"
	EnvCronInterval       = "MARKETPLACE_CRON_INTERVAL"
	EnvFeatureAutoMigrate = "MARKETPLACE_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
