package config

const (
	EnvPrefix = "assetdesk"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "ASSETDESK_APP_ENV"
	EnvPort   = "ASSETDESK_APP_PORT"

	EnvDBDSN  = "ASSETDESK_DB_DSN"
	EnvDBHost = "ASSETDESK_DB_HOST"
	EnvDBUser = "ASSETDESK_DB_USER"
	EnvDBName = "ASSETDESK_DB_NAME"

	EnvRedisURL = "ASSETDESK_REDIS_URL"

	EnvJWTSecret              = "ASSETDESK_JWT_SECRET"
	EnvJWTIssuer              = "ASSETDESK_JWT_ISSUER"
	EnvJWTExpMins             = "ASSETDESK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "ASSETDESK_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID      = "ASSETDESK_GCP_PROJECT_ID"
	EnvPubSubEventsTopic = "ASSETDESK_PUBSUB_EVENTS_TOPIC"
	EnvPubSubEventsSub   = "ASSETDESK_PUBSUB_EVENTS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
