package config

const (
	EnvPrefix = "VERITRACE"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv            = "VERITRACE_APP_ENV"
	EnvPort              = "VERITRACE_APP_PORT"
	EnvLogLevel          = "VERITRACE_LOG_LEVEL"
	EnvOwnerPrincipal    = "VERITRACE_OWNER_PRINCIPAL"
	EnvJWTSecret         = "VERITRACE_JWT_SECRET"
	EnvJWTIssuer         = "VERITRACE_JWT_ISSUER"
	EnvJWTExpMins        = "VERITRACE_JWT_EXPIRATION_MINUTES"
	EnvRedisURL          = "VERITRACE_REDIS_URL"
	EnvRedisAddr         = "VERITRACE_REDIS_ADDR"
	EnvEventSink         = "VERITRACE_EVENT_SINK"
	EnvEventRedisChannel = "VERITRACE_EVENT_REDIS_CHANNEL"
	EnvEventPubSubTopic  = "VERITRACE_EVENT_PUBSUB_TOPIC"
	EnvGCPProjectID      = "VERITRACE_GCP_PROJECT_ID"
	EnvQRSize            = "VERITRACE_QR_SIZE"
)
