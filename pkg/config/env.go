package config

const (
	EnvPrefix = "ORDERDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv            = "ORDERDESK_APP_ENV"
	EnvPort              = "ORDERDESK_APP_PORT"
	EnvRedisURL          = "ORDERDESK_REDIS_URL"
	EnvCRMBaseURL        = "ORDERDESK_CRM_BASE_URL"
	EnvCRMTimeout        = "ORDERDESK_CRM_TIMEOUT"
	EnvViewsPageSize     = "ORDERDESK_VIEWS_PAGE_SIZE"
	EnvGCPProjectID      = "ORDERDESK_GCP_PROJECT_ID"
	EnvPubSubEventsTopic = "ORDERDESK_PUBSUB_ORDER_EVENTS_TOPIC"
)
