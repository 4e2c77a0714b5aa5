package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	CRM      CRMConfig
	Views    ViewsConfig
	Settle   SettleConfig
	Notifier NotifierConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.CRM.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"ORDERDESK_APP_ENV" required:"true"`
	Port         string   `envconfig:"ORDERDESK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ORDERDESK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ORDERDESK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERDESK_REDIS_URL"`
	Address      string        `envconfig:"ORDERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// CRMConfig points at the platform's remote procedure endpoints.
type CRMConfig struct {
	BaseURL         string        `envconfig:"ORDERDESK_CRM_BASE_URL" required:"true"`
	APIToken        string        `envconfig:"ORDERDESK_CRM_API_TOKEN"`
	Timeout         time.Duration `envconfig:"ORDERDESK_CRM_TIMEOUT" default:"10s"`
	IncludeExternal bool          `envconfig:"ORDERDESK_CRM_INCLUDE_EXTERNAL" default:"true"`
}

func (c CRMConfig) validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("%s must be an http(s) url", EnvCRMBaseURL)
	}
	return nil
}

type ViewsConfig struct {
	PageSize         int           `envconfig:"ORDERDESK_VIEWS_PAGE_SIZE" default:"10"`
	StatsRevealDelay time.Duration `envconfig:"ORDERDESK_VIEWS_STATS_REVEAL_DELAY" default:"16ms"`
	Currency         string        `envconfig:"ORDERDESK_VIEWS_CURRENCY" default:"USD"`
	ToastBuffer      int           `envconfig:"ORDERDESK_VIEWS_TOAST_BUFFER" default:"50"`
}

// SettleConfig bounds the poll-until-consistent wait after remote writes.
type SettleConfig struct {
	InitialInterval time.Duration `envconfig:"ORDERDESK_SETTLE_INITIAL_INTERVAL" default:"100ms"`
	MaxInterval     time.Duration `envconfig:"ORDERDESK_SETTLE_MAX_INTERVAL" default:"1s"`
	Timeout         time.Duration `envconfig:"ORDERDESK_SETTLE_TIMEOUT" default:"5s"`
}

type NotifierConfig struct {
	QueueSize    int    `envconfig:"ORDERDESK_NOTIFIER_QUEUE_SIZE" default:"32"`
	RedisChannel string `envconfig:"ORDERDESK_NOTIFIER_REDIS_CHANNEL" default:"orderdesk:events"`
	InstanceID   string `envconfig:"ORDERDESK_INSTANCE_ID"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ORDERDESK_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrderEventsTopic string        `envconfig:"ORDERDESK_PUBSUB_ORDER_EVENTS_TOPIC"`
	BatchDelay       time.Duration `envconfig:"ORDERDESK_PUBSUB_BATCH_DELAY" default:"10ms"`
	BatchCount       int           `envconfig:"ORDERDESK_PUBSUB_BATCH_COUNT" default:"100"`
}

// Enabled reports whether order events should be exported to Pub/Sub.
func (p PubSubConfig) Enabled(gcp GCPConfig) bool {
	return strings.TrimSpace(gcp.ProjectID) != "" && strings.TrimSpace(p.OrderEventsTopic) != ""
}
