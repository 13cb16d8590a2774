package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/veritrace/veritrace-backend/pkg/enums"
)

type Config struct {
	App      AppConfig
	Owner    OwnerConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Eventing EventingConfig
	GCP      GCPConfig
	QR       QRConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Eventing.validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VERITRACE_APP_ENV" required:"true"`
	Port         string `envconfig:"VERITRACE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VERITRACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VERITRACE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// OwnerConfig fixes the single owner principal at startup. The owner
// administers the authorization registry and implicitly holds the
// manufacturer role.
type OwnerConfig struct {
	Principal string `envconfig:"VERITRACE_OWNER_PRINCIPAL" required:"true"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VERITRACE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VERITRACE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VERITRACE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VERITRACE_REDIS_URL"`
	Address      string        `envconfig:"VERITRACE_REDIS_ADDR"`
	Password     string        `envconfig:"VERITRACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"VERITRACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VERITRACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VERITRACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VERITRACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VERITRACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VERITRACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a redis endpoint was provided at all.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

type EventingConfig struct {
	Sink         string `envconfig:"VERITRACE_EVENT_SINK" default:"log"`
	RedisChannel string `envconfig:"VERITRACE_EVENT_REDIS_CHANNEL" default:"veritrace.events"`
	PubSubTopic  string `envconfig:"VERITRACE_EVENT_PUBSUB_TOPIC"`
}

// SinkKind returns the parsed sink selector.
func (e EventingConfig) SinkKind() (enums.SinkKind, error) {
	return enums.ParseSinkKind(e.Sink)
}

func (e EventingConfig) validate(cfg Config) error {
	kind, err := e.SinkKind()
	if err != nil {
		return err
	}
	switch kind {
	case enums.SinkKindRedis:
		if !cfg.Redis.Configured() {
			return fmt.Errorf("%s or %s is required for the redis event sink", EnvRedisURL, EnvRedisAddr)
		}
	case enums.SinkKindPubSub:
		if cfg.GCP.ProjectID == "" {
			return fmt.Errorf("%s is required for the pubsub event sink", EnvGCPProjectID)
		}
		if e.PubSubTopic == "" {
			return fmt.Errorf("%s is required for the pubsub event sink", EnvEventPubSubTopic)
		}
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VERITRACE_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"VERITRACE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type QRConfig struct {
	Size int `envconfig:"VERITRACE_QR_SIZE" default:"256"`
}
