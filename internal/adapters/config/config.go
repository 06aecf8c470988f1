package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"veritas/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	AI            AIConfig
	HTTP          HTTPConfig
	Resolution    ResolutionConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"veritas"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"resolution"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"veritas"`
}

type AIConfig struct {
	OpenAIKey      string        `envconfig:"OPENAI_API_KEY"`
	Model          string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	RequestTimeout time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"45s"`
	RateLimitRPM   int           `envconfig:"AI_RATE_LIMIT_RPM" default:"60"`
}

type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// ResolutionConfig carries every tunable of the resolution engine.
// The original components disagreed on the dispute window length (72h in the
// resolution panel, 7 days in the monitor); it is a single parameter here,
// defaulting to 72h pending product clarification.
type ResolutionConfig struct {
	DisputeWindow      time.Duration `envconfig:"RESOLUTION_DISPUTE_WINDOW" default:"72h"`
	MaxEvidencePeriod  time.Duration `envconfig:"RESOLUTION_MAX_EVIDENCE_PERIOD" default:"720h"` // 30 days
	MinConfidence      float64       `envconfig:"RESOLUTION_MIN_CONFIDENCE" default:"80"`
	AutoResolveFloor   float64       `envconfig:"RESOLUTION_AUTO_RESOLVE_FLOOR" default:"60"`
	ConsensusHigh      float64       `envconfig:"RESOLUTION_CONSENSUS_HIGH" default:"0.8"`
	ConsensusLow       float64       `envconfig:"RESOLUTION_CONSENSUS_LOW" default:"0.2"`
	ManipulationGap    float64       `envconfig:"RESOLUTION_MANIPULATION_GAP" default:"0.30"`
	MinEvidenceVolume  int           `envconfig:"RESOLUTION_MIN_EVIDENCE_VOLUME" default:"3"`
	SignalTimeout      time.Duration `envconfig:"RESOLUTION_SIGNAL_TIMEOUT" default:"30s"`
	MaxTransitionTries int           `envconfig:"RESOLUTION_MAX_TRANSITION_TRIES" default:"3"`
	AnalysisCacheTTL   time.Duration `envconfig:"RESOLUTION_ANALYSIS_CACHE_TTL" default:"6h"`
	YoungIdentityDays  int           `envconfig:"RESOLUTION_YOUNG_IDENTITY_DAYS" default:"7"`
	YoungIdentityShare float64       `envconfig:"RESOLUTION_YOUNG_IDENTITY_SHARE" default:"0.2"`
}

// WorkerConfig contains intervals for all background workers.
// The expiry worker runs on a fast cadence so preliminary resolution opens promptly
// after expiry; dispute-window and refund checks tolerate much slower cadences.
type WorkerConfig struct {
	ExpiryInterval        time.Duration `envconfig:"WORKER_EXPIRY_INTERVAL" default:"30s"`
	DisputeWindowInterval time.Duration `envconfig:"WORKER_DISPUTE_WINDOW_INTERVAL" default:"10m"`
	RefundInterval        time.Duration `envconfig:"WORKER_REFUND_INTERVAL" default:"1h"`

	// Max claims transitioned concurrently within one tick
	MaxConcurrency int `envconfig:"WORKER_MAX_CONCURRENCY" default:"5"`

	ExpiryEnabled        bool `envconfig:"WORKER_EXPIRY_ENABLED" default:"true"`
	DisputeWindowEnabled bool `envconfig:"WORKER_DISPUTE_WINDOW_ENABLED" default:"true"`
	RefundEnabled        bool `envconfig:"WORKER_REFUND_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
