// Package config loads HitchPath runtime configuration from the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/hitchpath/hitchpath/internal/database"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full service configuration.
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	Google    GoogleConfig
	LLM       LLMConfig
	Redis     RedisConfig
	PubSub    PubSubConfig
	Telemetry TelemetryConfig
}

// AppConfig holds process-level settings.
type AppConfig struct {
	Env            string   `envconfig:"APP_ENV" default:"development"`
	Port           string   `envconfig:"APP_PORT" default:"8080"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"https://hitchpath.com,http://localhost:5173"`
	RequireTLS     bool     `envconfig:"REQUIRE_TLS" default:"false"`
}

// IsDev reports whether the service runs in development mode.
func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, EnvDevelopment)
}

// DBConfig mirrors database.Config with env bindings.
type DBConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"hitchpath"`
	Password        string        `envconfig:"DB_PASSWORD" default:"localdev"`
	Name            string        `envconfig:"DB_NAME" default:"hitchpath"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// Database converts to the connection config used by the database package.
func (c DBConfig) Database() database.Config {
	return database.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Name,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// JWTConfig configures access token issuance.
type JWTConfig struct {
	SigningKey string        `envconfig:"JWT_SIGNING_KEY"`
	Issuer     string        `envconfig:"JWT_ISSUER" default:"https://api.hitchpath.com"`
	Audience   string        `envconfig:"JWT_AUDIENCE" default:"hitchpath-web"`
	AccessTTL  time.Duration `envconfig:"JWT_ACCESS_TTL" default:"1h"`
}

// GoogleConfig configures Google sign-in.
type GoogleConfig struct {
	ClientID string `envconfig:"GOOGLE_CLIENT_ID"`
}

// LLMConfig configures the text-completion provider.
type LLMConfig struct {
	APIKey  string        `envconfig:"MISTRAL_API_KEY"`
	BaseURL string        `envconfig:"LLM_BASE_URL" default:"https://api.mistral.ai/v1"`
	Model   string        `envconfig:"LLM_MODEL" default:"open-mistral-nemo"`
	Timeout time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
}

// RedisConfig configures the optional cross-instance generation lock.
type RedisConfig struct {
	URL     string        `envconfig:"REDIS_URL"`
	LockTTL time.Duration `envconfig:"GENERATION_LOCK_TTL" default:"2m"`
}

// Enabled reports whether a Redis URL was supplied.
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// PubSubConfig configures background job messaging.
type PubSubConfig struct {
	ProjectID    string `envconfig:"PUBSUB_PROJECT_ID"`
	Topic        string `envconfig:"PUBSUB_TOPIC" default:"hitchpath-jobs"`
	Subscription string `envconfig:"PUBSUB_SUBSCRIPTION" default:"hitchpath-jobs-worker"`
}

// Enabled reports whether Pub/Sub is configured.
func (c PubSubConfig) Enabled() bool {
	return c.ProjectID != ""
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OTLPEndpoint string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	Secure       bool    `envconfig:"OTEL_EXPORTER_OTLP_SECURE" default:"false"`
	SampleRatio  float64 `envconfig:"OTEL_SAMPLE_RATIO" default:"1"`
}

// Load reads configuration from the environment. In development a local .env
// file is loaded first when present.
func Load() (*Config, error) {
	if env := os.Getenv("APP_ENV"); env == "" || strings.EqualFold(env, EnvDevelopment) {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !c.App.IsDev() && c.JWT.SigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required outside development")
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	return nil
}

// NewLogger builds the root logger for a process, tagged with service and
// version. Development output is human readable.
func (a AppConfig) NewLogger(service, version string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(a.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if a.IsDev() {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}
