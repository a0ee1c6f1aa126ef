package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Security    SecurityConfig
	Link        LinkConfig
	Reconcile   ReconcileConfig
	NATS        NATSConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port         string `envconfig:"PORT" default:"8080"`
	ReadTimeout  int    `envconfig:"READ_TIMEOUT" default:"15"`
	WriteTimeout int    `envconfig:"WRITE_TIMEOUT" default:"15"`
	IdleTimeout  int    `envconfig:"IDLE_TIMEOUT" default:"60"`
}

type DatabaseConfig struct {
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         string        `envconfig:"DB_PORT" default:"5432"`
	Username     string        `envconfig:"DB_USER" default:"postgres"`
	Password     string        `envconfig:"DB_PASSWORD" default:""`
	DatabaseName string        `envconfig:"DB_NAME" default:"journal"`
	SSLMode      string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxConns     int           `envconfig:"DB_MAX_CONNS" default:"25"`
	MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	MaxLifetime  int           `envconfig:"DB_MAX_LIFETIME" default:"300"`
	ConnectRetry time.Duration `envconfig:"DB_CONNECT_RETRY" default:"30s"`
	AutoMigrate  bool          `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

type AuthConfig struct {
	JWTSecret     string `envconfig:"JWT_SECRET"`
	JWTExpiration int    `envconfig:"JWT_EXPIRATION" default:"3600"`
}

// SecurityConfig holds the key used to encrypt connected app signing secrets at rest.
type SecurityConfig struct {
	SecretEncryptionKey string `envconfig:"SECRET_ENCRYPTION_KEY"`
}

type LinkConfig struct {
	TokenTTL       time.Duration `envconfig:"LINK_TOKEN_TTL" default:"15m"`
	TokenRetention time.Duration `envconfig:"LINK_TOKEN_RETENTION" default:"720h"`
	DefaultApp     string        `envconfig:"LINK_DEFAULT_APP" default:"iCopyTrade"`
}

type ReconcileConfig struct {
	Enabled       bool          `envconfig:"RECONCILE_ENABLED" default:"true"`
	Tolerance     string        `envconfig:"RECONCILE_TOLERANCE" default:"5.0"`
	Workers       int           `envconfig:"RECONCILE_WORKERS" default:"4"`
	SweepInterval time.Duration `envconfig:"RECONCILE_SWEEP_INTERVAL" default:"5m"`
	GCInterval    time.Duration `envconfig:"LINK_TOKEN_GC_INTERVAL" default:"1h"`

	// EventRetention bounds how long copy-event dedup records are kept.
	EventRetention time.Duration `envconfig:"COPY_EVENT_RETENTION" default:"720h"`

	// OpenTradeMaxAge is how long a copy may wait for closed PnL on both
	// sides before it is marked missing.
	OpenTradeMaxAge time.Duration `envconfig:"RECONCILE_OPEN_TRADE_MAX_AGE" default:"168h"`
}

// ToleranceDecimal parses the configured default tolerance.
func (c ReconcileConfig) ToleranceDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Tolerance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid RECONCILE_TOLERANCE %q: %w", c.Tolerance, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("RECONCILE_TOLERANCE must not be negative")
	}
	return d, nil
}

type NATSConfig struct {
	Enabled     bool   `envconfig:"NATS_ENABLED" default:"false"`
	URL         string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	ClientID    string `envconfig:"NATS_CLIENT_ID" default:"journal-backend"`
	DurableName string `envconfig:"NATS_DURABLE_NAME" default:"journal-backend-durable"`
	Stream      string `envconfig:"NATS_STREAM" default:"JOURNAL_COPY"`
	Subject     string `envconfig:"NATS_COPY_SUBJECT" default:"journal.copy.events"`
}

type KafkaConfig struct {
	Enabled    bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers    []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	AuditTopic string   `envconfig:"KAFKA_AUDIT_TOPIC" default:"journal.audit"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// RateLimitConfig bounds the unauthenticated token-consume endpoint per client IP.
type RateLimitConfig struct {
	ConsumePerMinute int `envconfig:"RATE_LIMIT_CONSUME_PER_MINUTE" default:"30"`
	ConsumeBurst     int `envconfig:"RATE_LIMIT_CONSUME_BURST" default:"5"`
	APIPerHour       int `envconfig:"RATE_LIMIT_API_PER_HOUR" default:"1000"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	// .env file is optional
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("required environment variable JWT_SECRET is not set")
	}
	if len(c.Security.SecretEncryptionKey) < 32 {
		return errors.New("SECRET_ENCRYPTION_KEY must be set and at least 32 characters")
	}
	if c.Link.TokenTTL <= 0 {
		return errors.New("LINK_TOKEN_TTL must be positive")
	}
	if c.Reconcile.Workers <= 0 {
		return errors.New("RECONCILE_WORKERS must be positive")
	}
	if _, err := c.Reconcile.ToleranceDecimal(); err != nil {
		return err
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
