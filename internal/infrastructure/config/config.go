package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/account-service/internal/core/domain"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`

	Auth     AuthConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Events   EventsConfig
}

type AuthConfig struct {
	// JWTSecret is the base64-encoded HS256 signing key.
	JWTSecret  string        `env:"JWT_SECRET, required"`
	JWTTTL     time.Duration `env:"JWT_TTL,     default=24h"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`
	// SeedRoles are created at startup when missing.
	SeedRoles []string `env:"SEED_ROLES, default=ROLE_USER,ROLE_ADMIN"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=account_service"`
}

type PostgresConfig struct {
	URL      string `env:"DATABASE_URL"`
	MaxConns int32  `env:"DATABASE_MAX_CONNS, default=10"`
}

type RedisConfig struct {
	Addr       string        `env:"REDIS_ADDR,        default=localhost:6379"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB,          default=0"`
	ProfileTTL time.Duration `env:"PROFILE_CACHE_TTL, default=10m"`
}

type KafkaConfig struct {
	Brokers           []string `env:"KAFKA_BROKERS,            default=localhost:9092"`
	TopicRegistration string   `env:"KAFKA_TOPIC_REGISTRATION, default=user.registration"`
	TopicLogin        string   `env:"KAFKA_TOPIC_LOGIN,        default=user.login"`
}

type EventsConfig struct {
	Workers int `env:"EVENT_WORKERS, default=4"`
	Buffer  int `env:"EVENT_BUFFER,  default=256"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// MustLoad is Load for process start-up; it panics on error.
func MustLoad() *Config {
	cfg, err := Load(context.Background())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverMongo:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres driver", domain.ErrFatal)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", domain.ErrFatal, c.Store.Driver)
	}
	if _, err := c.SigningKey(); err != nil {
		return err
	}
	return nil
}

// SigningKey decodes the base64 JWT secret. An unparsable key is fatal.
func (c *Config) SigningKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: JWT_SECRET is not valid base64: %v", domain.ErrFatal, err)
	}
	return key, nil
}

// IsDevelopment reports whether human-friendly logging should be enabled.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
