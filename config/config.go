package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	Database DatabaseConfig `envPrefix:"DB_"`
	Auth     AuthConfig
	MQ       MQConfig      `envPrefix:"MQ_"`
	Storage  StorageConfig `envPrefix:"STORAGE_"`
}

type DatabaseConfig struct {
	Driver   string `env:"DRIVER" envDefault:"postgres"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"roster"`
	Password string `env:"PASSWORD" envDefault:"password"`
	DBName   string `env:"NAME" envDefault:"roster_db"`
	UseSSL   bool   `env:"USE_SSL" envDefault:"false"`

	// Path is the database file used by the sqlite driver.
	Path string `env:"PATH" envDefault:"roster.db"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TOKEN_TTL" envDefault:"24h"`

	// Required puts the player write routes behind bearer authentication.
	Required bool `env:"AUTH_REQUIRED" envDefault:"false"`
}

type MQConfig struct {
	// Backend is "rabbitmq", "pubsub" or empty to disable events.
	Backend             string         `env:"BACKEND"`
	PlayerEventsChannel string         `env:"PLAYER_EVENTS_CHANNEL" envDefault:"player-events"`
	RabbitMQ            RabbitMQConfig `envPrefix:"RABBITMQ_"`
	PubSub              PubSubConfig   `envPrefix:"PUBSUB_"`
}

type RabbitMQConfig struct {
	URL             string `env:"URL"`
	PrefetchCount   int    `env:"PREFETCH_COUNT" envDefault:"10"`
	QueueDurable    bool   `env:"QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"QUEUE_AUTO_DELETE" envDefault:"false"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PROJECT_ID"`
	CredentialsFile    string `env:"CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

type StorageConfig struct {
	// Backend is "minio", "gcs" or empty to disable exports.
	Backend string      `env:"BACKEND"`
	Minio   MinioConfig `envPrefix:"MINIO_"`
	GCS     GCSConfig   `envPrefix:"GCS_"`
}

type MinioConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"roster-exports"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

type GCSConfig struct {
	Bucket          string `env:"BUCKET"`
	ProjectID       string `env:"PROJECT_ID"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
}

// LoadConfig reads the configuration from the environment. When ENV=dev a
// local .env file is loaded first.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values env parsing cannot express.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.MQ.Backend {
	case "", "rabbitmq", "pubsub":
	default:
		return fmt.Errorf("unsupported MQ_BACKEND %q", c.MQ.Backend)
	}
	switch c.Storage.Backend {
	case "", "minio", "gcs":
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_REQUIRED is set")
	}
	return nil
}
