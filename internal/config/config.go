package config

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported values for Database.Driver and Images.Backend.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	BackendFilesystem = "filesystem"
	BackendGCS        = "gcs"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"HTTP_SERVER_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`     // e.g., debug, info, warn, error
	FrontURL   string `envconfig:"FRONT_URL" default:"http://localhost:3000"`
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Database   DatabaseConfig
	Images     ImageConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"9000"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// DatabaseConfig selects the SQL backend. SQLite is the default; the
// Postgres block is only consulted when Driver is "postgres".
type DatabaseConfig struct {
	Driver     string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"db/mercari.sqlite3"`
	Postgres   PostgresConfig
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
}

// ImageConfig holds the image store settings.
type ImageConfig struct {
	Backend string `envconfig:"IMAGE_BACKEND" default:"filesystem"`
	Dir     string `envconfig:"IMAGE_DIR" default:"images"`
	Default string `envconfig:"IMAGE_DEFAULT" default:"default.jpg"`
	Bucket  string `envconfig:"GCS_BUCKET"`
	Prefix  string `envconfig:"GCS_PREFIX"`

	CredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`
	Endpoint        string `envconfig:"GCS_ENDPOINT"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// SQLiteDSN returns a modernc.org/sqlite DSN for the configured file. The
// pragmas are part of the DSN so every pooled connection gets them.
func (dc *DatabaseConfig) SQLiteDSN() string {
	return "file:" + filepath.ToSlash(dc.SQLitePath) +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH must not be empty"))
		}
	case DriverPostgres:
		pg := c.Database.Postgres
		if pg.Host == "" || pg.User == "" || pg.DBName == "" {
			errs = append(errs, errors.New("POSTGRES_HOST, POSTGRES_USER and POSTGRES_DBNAME are required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}

	switch c.Images.Backend {
	case BackendFilesystem:
		if c.Images.Dir == "" {
			errs = append(errs, errors.New("IMAGE_DIR must not be empty"))
		}
	case BackendGCS:
		if c.Images.Bucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs image backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported IMAGE_BACKEND %q", c.Images.Backend))
	}
	if c.Images.Default == "" {
		errs = append(errs, errors.New("IMAGE_DEFAULT must not be empty"))
	}
	return errors.Join(errs...)
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	log.Println("Loading service configuration...")
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Printf("Configuration loaded successfully for APP_ENV: %s (db driver %s, image backend %s)",
		cfg.AppEnv, cfg.Database.Driver, cfg.Images.Backend)
	return &cfg, nil
}
