package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Store   StoreConfig
	Server  ServerConfig
	CORS    CORSConfig
	Logging LoggingConfig
}

// StoreConfig selects and locates the album store
type StoreConfig struct {
	Driver          string        `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI        string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string        `envconfig:"MONGO_DATABASE" default:"musicalog"`
	MongoCollection string        `envconfig:"MONGO_COLLECTION" default:"albums"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	ConnectTimeout  time.Duration `envconfig:"STORE_CONNECT_TIMEOUT" default:"30s"`
	SeedDemoData    bool          `envconfig:"SEED_DEMO_DATA" default:"false"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// Addr is the listen address for http.Server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

// LoggingConfig holds logging settings. File is optional and enables a
// rotated log file next to stdout.
type LoggingConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
	File   string `envconfig:"LOG_FILE"`
}

// Load reads configuration from environment variables, after applying any
// of the given dotenv files that exist. With no files, ".env" is tried.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	sections := []struct {
		name   string
		target any
	}{
		{"store", &cfg.Store},
		{"server", &cfg.Server},
		{"cors", &cfg.CORS},
		{"logging", &cfg.Logging},
	}
	for _, section := range sections {
		if err := envconfig.Process("", section.target); err != nil {
			return nil, fmt.Errorf("load %s config: %w", section.name, err)
		}
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)

	origins := c.CORS.AllowedOrigins[:0]
	for _, origin := range c.CORS.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.CORS.AllowedOrigins = origins
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" {
			problems = append(problems, "MONGO_URI is required for the mongo driver")
		}
		if c.Store.MongoDatabase == "" || c.Store.MongoCollection == "" {
			problems = append(problems, "MONGO_DATABASE and MONGO_COLLECTION must not be empty")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		problems = append(problems, "STORE_DRIVER must be one of: mongo, postgres, memory")
	}

	if c.Store.ConnectTimeout <= 0 {
		problems = append(problems, "STORE_CONNECT_TIMEOUT must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		problems = append(problems, "SHUTDOWN_TIMEOUT must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
