package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port               int           `envconfig:"PORT" default:"8080"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	Version            string        `envconfig:"VERSION" default:"dev"`
	DatabaseDriver     string        `envconfig:"DATABASE_DRIVER" default:"postgres"`
	DatabaseURL        string        `envconfig:"DATABASE_URL" required:"true"`
	MigrateOnStart     bool          `envconfig:"MIGRATE_ON_START" default:"true"`
	JWTSecret          string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer          string        `envconfig:"JWT_ISSUER" default:"WebBaseApiIssuer"`
	JWTAudience        string        `envconfig:"JWT_AUDIENCE" default:"WebBaseApiAudience"`
	TokenTTL           time.Duration `envconfig:"TOKEN_TTL" default:"168h"`
	BcryptCost         int           `envconfig:"BCRYPT_COST" default:"10"`
	AdminRole          string        `envconfig:"ADMIN_ROLE" default:"admin"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDatabase reads only what the migrate and seed commands need, so they
// run without a signing secret.
func LoadDatabase() (*Config, error) {
	var cfg struct {
		DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"postgres"`
		DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
		LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
		BcryptCost     int    `envconfig:"BCRYPT_COST" default:"10"`
		AdminRole      string `envconfig:"ADMIN_ROLE" default:"admin"`
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	out := &Config{
		DatabaseDriver: cfg.DatabaseDriver,
		DatabaseURL:    cfg.DatabaseURL,
		LogLevel:       cfg.LogLevel,
		BcryptCost:     cfg.BcryptCost,
		AdminRole:      cfg.AdminRole,
	}
	if err := out.validateDriver(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Config) validate() error {
	if err := c.validateDriver(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.AdminRole == "" {
		return fmt.Errorf("ADMIN_ROLE must not be empty")
	}
	return nil
}

func (c *Config) validateDriver() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite3":
		return nil
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite3, got %q", c.DatabaseDriver)
	}
}
