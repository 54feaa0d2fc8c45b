package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the application,
// e.g. ADDR2COO_PROVIDER_API_KEY for provider.api_key.
const EnvPrefix = "ADDR2COO"

// Config holds the configuration settings for a resolver run.
type Config struct {
	Env          string         `mapstructure:"env"`           // Env is the current environment: local, development, production.
	Input        InputConfig    `mapstructure:"input"`         // Input describes the address list.
	Output       OutputConfig   `mapstructure:"output"`        // Output describes where resolved records are persisted.
	Provider     ProviderConfig `mapstructure:"provider"`      // Provider selects and configures the geocoding service.
	RequestDelay time.Duration  `mapstructure:"request_delay"` // RequestDelay is the pause after every lookup.
	Metrics      MetricsConfig  `mapstructure:"metrics"`
}

// InputConfig points at the input CSV and names its address column.
type InputConfig struct {
	Path   string `mapstructure:"path"`
	Column string `mapstructure:"column"`
}

// OutputConfig selects the output store.
type OutputConfig struct {
	Type     string         `mapstructure:"type"` // Type is csv or postgres.
	Path     string         `mapstructure:"path"` // Path is used by the csv store.
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`     // Host is the database server address.
	Port     string `mapstructure:"port"`     // Port is the database server port.
	User     string `mapstructure:"user"`     // User is the database user.
	Password string `mapstructure:"password"` // Password is the database user's password.
	Name     string `mapstructure:"db_name"`  // Name is the name of the database.
}

// ProviderConfig configures the geocoding provider.
type ProviderConfig struct {
	Type      string        `mapstructure:"type"`
	APIKey    string        `mapstructure:"api_key"`
	Language  string        `mapstructure:"language"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // RateLimit is requests per second, 0 keeps the provider default.
}

// MetricsConfig controls the metrics export.
type MetricsConfig struct {
	File string `mapstructure:"file"` // File is a textfile collector target; empty disables the export.
}

// Load reads the configuration from defaults, an optional config.yaml in the working
// directory, a .env file and ADDR2COO_* environment variables, in increasing priority.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper knows about, so every key gets a default.
	v.SetDefault("env", "local")
	v.SetDefault("input.path", "input.csv")
	v.SetDefault("input.column", "address")
	v.SetDefault("output.type", "csv")
	v.SetDefault("output.path", "output.csv")
	v.SetDefault("output.postgres.host", "")
	v.SetDefault("output.postgres.port", "5432")
	v.SetDefault("output.postgres.user", "")
	v.SetDefault("output.postgres.password", "")
	v.SetDefault("output.postgres.db_name", "")
	v.SetDefault("provider.type", "mapbox")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.language", "zh")
	v.SetDefault("provider.timeout", "10s")
	v.SetDefault("provider.rate_limit", 0)
	v.SetDefault("request_delay", "200ms")
	v.SetDefault("metrics.file", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad loads the configuration and panics if it is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func (c *Config) validate() error {
	switch {
	case strings.TrimSpace(c.Input.Column) == "":
		return errors.New("input column must not be empty")
	case c.RequestDelay < 0:
		return errors.New("request delay must not be negative")
	case c.Provider.Timeout < 0:
		return errors.New("provider timeout must not be negative")
	case c.Provider.RateLimit < 0:
		return errors.New("provider rate limit must not be negative")
	}

	return nil
}
