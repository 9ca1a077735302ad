package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up by the CLI when --config is not given.
const DefaultFile = "swarmstate.yml"

// Environment variables that override file values.
const (
	EnvRedisURL = "REDIS_URL"
	EnvLogLevel = "SWARMSTATE_LOG_LEVEL"
)

// Config represents the top-level swarmstate.yml configuration
type Config struct {
	Redis  RedisConfig  `yaml:"redis"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// RedisConfig locates the backing Redis instance
type RedisConfig struct {
	URL string `yaml:"url" validate:"required"`
}

// StoreConfig tunes the state store
type StoreConfig struct {
	TTL                  time.Duration `yaml:"ttl"`                    // Expiry applied to every key (default 168h)
	ExhaustiveIndexSweep bool          `yaml:"exhaustive_index_sweep"` // Remove from every state index on state change
}

// LogConfig selects the zap logger
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// ServerConfig configures the health/metrics listener
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

var validate = validator.New()

// Default returns a configuration usable without a file.
func Default() *Config {
	return &Config{
		Redis:  RedisConfig{URL: "redis://localhost:6379"},
		Store:  StoreConfig{TTL: 7 * 24 * time.Hour},
		Log:    LogConfig{Level: "info", Format: "console"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%s: failed '%s' check (got %q)", fieldPath(fe.Namespace()), fe.Tag(), fmt.Sprint(fe.Value()))
		}
		return err
	}

	if c.Store.TTL <= 0 {
		return fmt.Errorf("store.ttl must be positive, got %s", c.Store.TTL)
	}

	if _, err := redis.ParseURL(c.Redis.URL); err != nil {
		return fmt.Errorf("redis.url is invalid: %w", err)
	}

	return nil
}

// RedisOptions converts the configured URL into go-redis options.
func (c *Config) RedisOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return opts, nil
}

// Load reads swarmstate.yml from path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	config.applyEnv(os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		c.Redis.URL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// fieldPath turns "Config.Log.Level" into "log.level".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}
