package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvAppEnv       = "APP_ENV"
	EnvNodeEnv      = "NODE_ENV"
	EnvHost         = "HOST"
	EnvPort         = "PORT"
	EnvPublicURL    = "PUBLIC_URL"
	EnvLogLevel     = "LOG_LEVEL"

	EnvRedisURL      = "REDIS_URL"
	EnvRedisAddr     = "RATE_LIMIT_REDIS_ADDR"
	EnvRedisPassword = "RATE_LIMIT_REDIS_PASSWORD"
	EnvRedisDB       = "RATE_LIMIT_REDIS_DB"
	EnvRedisPrefix   = "RATE_LIMIT_REDIS_PREFIX"
	EnvOperatorToken = "RATE_LIMIT_OPERATOR_TOKEN"
)

// Environments accepted by Validate.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
	EnvironmentTest        = "test"
)

const (
	defaultPort        = 8080
	defaultDatabaseDSN = "testimonials.db"
	defaultJWTExpiry   = 7 * 24 * time.Hour
	defaultLogFile     = "logs/server.log"
)

var (
	// ErrMissingJWTSecret indicates production started without a signing secret.
	ErrMissingJWTSecret = errors.New("missing jwt secret (set `jwt.secret` or JWT_SECRET)")
	// ErrInvalidPort indicates the listen port is outside 1-65535.
	ErrInvalidPort = errors.New("invalid port")
	// ErrUnknownEnvironment indicates an environment name Validate does not recognise.
	ErrUnknownEnvironment = errors.New("unknown environment")
)

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RateLimitConfig locates the shared counter store. OperatorToken unlocks the
// identity cache endpoints; empty keeps them closed.
type RateLimitConfig struct {
	RedisURL      string `yaml:"redis-url"`
	RedisAddr     string `yaml:"redis-addr"`
	RedisPassword string `yaml:"redis-password"`
	RedisDB       int    `yaml:"redis-db"`
	RedisPrefix   string `yaml:"redis-prefix"`
	OperatorToken string `yaml:"operator-token"`
}

// LoggingConfig controls log level and optional rotating file output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	ToFile bool   `yaml:"to-file"`
	File   string `yaml:"file"`
}

// Config holds resolved application configuration values.
type Config struct {
	ConfigPath  string          `yaml:"-"`
	Host        string          `yaml:"host"`
	Port        int             `yaml:"port"`
	Environment string          `yaml:"environment"`
	PublicURL   string          `yaml:"public-url"`
	DatabaseDSN string          `yaml:"database-dsn"`
	JWT         JWTConfig       `yaml:"jwt"`
	RateLimit   RateLimitConfig `yaml:"rate-limit"`
	Logging     LoggingConfig   `yaml:"logging"`
}

// IsProduction reports whether the production environment is active.
func (c Config) IsProduction() bool { return c.Environment == EnvironmentProduction }

// IsDevelopment reports whether the development environment is active.
func (c Config) IsDevelopment() bool { return c.Environment == EnvironmentDevelopment }

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads configPath (a missing file is fine), applies environment
// overrides and defaults, then validates the result.
func Load(configPath string) (Config, error) {
	cfg := Config{ConfigPath: configPath}

	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}

	if errEnv := applyEnv(&cfg); errEnv != nil {
		return Config{}, errEnv
	}
	applyDefaults(&cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	switch c.Environment {
	case EnvironmentDevelopment, EnvironmentProduction, EnvironmentTest:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnvironment, c.Environment)
	}
	if c.IsProduction() && strings.TrimSpace(c.JWT.Secret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&cfg.Host, EnvHost)
	setString(&cfg.Environment, EnvAppEnv, EnvNodeEnv)
	setString(&cfg.PublicURL, EnvPublicURL)
	setString(&cfg.DatabaseDSN, EnvDBConnection)
	setString(&cfg.JWT.Secret, EnvJWTSecret)
	setString(&cfg.Logging.Level, EnvLogLevel)
	setString(&cfg.RateLimit.RedisURL, EnvRedisURL)
	setString(&cfg.RateLimit.RedisAddr, EnvRedisAddr)
	setString(&cfg.RateLimit.RedisPassword, EnvRedisPassword)
	setString(&cfg.RateLimit.RedisPrefix, EnvRedisPrefix)
	setString(&cfg.RateLimit.OperatorToken, EnvOperatorToken)

	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		port, errParse := strconv.Atoi(raw)
		if errParse != nil {
			return fmt.Errorf("parse %s: %w", EnvPort, errParse)
		}
		cfg.Port = port
	}
	if raw := strings.TrimSpace(os.Getenv(EnvRedisDB)); raw != "" {
		db, errParse := strconv.Atoi(raw)
		if errParse != nil {
			return fmt.Errorf("parse %s: %w", EnvRedisDB, errParse)
		}
		cfg.RateLimit.RedisDB = db
	}
	if raw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); raw != "" {
		if expiry, errParse := time.ParseDuration(raw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.Environment == "" {
		cfg.Environment = EnvironmentDevelopment
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		cfg.DatabaseDSN = defaultDatabaseDSN
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	if cfg.Logging.ToFile && strings.TrimSpace(cfg.Logging.File) == "" {
		cfg.Logging.File = defaultLogFile
	}
	cfg.PublicURL = strings.TrimRight(strings.TrimSpace(cfg.PublicURL), "/")
}
