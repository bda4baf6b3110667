package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/testimonialkit/testimonialkit/internal/config"
	"github.com/testimonialkit/testimonialkit/internal/db"
	"github.com/testimonialkit/testimonialkit/internal/security"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteConfigFile when the target already exists.
var ErrConfigExists = errors.New("config file already exists")

const defaultSQLitePath = "testimonials.db"

// InitOptions holds the values written to a fresh config file.
type InitOptions struct {
	Port        int
	DatabaseDSN string
	Environment string
	PublicURL   string
	RedisURL    string
}

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Host        string       `yaml:"host"`
	Port        int          `yaml:"port"`
	Environment string       `yaml:"environment"`
	PublicURL   string       `yaml:"public-url,omitempty"`
	DatabaseDSN string       `yaml:"database-dsn"`
	JWT         jwtCfg       `yaml:"jwt"`
	RateLimit   rateLimitCfg `yaml:"rate-limit"`
	Logging     loggingCfg   `yaml:"logging"`
}

type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

type rateLimitCfg struct {
	RedisURL string `yaml:"redis-url,omitempty"`
}

type loggingCfg struct {
	Level  string `yaml:"level"`
	ToFile bool   `yaml:"to-file"`
}

// WriteConfigFile writes a starter config with a freshly generated JWT secret.
// It never overwrites an existing file.
func WriteConfigFile(configPath string, opts InitOptions) error {
	if ConfigExists(configPath) {
		return fmt.Errorf("%w: %s", ErrConfigExists, configPath)
	}

	secret, errSecret := security.GenerateRandomString(32)
	if errSecret != nil {
		return fmt.Errorf("generate jwt secret: %w", errSecret)
	}

	port := opts.Port
	if port == 0 {
		port = 8080
	}
	dsn := strings.TrimSpace(opts.DatabaseDSN)
	if dsn == "" {
		dsn = db.BuildSQLiteDSN(defaultSQLitePath)
	}
	environment := strings.TrimSpace(opts.Environment)
	if environment == "" {
		environment = config.EnvironmentDevelopment
	}
	level := "debug"
	if environment == config.EnvironmentProduction {
		level = "info"
	}

	cfg := configFile{
		Port:        port,
		Environment: environment,
		PublicURL:   strings.TrimRight(strings.TrimSpace(opts.PublicURL), "/"),
		DatabaseDSN: dsn,
		JWT: jwtCfg{
			Secret: secret,
			Expiry: "168h",
		},
		RateLimit: rateLimitCfg{
			RedisURL: strings.TrimSpace(opts.RedisURL),
		},
		Logging: loggingCfg{
			Level:  level,
			ToFile: environment == config.EnvironmentProduction,
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}
