package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/testimonialkit/testimonialkit/internal/app"
	"github.com/testimonialkit/testimonialkit/internal/config"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := run(ctx, os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		stop()
		os.Exit(1)
	}
}

// run loads .env and config, then writes a starter config, migrates, or serves.
func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	cfgPath := flags.String("config", "", "config file path (or env CONFIG_PATH)")
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	port := flags.Int("port", 0, "override the listen port")
	initConfig := flags.Bool("init", false, "write a starter config file and exit")
	migrateOnly := flags.Bool("migrate", false, "run database migrations and exit")
	if errParse := flags.Parse(args); errParse != nil {
		return errParse
	}

	if errEnv := loadDotenv(*envFile); errEnv != nil {
		return errEnv
	}

	configPath := config.ResolveConfigPath(*cfgPath)
	if *initConfig {
		if errWrite := app.WriteConfigFile(configPath, app.InitOptions{
			Port:        *port,
			DatabaseDSN: os.Getenv(config.EnvDBConnection),
			Environment: firstNonEmpty(os.Getenv(config.EnvAppEnv), os.Getenv(config.EnvNodeEnv)),
			PublicURL:   os.Getenv(config.EnvPublicURL),
			RedisURL:    os.Getenv(config.EnvRedisURL),
		}); errWrite != nil {
			return errWrite
		}
		log.Infof("wrote config to %s", configPath)
		return nil
	}

	if !app.ConfigExists(configPath) {
		log.Infof("config file not found at %s, using environment and defaults", configPath)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
		if errValidate := cfg.Validate(); errValidate != nil {
			return errValidate
		}
	}

	if *migrateOnly {
		return app.Migrate(ctx, cfg)
	}
	return app.RunServer(ctx, cfg)
}

// loadDotenv loads path into the environment; a missing file is not an error.
func loadDotenv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if errLoad := godotenv.Load(path); errLoad != nil {
		if errors.Is(errLoad, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, errLoad)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
