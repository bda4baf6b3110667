// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/testimonialkit/testimonialkit/internal/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB  = 50
	logMaxBackups = 5
	logMaxAgeDays = 14
)

// Setup applies formatter, level, redaction and output from cfg. The returned
// closer flushes the rotating log file, if one was opened.
func Setup(cfg config.Config) (io.Closer, error) {
	return configure(log.StandardLogger(), cfg, os.Stdout)
}

func configure(logger *log.Logger, cfg config.Config, stdout io.Writer) (io.Closer, error) {
	if cfg.IsProduction() {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, errLevel := resolveLevel(cfg)
	if errLevel != nil {
		return nil, errLevel
	}
	logger.SetLevel(level)

	logger.ReplaceHooks(make(log.LevelHooks))
	if cfg.IsProduction() {
		logger.AddHook(NewRedactHook())
	}

	if !cfg.Logging.ToFile {
		logger.SetOutput(stdout)
		return nopCloser{}, nil
	}
	if errMkdir := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); errMkdir != nil {
		return nil, fmt.Errorf("logging: create log dir: %w", errMkdir)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(stdout, rotator))
	return rotator, nil
}

// resolveLevel parses the configured level. Production never logs below info.
func resolveLevel(cfg config.Config) (log.Level, error) {
	raw := strings.TrimSpace(cfg.Logging.Level)
	if raw == "" {
		if cfg.IsProduction() {
			return log.InfoLevel, nil
		}
		return log.DebugLevel, nil
	}
	level, errParse := log.ParseLevel(raw)
	if errParse != nil {
		return log.InfoLevel, fmt.Errorf("logging: %w", errParse)
	}
	if cfg.IsProduction() && level > log.InfoLevel {
		level = log.InfoLevel
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
