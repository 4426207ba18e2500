package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/router-for-me/disqord/internal/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 20
	defaultMaxBackups = 5
	defaultMaxAgeDays = 14
)

// Setup configures the global logrus logger and returns a closer for the log file, if any.
func Setup(cfg config.AppConfig) io.Closer {
	log.SetLevel(resolveLevel(cfg))
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	path := strings.TrimSpace(cfg.Log.File)
	if path == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}
	if errMkdir := os.MkdirAll(filepath.Dir(path), 0o755); errMkdir != nil {
		log.WithError(errMkdir).Warn("logging: create log directory failed, using stdout only")
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    positiveOr(cfg.Log.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: positiveOr(cfg.Log.MaxBackups, defaultMaxBackups),
		MaxAge:     positiveOr(cfg.Log.MaxAgeDays, defaultMaxAgeDays),
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator
}

func resolveLevel(cfg config.AppConfig) log.Level {
	if raw := strings.TrimSpace(cfg.Log.Level); raw != "" {
		if level, errParse := log.ParseLevel(raw); errParse == nil {
			return level
		}
	}
	if cfg.IsDevelopment() {
		return log.DebugLevel
	}
	return log.InfoLevel
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
