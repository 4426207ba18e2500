package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath          = "CONFIG_PATH"
	EnvNodeEnv             = "NODE_ENV"
	EnvDiscordToken        = "DISCORD_TOKEN"
	EnvDiscordAppID        = "DISCORD_APPLICATION_ID"
	EnvOpenRouterAPIKey    = "OPENROUTER_API_KEY"
	EnvOpenRouterBaseURL   = "OPENROUTER_BASE_URL"
	EnvDatabasePath        = "DATABASE_PATH"
	EnvDatabaseDSN         = "DATABASE_DSN"
	EnvDefaultModel        = "DEFAULT_MODEL"
	EnvHealthPort          = "HEALTH_PORT"
	EnvGitHubWebhookSecret = "GITHUB_WEBHOOK_SECRET"
	EnvLogLevel            = "LOG_LEVEL"
	EnvLogFile             = "LOG_FILE"
	EnvCatalogRefresh      = "CATALOG_REFRESH_INTERVAL"
	EnvMentionRateLimit    = "MENTION_RATE_LIMIT"
	EnvRedisAddr           = "REDIS_ADDR"
	EnvRedisPassword       = "REDIS_PASSWORD"
	EnvRedisDB             = "REDIS_DB"
	EnvRedisPrefix         = "REDIS_PREFIX"
)

// Defaults applied when neither the environment nor the config file sets a value.
const (
	DefaultEnvironment       = "development"
	DefaultDatabasePath      = "data/disqord.db"
	DefaultModel             = "deepseek/deepseek-r1-0528:free"
	DefaultHealthPort        = 3000
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultRedisPrefix       = "disqord:rl"
)

// ErrMissingEnv indicates a required environment variable is unset.
var ErrMissingEnv = errors.New("missing required environment variable")

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// CatalogConfig holds model catalog refresh settings.
type CatalogConfig struct {
	RefreshInterval time.Duration `yaml:"refresh-interval"`
}

// ThrottleConfig holds the per-user mention throttle.
type ThrottleConfig struct {
	PerMinute int `yaml:"per-minute"` // 0 disables the throttle.
}

// RedisConfig holds the optional Redis backend for the mention throttle.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string

	Environment          string
	DiscordToken         string
	DiscordApplicationID string
	OpenRouterAPIKey     string
	OpenRouterBaseURL    string
	DatabasePath         string
	DatabaseDSN          string
	DefaultModel         string
	HealthPort           int
	GitHubWebhookSecret  string

	Log      LogConfig
	Catalog  CatalogConfig
	Throttle ThrottleConfig
	Redis    RedisConfig
}

// IsProduction reports whether the bot runs with NODE_ENV=production.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// IsDevelopment reports whether the bot runs with NODE_ENV=development.
func (c AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// DatabaseTarget returns the DSN when set, otherwise the sqlite database path.
func (c AppConfig) DatabaseTarget() string {
	if dsn := strings.TrimSpace(c.DatabaseDSN); dsn != "" {
		return dsn
	}
	return c.DatabasePath
}

// fileConfig maps the non-secret YAML fields.
type fileConfig struct {
	Environment       string         `yaml:"environment"`
	OpenRouterBaseURL string         `yaml:"openrouter-base-url"`
	DatabasePath      string         `yaml:"database-path"`
	DatabaseDSN       string         `yaml:"database-dsn"`
	DefaultModel      string         `yaml:"default-model"`
	HealthPort        int            `yaml:"health-port"`
	Log               LogConfig      `yaml:"log"`
	Catalog           CatalogConfig  `yaml:"catalog"`
	Throttle          ThrottleConfig `yaml:"throttle"`
	Redis             RedisConfig    `yaml:"redis"`
}

// LoadDotEnv loads .env.local then .env without overriding variables already set.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env.local", ".env"}
	}
	for _, p := range paths {
		if _, errStat := os.Stat(p); errStat != nil {
			continue
		}
		if errLoad := godotenv.Load(p); errLoad != nil {
			return fmt.Errorf("load %s: %w", p, errLoad)
		}
	}
	return nil
}

// LoadFromEnv loads app config from the optional YAML file and environment variables.
func LoadFromEnv() (AppConfig, error) {
	return Load(os.Getenv(EnvConfigPath))
}

// Load resolves configuration using configPath for the optional YAML file.
func Load(configPath string) (AppConfig, error) {
	cfg := AppConfig{
		ConfigPath:        ResolveConfigPath(configPath),
		Environment:       DefaultEnvironment,
		OpenRouterBaseURL: DefaultOpenRouterBaseURL,
		DatabasePath:      DefaultDatabasePath,
		DefaultModel:      DefaultModel,
		HealthPort:        DefaultHealthPort,
		Redis:             RedisConfig{Prefix: DefaultRedisPrefix},
	}

	if errFile := applyFile(&cfg, cfg.ConfigPath); errFile != nil {
		return AppConfig{}, errFile
	}
	if errEnv := applyEnv(&cfg); errEnv != nil {
		return AppConfig{}, errEnv
	}
	if errValidate := cfg.Validate(); errValidate != nil {
		return AppConfig{}, errValidate
	}
	return cfg, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Validate checks required values and ranges.
func (c AppConfig) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{EnvDiscordToken, c.DiscordToken},
		{EnvOpenRouterAPIKey, c.OpenRouterAPIKey},
		{EnvDiscordAppID, c.DiscordApplicationID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingEnv, r.key)
		}
	}
	if !c.IsDevelopment() && !c.IsProduction() {
		return fmt.Errorf("invalid %s: %q (expected development or production)", EnvNodeEnv, c.Environment)
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("invalid %s: %d", EnvHealthPort, c.HealthPort)
	}
	if c.Throttle.PerMinute < 0 {
		return fmt.Errorf("invalid %s: %d", EnvMentionRateLimit, c.Throttle.PerMinute)
	}
	return nil
}

func applyFile(cfg *AppConfig, configPath string) error {
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if errors.Is(errRead, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", errRead)
	}

	var fc fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &fc); errUnmarshal != nil {
		return fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	setString(&cfg.Environment, fc.Environment)
	setString(&cfg.OpenRouterBaseURL, fc.OpenRouterBaseURL)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.DefaultModel, fc.DefaultModel)
	if fc.HealthPort != 0 {
		cfg.HealthPort = fc.HealthPort
	}
	cfg.Log = fc.Log
	cfg.Catalog = fc.Catalog
	cfg.Throttle = fc.Throttle
	setString(&cfg.Redis.Addr, fc.Redis.Addr)
	setString(&cfg.Redis.Password, fc.Redis.Password)
	setString(&cfg.Redis.Prefix, fc.Redis.Prefix)
	if fc.Redis.DB > 0 {
		cfg.Redis.DB = fc.Redis.DB
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	setString(&cfg.Environment, os.Getenv(EnvNodeEnv))
	setString(&cfg.DiscordToken, os.Getenv(EnvDiscordToken))
	setString(&cfg.DiscordApplicationID, os.Getenv(EnvDiscordAppID))
	setString(&cfg.OpenRouterAPIKey, os.Getenv(EnvOpenRouterAPIKey))
	setString(&cfg.OpenRouterBaseURL, os.Getenv(EnvOpenRouterBaseURL))
	setString(&cfg.DatabasePath, os.Getenv(EnvDatabasePath))
	setString(&cfg.DatabaseDSN, os.Getenv(EnvDatabaseDSN))
	setString(&cfg.DefaultModel, os.Getenv(EnvDefaultModel))
	setString(&cfg.GitHubWebhookSecret, os.Getenv(EnvGitHubWebhookSecret))
	setString(&cfg.Log.Level, os.Getenv(EnvLogLevel))
	setString(&cfg.Log.File, os.Getenv(EnvLogFile))
	setString(&cfg.Redis.Addr, os.Getenv(EnvRedisAddr))
	setString(&cfg.Redis.Password, os.Getenv(EnvRedisPassword))
	setString(&cfg.Redis.Prefix, os.Getenv(EnvRedisPrefix))

	if raw := strings.TrimSpace(os.Getenv(EnvHealthPort)); raw != "" {
		port, errParse := strconv.Atoi(raw)
		if errParse != nil {
			return fmt.Errorf("parse %s: %w", EnvHealthPort, errParse)
		}
		cfg.HealthPort = port
	}
	if raw := strings.TrimSpace(os.Getenv(EnvCatalogRefresh)); raw != "" {
		interval, errParse := time.ParseDuration(raw)
		if errParse != nil {
			return fmt.Errorf("parse %s: %w", EnvCatalogRefresh, errParse)
		}
		cfg.Catalog.RefreshInterval = interval
	}
	if raw := strings.TrimSpace(os.Getenv(EnvMentionRateLimit)); raw != "" {
		limit, errParse := strconv.Atoi(raw)
		if errParse != nil {
			return fmt.Errorf("parse %s: %w", EnvMentionRateLimit, errParse)
		}
		cfg.Throttle.PerMinute = limit
	}
	if raw := strings.TrimSpace(os.Getenv(EnvRedisDB)); raw != "" {
		db, errParse := strconv.Atoi(raw)
		if errParse != nil || db < 0 {
			return fmt.Errorf("invalid %s: %q", EnvRedisDB, raw)
		}
		cfg.Redis.DB = db
	}
	if strings.TrimSpace(cfg.Redis.Prefix) == "" {
		cfg.Redis.Prefix = DefaultRedisPrefix
	}
	return nil
}

func setString(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}
