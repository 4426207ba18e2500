package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDiscordToken, "discord-token")
	t.Setenv(EnvDiscordAppID, "123456789")
	t.Setenv(EnvOpenRouterAPIKey, "or-key")
}

func clearOptionalEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvNodeEnv, EnvOpenRouterBaseURL, EnvDatabasePath, EnvDatabaseDSN, EnvDefaultModel,
		EnvHealthPort, EnvGitHubWebhookSecret, EnvLogLevel, EnvLogFile, EnvCatalogRefresh,
		EnvMentionRateLimit, EnvRedisAddr, EnvRedisPassword, EnvRedisDB, EnvRedisPrefix,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	clearOptionalEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.DatabasePath != DefaultDatabasePath {
		t.Fatalf("expected database path %q, got %q", DefaultDatabasePath, cfg.DatabasePath)
	}
	if cfg.DefaultModel != DefaultModel {
		t.Fatalf("expected default model %q, got %q", DefaultModel, cfg.DefaultModel)
	}
	if cfg.HealthPort != DefaultHealthPort {
		t.Fatalf("expected health port %d, got %d", DefaultHealthPort, cfg.HealthPort)
	}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Fatalf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.Redis.Enabled() {
		t.Fatalf("expected redis disabled by default")
	}
	if cfg.DatabaseTarget() != DefaultDatabasePath {
		t.Fatalf("expected sqlite target, got %q", cfg.DatabaseTarget())
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	clearOptionalEnv(t)
	t.Setenv(EnvDiscordToken, "discord-token")
	t.Setenv(EnvDiscordAppID, "123")
	t.Setenv(EnvOpenRouterAPIKey, "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("expected ErrMissingEnv, got %v", err)
	}
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	clearOptionalEnv(t)
	t.Setenv(EnvHealthPort, "8081")
	t.Setenv(EnvMentionRateLimit, "5")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "health-port: 4000\ndefault-model: file/model\ncatalog:\n  refresh-interval: 30m\nthrottle:\n  per-minute: 2\nredis:\n  addr: 127.0.0.1:6379\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HealthPort != 8081 {
		t.Fatalf("expected env health port 8081, got %d", cfg.HealthPort)
	}
	if cfg.DefaultModel != "file/model" {
		t.Fatalf("expected file default model, got %q", cfg.DefaultModel)
	}
	if cfg.Catalog.RefreshInterval != 30*time.Minute {
		t.Fatalf("expected refresh interval 30m, got %s", cfg.Catalog.RefreshInterval)
	}
	if cfg.Throttle.PerMinute != 5 {
		t.Fatalf("expected env throttle 5, got %d", cfg.Throttle.PerMinute)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.Prefix != DefaultRedisPrefix {
		t.Fatalf("unexpected redis config: %+v", cfg.Redis)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequiredEnv(t)
	clearOptionalEnv(t)
	t.Setenv(EnvHealthPort, "70000")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for out of range port")
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("DISQORD_TEST_A=from-file\nDISQORD_TEST_B=from-file\n"), 0600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("DISQORD_TEST_A", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("DISQORD_TEST_B") })

	if err := LoadDotEnv(filepath.Join(dir, ".env.local"), envPath); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := os.Getenv("DISQORD_TEST_A"); got != "from-env" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
	if got := os.Getenv("DISQORD_TEST_B"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}

func TestLoad_RejectsUnknownEnvironment(t *testing.T) {
	setRequiredEnv(t)
	clearOptionalEnv(t)
	t.Setenv(EnvNodeEnv, "staging")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for NODE_ENV=staging")
	}

	t.Setenv(EnvNodeEnv, "production")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production environment, got %q", cfg.Environment)
	}
}

func TestLoadFromEnv_UsesConfigPath(t *testing.T) {
	setRequiredEnv(t)
	clearOptionalEnv(t)
	configPath := filepath.Join(t.TempDir(), "bot.yaml")
	if err := os.WriteFile(configPath, []byte("default-model: env/path-model\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigPath, configPath)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.ConfigPath != configPath || cfg.DefaultModel != "env/path-model" {
		t.Fatalf("expected config from %s, got path %q model %q", configPath, cfg.ConfigPath, cfg.DefaultModel)
	}
}
