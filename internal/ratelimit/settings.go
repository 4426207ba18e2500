package ratelimit

import (
	"strings"

	"github.com/router-for-me/disqord/internal/config"
)

// SettingsConfig captures the throttle and its optional Redis backend.
type SettingsConfig struct {
	Limit         int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// SettingsFromConfig derives throttle settings from the application config.
func SettingsFromConfig(cfg config.AppConfig) SettingsConfig {
	out := SettingsConfig{
		Limit:         cfg.Throttle.PerMinute,
		RedisEnabled:  cfg.Redis.Enabled(),
		RedisAddr:     strings.TrimSpace(cfg.Redis.Addr),
		RedisPassword: strings.TrimSpace(cfg.Redis.Password),
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   strings.TrimSpace(cfg.Redis.Prefix),
	}
	if out.RedisPrefix == "" {
		out.RedisPrefix = config.DefaultRedisPrefix
	}
	if out.RedisDB < 0 {
		out.RedisDB = 0
	}
	if out.Limit < 0 {
		out.Limit = 0
	}
	return out
}
