// Package app wires configuration, storage and services into the running bot.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/router-for-me/disqord/internal/bot"
	"github.com/router-for-me/disqord/internal/chat"
	"github.com/router-for-me/disqord/internal/config"
	"github.com/router-for-me/disqord/internal/db"
	"github.com/router-for-me/disqord/internal/http/api"
	"github.com/router-for-me/disqord/internal/modelcatalog"
	"github.com/router-for-me/disqord/internal/openrouter"
	"github.com/router-for-me/disqord/internal/ratelimit"
	"github.com/router-for-me/disqord/internal/release"
	"github.com/router-for-me/disqord/internal/settings"
	"github.com/router-for-me/disqord/internal/store"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Version is reported in the bot presence and the status command. It is
// overridden at build time with -ldflags "-X".
var Version = "dev"

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	return closeDatabase(conn)
}

func openDatabase(cfg config.AppConfig) (*gorm.DB, error) {
	conn, err := db.Open(cfg.DatabaseTarget())
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		_ = closeDatabase(conn)
		return nil, errMigrate
	}
	log.WithField("dialect", db.DialectName(conn)).Info("database ready")
	return conn, nil
}

func closeDatabase(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunServer starts the Discord session and the HTTP server and blocks until
// ctx is cancelled or either component fails.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	conn, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := closeDatabase(conn); errClose != nil {
			log.WithError(errClose).Warn("close database failed")
		}
	}()

	settingsService := settings.NewService(store.NewGuildSettingsStore(conn), cfg.DefaultModel)
	client := openrouter.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL)
	catalog := modelcatalog.NewService(client)
	chatService := chat.NewService(client, settingsService)

	throttle := ratelimit.NewManager(ratelimit.StaticSettings(ratelimit.SettingsFromConfig(cfg)), nil, nil)
	defer func() {
		if errClose := throttle.Close(); errClose != nil {
			log.WithError(errClose).Warn("close mention throttle failed")
		}
	}()

	discord, err := bot.New(bot.Options{
		Token:         cfg.DiscordToken,
		ApplicationID: cfg.DiscordApplicationID,
		HandlerOptions: bot.HandlerOptions{
			Settings: settingsService,
			Catalog:  catalog,
			Upstream: client,
			Chat:     chatService,
			Throttle: throttle,
			Version:  Version,
		},
	})
	if err != nil {
		return err
	}

	api.ConfigureMode(cfg.Environment)
	server := api.NewServer(api.Options{
		Port:          cfg.HealthPort,
		WebhookSecret: cfg.GitHubWebhookSecret,
		Gateway:       discord,
		Notifier:      release.NewNotifier(discord, settingsService),
		Recorder:      store.NewReleaseDeliveryStore(conn),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	modelcatalog.NewSyncer(catalog, cfg.Catalog.RefreshInterval).Start(runCtx)

	errCh := make(chan error, 2)
	go func() { errCh <- wrapComponent("discord", discord.Run(runCtx)) }()
	go func() { errCh <- wrapComponent("http", server.Run(runCtx)) }()

	log.WithFields(log.Fields{
		"version":     Version,
		"environment": cfg.Environment,
		"port":        cfg.HealthPort,
	}).Info("disqord started")

	var firstErr error
	for i := 0; i < 2; i++ {
		errRun := <-errCh
		if errRun != nil && firstErr == nil {
			firstErr = errRun
		}
		// Either component stopping brings the other one down.
		cancel()
	}
	if firstErr != nil {
		return firstErr
	}
	log.Info("disqord stopped")
	return nil
}

func wrapComponent(name string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
