package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/router-for-me/disqord/internal/config"
	"github.com/router-for-me/disqord/internal/models"
)

func TestMigrate_SQLite(t *testing.T) {
	cfg := config.AppConfig{DatabasePath: filepath.Join(t.TempDir(), "nested", "disqord.db")}
	if err := Migrate(context.Background(), cfg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	conn, err := openDatabase(cfg)
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer func() { _ = closeDatabase(conn) }()
	if !conn.Migrator().HasTable(&models.GuildSettings{}) {
		t.Fatalf("expected guild_settings table")
	}
	if !conn.Migrator().HasTable(&models.ReleaseDelivery{}) {
		t.Fatalf("expected release_deliveries table")
	}
}

func TestWrapComponent(t *testing.T) {
	if err := wrapComponent("http", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := wrapComponent("http", context.Canceled); err != nil {
		t.Fatalf("expected cancellation to be ignored, got %v", err)
	}
	errBoom := errors.New("boom")
	err := wrapComponent("discord", errBoom)
	if !errors.Is(err, errBoom) || err.Error() != "discord: boom" {
		t.Fatalf("unexpected error %v", err)
	}
}
