package db

import (
	"fmt"

	"github.com/router-for-me/disqord/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
// Migrations only add tables, columns and indexes.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.GuildSettings{},
		&models.ReleaseDelivery{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_guild_settings_release_channel_set
		ON guild_settings (guild_id) WHERE release_channel_id IS NOT NULL
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create release channel index: %w", errIndex)
	}
	return nil
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errPragma := conn.Exec("PRAGMA journal_mode=WAL").Error; errPragma != nil {
		return fmt.Errorf("db: enable wal: %w", errPragma)
	}
	if errAutoMigrate := conn.AutoMigrate(
		&models.GuildSettings{},
		&models.ReleaseDelivery{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_guild_settings_release_channel_set
		ON guild_settings (guild_id) WHERE release_channel_id IS NOT NULL
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create release channel index: %w", errIndex)
	}
	return nil
}
