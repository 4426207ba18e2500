package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/router-for-me/disqord/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// GuildSettingsStore persists guild settings via GORM.
type GuildSettingsStore struct {
	db *gorm.DB
}

// NewGuildSettingsStore constructs a GuildSettingsStore.
func NewGuildSettingsStore(db *gorm.DB) *GuildSettingsStore {
	return &GuildSettingsStore{db: db}
}

// Find returns the settings row for guildID or ErrNotFound.
func (s *GuildSettingsStore) Find(ctx context.Context, guildID string) (models.GuildSettings, error) {
	if s == nil || s.db == nil {
		return models.GuildSettings{}, fmt.Errorf("guild settings store: not initialized")
	}
	var row models.GuildSettings
	errFind := s.db.WithContext(ctx).Where("guild_id = ?", strings.TrimSpace(guildID)).First(&row).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return models.GuildSettings{}, ErrNotFound
	}
	if errFind != nil {
		return models.GuildSettings{}, fmt.Errorf("guild settings store: find: %w", errFind)
	}
	return row, nil
}

// Upsert inserts the row or updates every mutable column on conflict.
func (s *GuildSettingsStore) Upsert(ctx context.Context, row *models.GuildSettings) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("guild settings store: not initialized")
	}
	if row == nil || strings.TrimSpace(row.GuildID) == "" {
		return fmt.Errorf("guild settings store: missing guild id")
	}
	errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"default_model",
			"free_models_only",
			"release_channel_id",
			"show_llm_details",
			"updated_at",
		}),
	}).Create(row).Error
	if errUpsert != nil {
		return fmt.Errorf("guild settings store: upsert: %w", errUpsert)
	}
	return nil
}

// Delete removes the settings row for guildID.
func (s *GuildSettingsStore) Delete(ctx context.Context, guildID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("guild settings store: not initialized")
	}
	if errDelete := s.db.WithContext(ctx).Where("guild_id = ?", strings.TrimSpace(guildID)).Delete(&models.GuildSettings{}).Error; errDelete != nil {
		return fmt.Errorf("guild settings store: delete: %w", errDelete)
	}
	return nil
}

// ListWithReleaseChannel returns every guild that has a release channel configured.
func (s *GuildSettingsStore) ListWithReleaseChannel(ctx context.Context) ([]models.GuildSettings, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("guild settings store: not initialized")
	}
	var rows []models.GuildSettings
	errList := s.db.WithContext(ctx).
		Where("release_channel_id IS NOT NULL AND release_channel_id <> ?", "").
		Order("guild_id ASC").
		Find(&rows).Error
	if errList != nil {
		return nil, fmt.Errorf("guild settings store: list release channels: %w", errList)
	}
	return rows, nil
}
