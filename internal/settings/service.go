package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/disqord/internal/models"
	"github.com/router-for-me/disqord/internal/store"
	log "github.com/sirupsen/logrus"
)

// Repository persists guild settings rows.
type Repository interface {
	Find(ctx context.Context, guildID string) (models.GuildSettings, error)
	Upsert(ctx context.Context, row *models.GuildSettings) error
	Delete(ctx context.Context, guildID string) error
	ListWithReleaseChannel(ctx context.Context) ([]models.GuildSettings, error)
}

// Service resolves guild settings, materializing defaults on first read.
type Service struct {
	repo         Repository
	defaultModel string
	now          func() time.Time
}

// NewService constructs a settings Service.
func NewService(repo Repository, defaultModel string) *Service {
	return &Service{
		repo:         repo,
		defaultModel: strings.TrimSpace(defaultModel),
		now:          time.Now,
	}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// GetGuildSettings returns the stored settings or persists and returns defaults.
func (s *Service) GetGuildSettings(ctx context.Context, guildID string) (models.GuildSettings, error) {
	if s == nil || s.repo == nil {
		return models.GuildSettings{}, fmt.Errorf("settings: not initialized")
	}
	row, errFind := s.repo.Find(ctx, guildID)
	if errFind == nil {
		return row, nil
	}
	if !errors.Is(errFind, store.ErrNotFound) {
		return models.GuildSettings{}, fmt.Errorf("settings: load guild %s: %w", guildID, errFind)
	}

	now := s.clock()
	defaults := models.GuildSettings{
		GuildID:          guildID,
		DefaultModel:     s.defaultModel,
		FreeModelsOnly:   DefaultFreeModelsOnly,
		ReleaseChannelID: nil,
		ShowLlmDetails:   DefaultShowLlmDetails,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if errUpsert := s.repo.Upsert(ctx, &defaults); errUpsert != nil {
		return models.GuildSettings{}, fmt.Errorf("settings: create defaults for guild %s: %w", guildID, errUpsert)
	}
	log.WithField("guild_id", guildID).Info("settings: created default guild settings")
	return defaults, nil
}

// update reads current settings, applies mutate and upserts the result.
func (s *Service) update(ctx context.Context, guildID string, mutate func(*models.GuildSettings)) (models.GuildSettings, error) {
	current, err := s.GetGuildSettings(ctx, guildID)
	if err != nil {
		return models.GuildSettings{}, err
	}
	mutate(&current)
	current.UpdatedAt = s.clock()
	if errUpsert := s.repo.Upsert(ctx, &current); errUpsert != nil {
		return models.GuildSettings{}, fmt.Errorf("settings: save guild %s: %w", guildID, errUpsert)
	}
	return current, nil
}

// SetGuildModel stores the model used for the guild's chat replies.
func (s *Service) SetGuildModel(ctx context.Context, guildID, model string) (models.GuildSettings, error) {
	return s.update(ctx, guildID, func(g *models.GuildSettings) {
		g.DefaultModel = strings.TrimSpace(model)
	})
}

// SetFreeModelsOnly toggles the free-only policy.
func (s *Service) SetFreeModelsOnly(ctx context.Context, guildID string, enabled bool) (models.GuildSettings, error) {
	return s.update(ctx, guildID, func(g *models.GuildSettings) {
		g.FreeModelsOnly = enabled
	})
}

// SetReleaseChannel sets or, with nil, clears the release notification channel.
func (s *Service) SetReleaseChannel(ctx context.Context, guildID string, channelID *string) (models.GuildSettings, error) {
	var normalized *string
	if channelID != nil {
		if trimmed := strings.TrimSpace(*channelID); trimmed != "" {
			normalized = &trimmed
		}
	}
	return s.update(ctx, guildID, func(g *models.GuildSettings) {
		g.ReleaseChannelID = normalized
	})
}

// SetShowLlmDetails sets whether replies carry usage details.
func (s *Service) SetShowLlmDetails(ctx context.Context, guildID string, show bool) (models.GuildSettings, error) {
	return s.update(ctx, guildID, func(g *models.GuildSettings) {
		g.ShowLlmDetails = show
	})
}

// ToggleShowLlmDetails flips the details flag and returns the new value.
func (s *Service) ToggleShowLlmDetails(ctx context.Context, guildID string) (bool, error) {
	updated, err := s.update(ctx, guildID, func(g *models.GuildSettings) {
		g.ShowLlmDetails = !g.ShowLlmDetails
	})
	if err != nil {
		return false, err
	}
	return updated.ShowLlmDetails, nil
}

// GetGuildsWithReleaseChannel lists guilds that have a release channel set.
func (s *Service) GetGuildsWithReleaseChannel(ctx context.Context) ([]models.GuildSettings, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("settings: not initialized")
	}
	rows, err := s.repo.ListWithReleaseChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: list release channels: %w", err)
	}
	out := make([]models.GuildSettings, 0, len(rows))
	for _, row := range rows {
		if row.HasReleaseChannel() {
			out = append(out, row)
		}
	}
	return out, nil
}

// DeleteGuildSettings removes the guild's row; the next read recreates defaults.
func (s *Service) DeleteGuildSettings(ctx context.Context, guildID string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("settings: not initialized")
	}
	if err := s.repo.Delete(ctx, guildID); err != nil {
		return fmt.Errorf("settings: delete guild %s: %w", guildID, err)
	}
	return nil
}
