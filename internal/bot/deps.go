package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/router-for-me/disqord/internal/chat"
	"github.com/router-for-me/disqord/internal/modelcatalog"
	"github.com/router-for-me/disqord/internal/models"
	"github.com/router-for-me/disqord/internal/openrouter"
	"github.com/router-for-me/disqord/internal/ratelimit"
)

// SettingsService reads and updates guild settings.
type SettingsService interface {
	GetGuildSettings(ctx context.Context, guildID string) (models.GuildSettings, error)
	SetGuildModel(ctx context.Context, guildID, model string) (models.GuildSettings, error)
	SetFreeModelsOnly(ctx context.Context, guildID string, enabled bool) (models.GuildSettings, error)
	SetReleaseChannel(ctx context.Context, guildID string, channelID *string) (models.GuildSettings, error)
	SetShowLlmDetails(ctx context.Context, guildID string, show bool) (models.GuildSettings, error)
	ToggleShowLlmDetails(ctx context.Context, guildID string) (bool, error)
}

// ModelCatalog serves the cached upstream model catalog.
type ModelCatalog interface {
	GetAllModels(ctx context.Context, opts modelcatalog.Options) []openrouter.Model
	GetFreeModels(ctx context.Context, opts modelcatalog.Options) []openrouter.Model
	GetModel(ctx context.Context, id string) (openrouter.Model, bool)
	IsFreeModel(ctx context.Context, id string) bool
	ValidateModelSelection(ctx context.Context, id string, freeOnly bool) modelcatalog.Validation
	RefreshCache(ctx context.Context) []openrouter.Model
	GetCacheStatus() modelcatalog.CacheStatus
}

// UpstreamStatus reports account state for the status view.
type UpstreamStatus interface {
	GetCredits(ctx context.Context) openrouter.Credits
	RateLimitResetAt() (time.Time, bool)
}

// ChatGenerator produces replies to mentions.
type ChatGenerator interface {
	GenerateResponse(ctx context.Context, guildID, userText string) (chat.Result, error)
}

// MentionThrottle limits how often a user may mention the bot.
type MentionThrottle interface {
	AllowMention(ctx context.Context, userID string) (ratelimit.Result, error)
	Now() time.Time
}

// discordAPI is the subset of *discordgo.Session used by the handlers.
type discordAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}
