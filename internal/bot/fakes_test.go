package bot

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/router-for-me/disqord/internal/chat"
	"github.com/router-for-me/disqord/internal/modelcatalog"
	"github.com/router-for-me/disqord/internal/models"
	"github.com/router-for-me/disqord/internal/openrouter"
	"github.com/router-for-me/disqord/internal/ratelimit"
)

type sentMessage struct {
	channelID string
	data      *discordgo.MessageSend
}

type fakeAPI struct {
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	sent      []sentMessage
	typing    int
	followups []*discordgo.WebhookParams
}

func (f *fakeAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeAPI) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.edits = append(f.edits, edit)
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, sentMessage{channelID: channelID, data: data})
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) ChannelTyping(string, ...discordgo.RequestOption) error {
	f.typing++
	return nil
}

func (f *fakeAPI) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.followups = append(f.followups, data)
	return &discordgo.Message{}, nil
}

func (f *fakeAPI) lastEditEmbed() *discordgo.MessageEmbed {
	if len(f.edits) == 0 {
		return nil
	}
	edit := f.edits[len(f.edits)-1]
	if edit.Embeds == nil || len(*edit.Embeds) == 0 {
		return nil
	}
	return (*edit.Embeds)[0]
}

func (f *fakeAPI) lastResponseEmbed() *discordgo.MessageEmbed {
	if len(f.responses) == 0 {
		return nil
	}
	data := f.responses[len(f.responses)-1].Data
	if data == nil || len(data.Embeds) == 0 {
		return nil
	}
	return data.Embeds[0]
}

type fakeSettings struct {
	rows map[string]models.GuildSettings
	err  error
}

func newFakeSettings(rows ...models.GuildSettings) *fakeSettings {
	f := &fakeSettings{rows: map[string]models.GuildSettings{}}
	for _, r := range rows {
		f.rows[r.GuildID] = r
	}
	return f
}

func (f *fakeSettings) GetGuildSettings(_ context.Context, guildID string) (models.GuildSettings, error) {
	if f.err != nil {
		return models.GuildSettings{}, f.err
	}
	row, ok := f.rows[guildID]
	if !ok {
		row = models.GuildSettings{GuildID: guildID, DefaultModel: "default/model:free", ShowLlmDetails: true}
		f.rows[guildID] = row
	}
	return row, nil
}

func (f *fakeSettings) mutate(ctx context.Context, guildID string, fn func(*models.GuildSettings)) (models.GuildSettings, error) {
	row, err := f.GetGuildSettings(ctx, guildID)
	if err != nil {
		return row, err
	}
	fn(&row)
	f.rows[guildID] = row
	return row, nil
}

func (f *fakeSettings) SetGuildModel(ctx context.Context, guildID, model string) (models.GuildSettings, error) {
	return f.mutate(ctx, guildID, func(r *models.GuildSettings) { r.DefaultModel = model })
}

func (f *fakeSettings) SetFreeModelsOnly(ctx context.Context, guildID string, enabled bool) (models.GuildSettings, error) {
	return f.mutate(ctx, guildID, func(r *models.GuildSettings) { r.FreeModelsOnly = enabled })
}

func (f *fakeSettings) SetReleaseChannel(ctx context.Context, guildID string, channelID *string) (models.GuildSettings, error) {
	return f.mutate(ctx, guildID, func(r *models.GuildSettings) { r.ReleaseChannelID = channelID })
}

func (f *fakeSettings) SetShowLlmDetails(ctx context.Context, guildID string, show bool) (models.GuildSettings, error) {
	return f.mutate(ctx, guildID, func(r *models.GuildSettings) { r.ShowLlmDetails = show })
}

func (f *fakeSettings) ToggleShowLlmDetails(ctx context.Context, guildID string) (bool, error) {
	row, err := f.mutate(ctx, guildID, func(r *models.GuildSettings) { r.ShowLlmDetails = !r.ShowLlmDetails })
	return row.ShowLlmDetails, err
}

type fakeCatalog struct {
	models    []openrouter.Model
	refreshes int
	block     chan struct{}
}

func (f *fakeCatalog) GetAllModels(context.Context, modelcatalog.Options) []openrouter.Model {
	if f.block != nil {
		<-f.block
	}
	return f.models
}

func (f *fakeCatalog) GetFreeModels(context.Context, modelcatalog.Options) []openrouter.Model {
	var out []openrouter.Model
	for _, m := range f.models {
		if modelcatalog.IsFree(m) {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeCatalog) GetModel(_ context.Context, id string) (openrouter.Model, bool) {
	for _, m := range f.models {
		if m.ID == id {
			return m, true
		}
	}
	return openrouter.Model{}, false
}

func (f *fakeCatalog) IsFreeModel(ctx context.Context, id string) bool {
	m, ok := f.GetModel(ctx, id)
	return ok && modelcatalog.IsFree(m)
}

func (f *fakeCatalog) ValidateModelSelection(ctx context.Context, id string, freeOnly bool) modelcatalog.Validation {
	m, ok := f.GetModel(ctx, id)
	if !ok {
		return modelcatalog.Validation{Error: modelcatalog.ErrModelNotFound}
	}
	if freeOnly && !modelcatalog.IsFree(m) {
		return modelcatalog.Validation{Error: modelcatalog.ErrModelNotFree}
	}
	return modelcatalog.Validation{Valid: true}
}

func (f *fakeCatalog) RefreshCache(context.Context) []openrouter.Model {
	f.refreshes++
	return f.models
}

func (f *fakeCatalog) GetCacheStatus() modelcatalog.CacheStatus {
	return modelcatalog.CacheStatus{ModelCount: len(f.models)}
}

type fakeUpstream struct {
	credits openrouter.Credits
	resetAt time.Time
	limited bool
}

func (f fakeUpstream) GetCredits(context.Context) openrouter.Credits { return f.credits }

func (f fakeUpstream) RateLimitResetAt() (time.Time, bool) { return f.resetAt, f.limited }

type fakeChat struct {
	result chat.Result
	err    error
	prompt string
}

func (f *fakeChat) GenerateResponse(_ context.Context, _ string, text string) (chat.Result, error) {
	f.prompt = text
	return f.result, f.err
}

type fakeThrottle struct {
	allowed bool
	now     time.Time
	reset   time.Time
}

func (f fakeThrottle) AllowMention(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{Allowed: f.allowed, Reset: f.reset}, nil
}

func (f fakeThrottle) Now() time.Time { return f.now }

var errBoom = errors.New("boom")

func freeModel(id string, created int64) openrouter.Model {
	return openrouter.Model{ID: id, Name: id, Created: created, ContextLength: 8192, Pricing: openrouter.Pricing{Prompt: "0", Completion: "0"}}
}

func paidModel(id string, created int64) openrouter.Model {
	return openrouter.Model{ID: id, Name: id, Created: created, ContextLength: 128000, Pricing: openrouter.Pricing{Prompt: "0.000003", Completion: "0.000015"}}
}
