package bot

import (
	"fmt"
	"math"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/router-for-me/disqord/internal/embed"
	"github.com/router-for-me/disqord/internal/modelcatalog"
	"github.com/router-for-me/disqord/internal/models"
	"github.com/router-for-me/disqord/internal/openrouter"
)

// StatusData is everything rendered by the status view.
type StatusData struct {
	Version     string
	Credits     openrouter.Credits
	RateLimited bool
	ResetAt     time.Time
	Cache       modelcatalog.CacheStatus
	// Settings is nil outside of guilds; the guild fields and buttons are omitted then.
	Settings *models.GuildSettings
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func toggleStyle(v bool) discordgo.ButtonStyle {
	if v {
		return discordgo.SuccessButton
	}
	return discordgo.SecondaryButton
}

func creditsText(c openrouter.Credits) string {
	if math.IsInf(c.Remaining, 1) {
		return "Unlimited"
	}
	return fmt.Sprintf("$%.4f", c.Remaining)
}

func rateLimitText(limited bool, resetAt time.Time) string {
	if !limited {
		return "OK"
	}
	if resetAt.IsZero() {
		return "Limited"
	}
	return fmt.Sprintf("Limited until <t:%d:R>", resetAt.Unix())
}

func cacheText(status modelcatalog.CacheStatus) string {
	if status.LastUpdatedAt == nil {
		return "Not fetched"
	}
	text := fmt.Sprintf("<t:%d:R> (%d models)", status.LastUpdatedAt.Unix(), status.ModelCount)
	if status.IsExpired {
		text += " (expired)"
	}
	return text
}

// StatusView renders the status embed and, inside guilds, the toggle buttons.
func StatusView(data StatusData) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	version := data.Version
	if version == "" {
		version = "dev"
	}
	fields := []embed.Field{
		{Name: "Version", Value: "v" + version, Inline: true},
		{Name: "OpenRouter credits", Value: creditsText(data.Credits), Inline: true},
		{Name: "Rate limit", Value: rateLimitText(data.RateLimited, data.ResetAt), Inline: true},
		{Name: "Model cache", Value: cacheText(data.Cache), Inline: true},
	}

	var components []discordgo.MessageComponent
	if s := data.Settings; s != nil {
		releaseChannel := "Not set"
		if s.HasReleaseChannel() {
			releaseChannel = fmt.Sprintf("<#%s>", *s.ReleaseChannelID)
		}
		fields = append(fields,
			embed.Field{Name: "Default model", Value: "`" + s.DefaultModel + "`", Inline: true},
			embed.Field{Name: "Free models only", Value: onOff(s.FreeModelsOnly), Inline: true},
			embed.Field{Name: "LLM details", Value: onOff(s.ShowLlmDetails), Inline: true},
			embed.Field{Name: "Release channel", Value: releaseChannel, Inline: true},
		)
		components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					CustomID: ButtonToggleFreeOnly,
					Label:    "Free models only: " + onOff(s.FreeModelsOnly),
					Style:    toggleStyle(s.FreeModelsOnly),
				},
				discordgo.Button{
					CustomID: ButtonToggleLlmDetails,
					Label:    "LLM details: " + onOff(s.ShowLlmDetails),
					Style:    toggleStyle(s.ShowLlmDetails),
				},
				discordgo.Button{
					CustomID: ButtonModelRefresh,
					Label:    "Refresh model cache",
					Style:    discordgo.PrimaryButton,
				},
			}},
		}
	}

	return embed.Build(embed.Config{
		Color:  embed.ColorBlurple,
		Title:  "Status",
		Fields: fields,
	}), components
}
