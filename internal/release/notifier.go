package release

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/router-for-me/disqord/internal/embed"
	"github.com/router-for-me/disqord/internal/format"
	"github.com/router-for-me/disqord/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	bodyLimit       = 3800
	emptyBodyText   = "No release notes."
	channelNotFound = "Channel not found or not a text channel"
)

// ErrChannelUnavailable is returned by a ChannelSender when the channel is
// missing or cannot receive messages.
var ErrChannelUnavailable = errors.New("release: channel unavailable")

// ChannelSender delivers an embed to a channel.
type ChannelSender interface {
	SendEmbed(ctx context.Context, channelID string, e *discordgo.MessageEmbed) error
}

// GuildLister lists guilds with a release channel configured.
type GuildLister interface {
	GetGuildsWithReleaseChannel(ctx context.Context) ([]models.GuildSettings, error)
}

// DeliveryError describes one failed delivery.
type DeliveryError struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	Error     string `json:"error"`
}

// NotificationResult counts delivery outcomes.
type NotificationResult struct {
	Success int             `json:"success"`
	Failed  int             `json:"failed"`
	Skipped int             `json:"skipped"`
	Errors  []DeliveryError `json:"errors"`
}

// Notifier sends release announcements to every configured guild.
type Notifier struct {
	sender ChannelSender
	guilds GuildLister
	now    func() time.Time
}

// NewNotifier constructs a Notifier.
func NewNotifier(sender ChannelSender, guilds GuildLister) *Notifier {
	return &Notifier{sender: sender, guilds: guilds, now: time.Now}
}

// Notify announces a released event. Other actions are skipped. A failure in
// one guild does not stop delivery to the rest.
func (n *Notifier) Notify(ctx context.Context, payload Payload) (NotificationResult, error) {
	result := NotificationResult{Errors: []DeliveryError{}}
	if n == nil || n.sender == nil || n.guilds == nil {
		return result, fmt.Errorf("release: notifier not initialized")
	}
	if payload.Action != ActionReleased {
		log.WithField("action", payload.Action).Info("release: skipping non-released action")
		result.Skipped = 1
		return result, nil
	}

	guilds, errList := n.guilds.GetGuildsWithReleaseChannel(ctx)
	if errList != nil {
		return result, fmt.Errorf("release: list guilds: %w", errList)
	}
	if len(guilds) == 0 {
		log.Info("release: no guilds with release channel configured")
		return result, nil
	}

	e := n.buildEmbed(payload)
	for _, guild := range guilds {
		if !guild.HasReleaseChannel() {
			continue
		}
		channelID := *guild.ReleaseChannelID
		fields := log.Fields{"guild_id": guild.GuildID, "channel_id": channelID}

		errSend := n.sender.SendEmbed(ctx, channelID, e)
		switch {
		case errSend == nil:
			result.Success++
			log.WithFields(fields).WithField("tag", payload.Release.TagName).Info("release: notification sent")
		case errors.Is(errSend, ErrChannelUnavailable):
			result.Failed++
			result.Errors = append(result.Errors, DeliveryError{GuildID: guild.GuildID, ChannelID: channelID, Error: channelNotFound})
			log.WithFields(fields).Warn("release: channel unavailable")
		default:
			result.Failed++
			result.Errors = append(result.Errors, DeliveryError{GuildID: guild.GuildID, ChannelID: channelID, Error: errSend.Error()})
			log.WithFields(fields).WithError(errSend).Error("release: notification failed")
		}
	}
	return result, nil
}

func (n *Notifier) buildEmbed(payload Payload) *discordgo.MessageEmbed {
	rel := payload.Release
	description := cleanBody(rel.Body)
	if description == "" {
		description = emptyBodyText
	}

	timestamp := n.now()
	if rel.PublishedAt != nil {
		if parsed, errParse := time.Parse(time.RFC3339, *rel.PublishedAt); errParse == nil {
			timestamp = parsed
		}
	}

	return embed.Build(embed.Config{
		Color:       embed.ColorBlurple,
		Title:       payload.Repository.Name + " " + rel.DisplayName(),
		Description: description,
		URL:         rel.HTMLURL,
		Author: &embed.Author{
			Name:    rel.Author.Login,
			IconURL: rel.Author.AvatarURL,
			URL:     "https://github.com/" + rel.Author.Login,
		},
		Thumbnail: rel.Author.AvatarURL,
		Timestamp: &timestamp,
		Footer:    "GitHub Release - " + payload.Repository.FullName,
	})
}

var markdownImage = regexp.MustCompile(`!\[.*?\]\(.*?\)`)

// cleanBody strips markdown images, normalizes line endings and truncates.
func cleanBody(body *string) string {
	if body == nil {
		return ""
	}
	cleaned := markdownImage.ReplaceAllString(*body, "")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "\r\n", "\n"))
	if truncated := format.Truncate(cleaned, bodyLimit); truncated != cleaned {
		return truncated + "..."
	}
	return cleaned
}
