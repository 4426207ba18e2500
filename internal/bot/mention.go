package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/router-for-me/disqord/internal/chat"
	"github.com/router-for-me/disqord/internal/embed"
	"github.com/router-for-me/disqord/internal/format"
	"github.com/router-for-me/disqord/internal/openrouter"
	log "github.com/sirupsen/logrus"
)

var userMentionPattern = regexp.MustCompile(`<@!?\d+>`)

const emptyResponseText = "The model returned an empty response."

// ExtractPrompt removes user mentions from content and trims it.
func ExtractPrompt(content string) string {
	return strings.TrimSpace(userMentionPattern.ReplaceAllString(content, ""))
}

func mentionsUser(m *discordgo.Message, userID string) bool {
	if userID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

// HandleMessage answers guild messages that mention botID.
func (h *Handler) HandleMessage(ctx context.Context, m *discordgo.Message, botID string) {
	if h == nil || m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" || !mentionsUser(m, botID) {
		return
	}
	entry := log.WithFields(log.Fields{"guild_id": m.GuildID, "channel_id": m.ChannelID, "user_id": m.Author.ID})

	prompt := ExtractPrompt(m.Content)
	if prompt == "" {
		h.replyTo(m, embed.Error("Please enter a message.", ""), entry)
		return
	}

	if h.throttle != nil {
		result, errAllow := h.throttle.AllowMention(ctx, m.Author.ID)
		if errAllow != nil {
			entry.WithError(errAllow).Warn("bot: mention throttle check failed")
		} else if !result.Allowed {
			wait := int(result.RetryAfter(h.throttle.Now()).Seconds())
			if wait < 1 {
				wait = 1
			}
			message := fmt.Sprintf("You're sending messages too quickly. Please try again in %d seconds.", wait)
			h.replyTo(m, embed.Error(message, "Slow down"), entry)
			return
		}
	}

	if errTyping := h.api.ChannelTyping(m.ChannelID); errTyping != nil {
		entry.WithError(errTyping).Debug("bot: typing indicator failed")
	}

	chatCtx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()
	result, errChat := h.chat.GenerateResponse(chatCtx, m.GuildID, prompt)
	if errChat != nil {
		entry.WithError(errChat).Error("bot: generate response failed")
		h.replyTo(m, embed.Error(openrouter.UserMessage(errChat), ""), entry)
		return
	}

	for idx, page := range ResponsePages(result) {
		send := &discordgo.MessageSend{
			Embeds:          []*discordgo.MessageEmbed{page},
			AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
		}
		if idx == 0 {
			send.Reference = m.Reference()
		}
		if _, errSend := h.api.ChannelMessageSendComplex(m.ChannelID, send); errSend != nil {
			entry.WithError(errSend).Error("bot: send response failed")
			return
		}
	}
}

// ResponsePages renders a chat result as one embed per message.
func ResponsePages(result chat.Result) []*discordgo.MessageEmbed {
	model := result.Metadata.Model
	details := format.Details{Model: model, LatencyMs: result.Metadata.LatencyMs}
	if resp := result.Metadata.Response; resp != nil {
		if resp.Model != "" {
			details.Model = resp.Model
		}
		details.Provider = resp.Provider
		details.Usage = resp.Usage
	}
	detailsLine := ""
	if result.Settings.ShowLlmDetails {
		detailsLine = format.DetailsLine(details)
	}

	text := result.Text
	if strings.TrimSpace(text) == "" {
		text = emptyResponseText
	}
	return embed.Pages(text, embed.Config{Color: embed.ColorForModel(model)}, detailsLine)
}

func (h *Handler) replyTo(m *discordgo.Message, e *discordgo.MessageEmbed, entry *log.Entry) {
	_, errSend := h.api.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{e},
		Reference: m.Reference(),
	})
	if errSend != nil {
		entry.WithError(errSend).Error("bot: reply failed")
	}
}
