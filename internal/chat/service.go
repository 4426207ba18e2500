package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/router-for-me/disqord/internal/models"
	"github.com/router-for-me/disqord/internal/openrouter"
	log "github.com/sirupsen/logrus"
)

// Completer issues chat completions.
type Completer interface {
	Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

// SettingsProvider resolves guild settings.
type SettingsProvider interface {
	GetGuildSettings(ctx context.Context, guildID string) (models.GuildSettings, error)
}

// Metadata is the upstream response plus request timing.
type Metadata struct {
	Response  *openrouter.ChatResponse
	Model     string
	LatencyMs int64
}

// Result is a generated reply.
type Result struct {
	Text     string
	Metadata Metadata
	Settings models.GuildSettings
}

// Service turns a guild message into an LLM reply.
type Service struct {
	client   Completer
	settings SettingsProvider
	now      func() time.Time
}

// NewService constructs a chat Service.
func NewService(client Completer, settings SettingsProvider) *Service {
	return &Service{client: client, settings: settings, now: time.Now}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// GenerateResponse sends userText to the guild's model. Errors from settings
// or the client are returned unchanged.
func (s *Service) GenerateResponse(ctx context.Context, guildID, userText string) (Result, error) {
	if s == nil || s.client == nil || s.settings == nil {
		return Result{}, fmt.Errorf("chat: not initialized")
	}
	guild, err := s.settings.GetGuildSettings(ctx, guildID)
	if err != nil {
		return Result{}, err
	}

	req := openrouter.ChatRequest{
		Model:    guild.DefaultModel,
		Messages: []openrouter.ChatMessage{{Role: "user", Content: userText}},
	}
	started := s.clock()
	resp, err := s.client.Chat(ctx, req)
	latency := s.clock().Sub(started)
	if err != nil {
		return Result{}, err
	}

	text := ""
	if resp != nil && len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	log.WithFields(log.Fields{
		"guild_id":   guildID,
		"model":      guild.DefaultModel,
		"latency_ms": latency.Milliseconds(),
	}).Debug("chat: response generated")

	return Result{
		Text: text,
		Metadata: Metadata{
			Response:  resp,
			Model:     guild.DefaultModel,
			LatencyMs: latency.Milliseconds(),
		},
		Settings: guild,
	}, nil
}
