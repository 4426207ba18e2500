// Package bot connects the services to the Discord gateway.
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/router-for-me/disqord/internal/release"
	log "github.com/sirupsen/logrus"
)

// Options configures a Bot.
type Options struct {
	Token         string
	ApplicationID string
	HandlerOptions
}

// Bot owns the Discord session.
type Bot struct {
	session       *discordgo.Session
	applicationID string
	handler       *Handler
	version       string
	connected     atomic.Bool
}

// New creates a Bot. The session is not opened until Run.
func New(opts Options) (*Bot, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, errors.New("bot: missing token")
	}
	session, errSession := discordgo.New("Bot " + token)
	if errSession != nil {
		return nil, fmt.Errorf("bot: create session: %w", errSession)
	}
	session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	b := &Bot{
		session:       session,
		applicationID: strings.TrimSpace(opts.ApplicationID),
		handler:       newHandler(session, opts.HandlerOptions),
		version:       opts.Version,
	}
	return b, nil
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b == nil || b.session == nil {
		return errors.New("bot: not initialized")
	}
	removers := []func(){
		b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) { b.onReady(ctx, s, r) }),
		b.session.AddHandler(func(*discordgo.Session, *discordgo.Resumed) { b.connected.Store(true) }),
		b.session.AddHandler(func(*discordgo.Session, *discordgo.Disconnect) { b.connected.Store(false) }),
		b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			b.handler.HandleMessage(ctx, m.Message, selfID(s))
		}),
		b.session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			b.handler.HandleInteraction(ctx, i.Interaction)
		}),
		b.session.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildDelete) {
			if g.Guild != nil && !g.Unavailable {
				log.WithField("guild_id", g.ID).Info("bot: removed from guild, keeping settings")
			}
		}),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
	}()

	if errOpen := b.session.Open(); errOpen != nil {
		return fmt.Errorf("bot: open session: %w", errOpen)
	}
	log.Info("bot: session opened")

	<-ctx.Done()
	b.connected.Store(false)
	if errClose := b.session.Close(); errClose != nil {
		return fmt.Errorf("bot: close session: %w", errClose)
	}
	log.Info("bot: session closed")
	return nil
}

func selfID(s *discordgo.Session) string {
	if s == nil || s.State == nil || s.State.User == nil {
		return ""
	}
	return s.State.User.ID
}

func (b *Bot) onReady(ctx context.Context, s *discordgo.Session, r *discordgo.Ready) {
	b.connected.Store(true)
	if r.User != nil {
		log.WithField("user", r.User.Username).Info("bot: logged in")
	}
	if b.version != "" {
		if errStatus := s.UpdateGameStatus(0, "v"+b.version); errStatus != nil {
			log.WithError(errStatus).Warn("bot: update presence failed")
		}
	}
	if _, errRegister := s.ApplicationCommandBulkOverwrite(b.applicationID, "", Commands(), discordgo.WithContext(ctx)); errRegister != nil {
		log.WithError(errRegister).Error("bot: register commands failed")
		return
	}
	log.Info("bot: slash commands registered")
}

// Connected reports whether the gateway session is ready.
func (b *Bot) Connected() bool {
	if b == nil {
		return false
	}
	return b.connected.Load()
}

// HeartbeatLatency returns the last gateway heartbeat round trip.
func (b *Bot) HeartbeatLatency() (time.Duration, bool) {
	if b == nil || b.session == nil || !b.connected.Load() {
		return 0, false
	}
	latency := b.session.HeartbeatLatency()
	return latency, latency > 0
}

// SendEmbed posts an embed to a text channel. Missing or non-text channels
// yield release.ErrChannelUnavailable.
func (b *Bot) SendEmbed(ctx context.Context, channelID string, e *discordgo.MessageEmbed) error {
	if b == nil || b.session == nil {
		return errors.New("bot: not initialized")
	}
	channel, errChannel := b.lookupChannel(ctx, channelID)
	if errChannel != nil {
		return errChannel
	}
	if !isTextChannel(channel) {
		return release.ErrChannelUnavailable
	}
	if _, errSend := b.session.ChannelMessageSendEmbed(channelID, e, discordgo.WithContext(ctx)); errSend != nil {
		return errSend
	}
	return nil
}

func (b *Bot) lookupChannel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if b.session.State != nil {
		if channel, errState := b.session.State.Channel(channelID); errState == nil && channel != nil {
			return channel, nil
		}
	}
	channel, errFetch := b.session.Channel(channelID, discordgo.WithContext(ctx))
	if errFetch != nil {
		var restErr *discordgo.RESTError
		if errors.As(errFetch, &restErr) && restErr.Response != nil &&
			(restErr.Response.StatusCode == http.StatusNotFound || restErr.Response.StatusCode == http.StatusForbidden) {
			return nil, release.ErrChannelUnavailable
		}
		return nil, errFetch
	}
	return channel, nil
}

func isTextChannel(channel *discordgo.Channel) bool {
	if channel == nil {
		return false
	}
	switch channel.Type {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	default:
		return false
	}
}
