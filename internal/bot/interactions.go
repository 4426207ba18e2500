package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/router-for-me/disqord/internal/embed"
	"github.com/router-for-me/disqord/internal/format"
	"github.com/router-for-me/disqord/internal/modelcatalog"
	"github.com/router-for-me/disqord/internal/models"
	"github.com/router-for-me/disqord/internal/openrouter"
	log "github.com/sirupsen/logrus"
)

const (
	chatTimeout     = 60 * time.Second
	upstreamTimeout = 15 * time.Second
	// Discord drops autocomplete answers after 3 seconds.
	autocompleteDeadline = 2500 * time.Millisecond

	permissionAdministrator int64 = 1 << 3
	permissionManageGuild   int64 = 1 << 5

	guildOnlyMessage    = "This command can only be used in a server."
	commandErrorMessage = "An error occurred while running the command."
	buttonErrorMessage  = "An error occurred while processing the action."
	permissionMessage   = "You need the Manage Server permission to change the configuration."
)

const helpText = "**Usage:**\n" +
	"- Mention the bot with a message and the LLM will reply\n" +
	"- Example: `@DisQord hello`\n\n" +
	"**Commands:**\n" +
	"- `/disqord help` - Show this help\n" +
	"- `/disqord status` - Show bot status (credits and more)\n" +
	"- `/disqord model current` - Show the current model\n" +
	"- `/disqord model set <model>` - Change the model\n" +
	"- `/disqord model list` - List available models\n" +
	"- `/disqord model refresh` - Refresh the model cache\n" +
	"- `/disqord config free-only <on|off>` - Toggle free models only\n" +
	"- `/disqord config release-channel [channel]` - Set the release notification channel (omit to disable)\n" +
	"- `/disqord config llm-details <on|off>` - Toggle LLM details under replies"

// Handler routes Discord events to the services.
type Handler struct {
	api      discordAPI
	settings SettingsService
	catalog  ModelCatalog
	upstream UpstreamStatus
	chat     ChatGenerator
	throttle MentionThrottle
	version  string

	autocompleteWait time.Duration
}

// HandlerOptions carries the Handler dependencies. Throttle may be nil.
type HandlerOptions struct {
	Settings SettingsService
	Catalog  ModelCatalog
	Upstream UpstreamStatus
	Chat     ChatGenerator
	Throttle MentionThrottle
	Version  string
}

func newHandler(api discordAPI, opts HandlerOptions) *Handler {
	return &Handler{
		api:      api,
		settings: opts.Settings,
		catalog:  opts.Catalog,
		upstream: opts.Upstream,
		chat:     opts.Chat,
		throttle: opts.Throttle,
		version:  opts.Version,

		autocompleteWait: autocompleteDeadline,
	}
}

// HandleInteraction dispatches slash commands, autocomplete and buttons.
func (h *Handler) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if h == nil || i == nil {
		return
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.handleAutocomplete(ctx, i)
	case discordgo.InteractionMessageComponent:
		h.handleButton(ctx, i)
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(ctx, i)
	}
}

func (h *Handler) handleCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	if data.Name != CommandName {
		log.WithField("command", data.Name).Warn("bot: unknown command")
		return
	}
	inv := parseInvocation(data)
	entry := log.WithFields(log.Fields{"guild_id": i.GuildID, "group": inv.group, "subcommand": inv.sub})

	var errRun error
	switch inv.group {
	case groupModel:
		switch inv.sub {
		case subModelCurrent:
			errRun = h.modelCurrent(ctx, i)
		case subModelSet:
			errRun = h.modelSet(ctx, i, inv)
		case subModelList:
			errRun = h.modelList(ctx, i)
		case subModelRefresh:
			errRun = h.modelRefresh(ctx, i)
		}
	case groupConfig:
		if i.GuildID != "" && !canManageGuild(i.Member) {
			errRun = h.reply(i, true, embed.Error(permissionMessage, "Permission denied"))
			break
		}
		switch inv.sub {
		case subFreeOnly:
			errRun = h.configFreeOnly(ctx, i, inv)
		case subReleaseChannel:
			errRun = h.configReleaseChannel(ctx, i, inv)
		case subLlmDetails:
			errRun = h.configLlmDetails(ctx, i, inv)
		}
	default:
		switch inv.sub {
		case subHelp:
			errRun = h.reply(i, false, embed.Success(helpText, "DisQord Help"))
		case subStatus:
			errRun = h.status(ctx, i)
		}
	}
	if errRun == nil {
		return
	}

	entry.WithError(errRun).Error("bot: command failed")
	errEmbed := embed.Error(commandErrorMessage, "")
	if errReply := h.reply(i, true, errEmbed); errReply != nil {
		if errEdit := h.edit(i, []*discordgo.MessageEmbed{errEmbed}, nil); errEdit != nil {
			entry.WithError(errEdit).Error("bot: send error reply failed")
		}
	}
}

func canManageGuild(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	return member.Permissions&(permissionManageGuild|permissionAdministrator) != 0
}

func (h *Handler) reply(i *discordgo.Interaction, ephemeral bool, embeds ...*discordgo.MessageEmbed) error {
	data := &discordgo.InteractionResponseData{Embeds: embeds}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return h.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (h *Handler) deferReply(i *discordgo.Interaction) error {
	return h.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (h *Handler) deferUpdate(i *discordgo.Interaction) error {
	return h.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

func (h *Handler) followup(i *discordgo.Interaction, e *discordgo.MessageEmbed) error {
	_, errFollowup := h.api.FollowupMessageCreate(i, false, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{e},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	return errFollowup
}

func (h *Handler) editEmbed(i *discordgo.Interaction, e *discordgo.MessageEmbed) error {
	return h.edit(i, []*discordgo.MessageEmbed{e}, nil)
}

func (h *Handler) edit(i *discordgo.Interaction, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	edit := &discordgo.WebhookEdit{Embeds: &embeds}
	if components != nil {
		edit.Components = &components
	}
	_, errEdit := h.api.InteractionResponseEdit(i, edit)
	return errEdit
}

func (h *Handler) modelCurrent(ctx context.Context, i *discordgo.Interaction) error {
	if i.GuildID == "" {
		return h.reply(i, true, embed.Error(guildOnlyMessage, ""))
	}
	if errDefer := h.deferReply(i); errDefer != nil {
		return errDefer
	}
	settings, errGet := h.settings.GetGuildSettings(ctx, i.GuildID)
	if errGet != nil {
		return errGet
	}
	catalogCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	details, ok := h.catalog.GetModel(catalogCtx, settings.DefaultModel)
	if !ok {
		return h.editEmbed(i, embed.Success(fmt.Sprintf("Current model: `%s`", settings.DefaultModel), "Current model"))
	}
	return h.editEmbed(i, modelDetailsEmbed(details, "Current model", fmt.Sprintf("Current model: `%s`", details.ID)))
}

func (h *Handler) modelSet(ctx context.Context, i *discordgo.Interaction, inv invocation) error {
	if i.GuildID == "" {
		return h.reply(i, true, embed.Error(guildOnlyMessage, ""))
	}
	if errDefer := h.deferReply(i); errDefer != nil {
		return errDefer
	}
	model := strings.TrimSpace(inv.stringOption(optionModel))
	settings, errGet := h.settings.GetGuildSettings(ctx, i.GuildID)
	if errGet != nil {
		return errGet
	}

	catalogCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	validation := h.catalog.ValidateModelSelection(catalogCtx, model, settings.FreeModelsOnly)
	if !validation.Valid {
		return h.editEmbed(i, embed.Error(validationMessage(model, validation.Error), "Model error"))
	}
	if _, errSet := h.settings.SetGuildModel(ctx, i.GuildID, model); errSet != nil {
		return errSet
	}
	log.WithFields(log.Fields{"guild_id": i.GuildID, "model": model}).Info("bot: guild model updated")

	details, ok := h.catalog.GetModel(catalogCtx, model)
	if !ok {
		return h.editEmbed(i, embed.Success(fmt.Sprintf("Model changed to `%s`.", model), "Model updated"))
	}
	return h.editEmbed(i, modelDetailsEmbed(details, "Model updated", fmt.Sprintf("Model changed to `%s`.", details.ID)))
}

func validationMessage(model string, reason modelcatalog.ValidationError) string {
	switch reason {
	case modelcatalog.ErrModelNotFree:
		return fmt.Sprintf("Model `%s` is not free and free-only mode is enabled.", model)
	default:
		return fmt.Sprintf("Model `%s` was not found. Use `/disqord model list` to see available models.", model)
	}
}

func modelDetailsEmbed(m openrouter.Model, title, description string) *discordgo.MessageEmbed {
	return embed.Build(embed.Config{
		Color:       embed.ColorForModel(m.ID),
		Title:       title,
		Description: description,
		Fields: []embed.Field{
			{Name: "Name", Value: displayName(m), Inline: true},
			{Name: "Context length", Value: format.FormatContextLength(m.ContextLength), Inline: true},
			{Name: "Input price", Value: format.FormatPrice(m.Pricing.Prompt), Inline: true},
			{Name: "Output price", Value: format.FormatPrice(m.Pricing.Completion), Inline: true},
		},
	})
}

func displayName(m openrouter.Model) string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

func (h *Handler) modelsForGuild(ctx context.Context, guildID string) ([]openrouter.Model, bool, error) {
	freeOnly := false
	if guildID != "" {
		settings, errGet := h.settings.GetGuildSettings(ctx, guildID)
		if errGet != nil {
			return nil, false, errGet
		}
		freeOnly = settings.FreeModelsOnly
	}
	catalogCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	if freeOnly {
		return h.catalog.GetFreeModels(catalogCtx, modelcatalog.Options{}), true, nil
	}
	return h.catalog.GetAllModels(catalogCtx, modelcatalog.Options{}), false, nil
}

func (h *Handler) modelList(ctx context.Context, i *discordgo.Interaction) error {
	if errDefer := h.deferReply(i); errDefer != nil {
		return errDefer
	}
	catalog, freeOnly, errList := h.modelsForGuild(ctx, i.GuildID)
	if errList != nil {
		return errList
	}
	return h.edit(i, []*discordgo.MessageEmbed{ModelListEmbed(catalog, freeOnly)}, nil)
}

// ModelListEmbed lists the newest models, one field each.
func ModelListEmbed(catalog []openrouter.Model, freeOnly bool) *discordgo.MessageEmbed {
	if len(catalog) == 0 {
		return embed.Error("No models are available right now. Please try again later.", "Models")
	}
	sorted := make([]openrouter.Model, len(catalog))
	copy(sorted, catalog)
	sortNewestFirst(sorted)

	fields := make([]embed.Field, 0, embed.FieldLimit)
	for _, m := range sorted {
		if len(fields) == embed.FieldLimit {
			break
		}
		fields = append(fields, embed.Field{
			Name: displayName(m),
			Value: fmt.Sprintf("`%s`\nContext: %s\nInput: %s | Output: %s",
				m.ID,
				format.FormatContextLength(m.ContextLength),
				format.FormatPrice(m.Pricing.Prompt),
				format.FormatPrice(m.Pricing.Completion)),
		})
	}
	footer := fmt.Sprintf("%d models available", len(catalog))
	if freeOnly {
		footer += " (free only)"
	}
	if len(catalog) > embed.FieldLimit {
		footer += fmt.Sprintf(", showing the newest %d", embed.FieldLimit)
	}
	return embed.Build(embed.Config{
		Color:       embed.ColorBlurple,
		Title:       "Models",
		Description: "Use `/disqord model set <model>` to change the model.\nFull list: <https://openrouter.ai/models>",
		Fields:      fields,
		Footer:      footer,
	})
}

func (h *Handler) modelRefresh(ctx context.Context, i *discordgo.Interaction) error {
	if errDefer := h.deferReply(i); errDefer != nil {
		return errDefer
	}
	catalogCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	refreshed := h.catalog.RefreshCache(catalogCtx)
	if len(refreshed) == 0 {
		return h.edit(i, []*discordgo.MessageEmbed{embed.Error("Could not fetch the model catalog. Please try again later.", "Model cache")}, nil)
	}
	status := h.catalog.GetCacheStatus()
	message := fmt.Sprintf("Model cache refreshed. Fetched %d models.", status.ModelCount)
	return h.edit(i, []*discordgo.MessageEmbed{embed.Success(message, "Model cache")}, nil)
}

func (h *Handler) statusData(ctx context.Context, guildID string) (StatusData, error) {
	upstreamCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	data := StatusData{
		Version: h.version,
		Credits: h.upstream.GetCredits(upstreamCtx),
		Cache:   h.catalog.GetCacheStatus(),
	}
	data.ResetAt, data.RateLimited = h.upstream.RateLimitResetAt()
	if guildID != "" {
		settings, errGet := h.settings.GetGuildSettings(ctx, guildID)
		if errGet != nil {
			return StatusData{}, errGet
		}
		data.Settings = &settings
	}
	return data, nil
}

func (h *Handler) status(ctx context.Context, i *discordgo.Interaction) error {
	if errDefer := h.deferReply(i); errDefer != nil {
		return errDefer
	}
	data, errData := h.statusData(ctx, i.GuildID)
	if errData != nil {
		return errData
	}
	statusEmbed, components := StatusView(data)
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return h.edit(i, []*discordgo.MessageEmbed{statusEmbed}, components)
}

// freeOnlyBlocked reports whether enabling free-only must be refused because
// the current model is not free.
func (h *Handler) freeOnlyBlocked(ctx context.Context, settings models.GuildSettings) bool {
	catalogCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()
	return !h.catalog.IsFreeModel(catalogCtx, settings.DefaultModel)
}

func freeOnlyBlockedEmbed(model string) *discordgo.MessageEmbed {
	return embed.Error(
		fmt.Sprintf("The current model `%s` is not free. Switch to a free model before enabling free-only mode.", model),
		"Configuration error",
	)
}

func (h *Handler) configFreeOnly(ctx context.Context, i *discordgo.Interaction, inv invocation) error {
	if i.GuildID == "" {
		return h.reply(i, true, embed.Error(guildOnlyMessage, ""))
	}
	if errDefer := h.deferReply(i); errDefer != nil {
		return errDefer
	}
	enabled := inv.stringOption(optionEnabled) == "on"
	if enabled {
		settings, errGet := h.settings.GetGuildSettings(ctx, i.GuildID)
		if errGet != nil {
			return errGet
		}
		if h.freeOnlyBlocked(ctx, settings) {
			return h.editEmbed(i, freeOnlyBlockedEmbed(settings.DefaultModel))
		}
	}
	if _, errSet := h.settings.SetFreeModelsOnly(ctx, i.GuildID, enabled); errSet != nil {
		return errSet
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return h.editEmbed(i, embed.Success(fmt.Sprintf("Free models only is now **%s**.", state), "Free models only"))
}

func (h *Handler) configReleaseChannel(ctx context.Context, i *discordgo.Interaction, inv invocation) error {
	if i.GuildID == "" {
		return h.reply(i, true, embed.Error(guildOnlyMessage, ""))
	}
	channelID := strings.TrimSpace(inv.stringOption(optionChannel))
	if channelID == "" {
		if _, errSet := h.settings.SetReleaseChannel(ctx, i.GuildID, nil); errSet != nil {
			return errSet
		}
		return h.reply(i, true, embed.Success("Release notifications disabled.", "Release notifications"))
	}
	if _, errSet := h.settings.SetReleaseChannel(ctx, i.GuildID, &channelID); errSet != nil {
		return errSet
	}
	return h.reply(i, true, embed.Success(fmt.Sprintf("Release notifications will be posted in <#%s>.", channelID), "Release notifications"))
}

func (h *Handler) configLlmDetails(ctx context.Context, i *discordgo.Interaction, inv invocation) error {
	if i.GuildID == "" {
		return h.reply(i, true, embed.Error(guildOnlyMessage, ""))
	}
	enabled := inv.stringOption(optionEnabled) == "on"
	if _, errSet := h.settings.SetShowLlmDetails(ctx, i.GuildID, enabled); errSet != nil {
		return errSet
	}
	return h.reply(i, true, embed.Success(fmt.Sprintf("LLM details display: **%s**", onOff(enabled)), "Configuration updated"))
}

func (h *Handler) handleAutocomplete(ctx context.Context, i *discordgo.Interaction) {
	choices := []*discordgo.ApplicationCommandOptionChoice{}
	data := i.ApplicationCommandData()
	inv := parseInvocation(data)
	if data.Name == CommandName && inv.group == groupModel && inv.sub == subModelSet && i.GuildID != "" {
		query := ""
		if focused := inv.focusedOption(); focused != nil {
			query, _ = focused.Value.(string)
		}
		type listing struct {
			models []openrouter.Model
			err    error
		}
		done := make(chan listing, 1)
		go func() {
			catalog, _, errList := h.modelsForGuild(ctx, i.GuildID)
			done <- listing{models: catalog, err: errList}
		}()
		timer := time.NewTimer(h.autocompleteWait)
		defer timer.Stop()
		select {
		case res := <-done:
			if res.err != nil {
				log.WithError(res.err).WithField("guild_id", i.GuildID).Error("bot: autocomplete failed")
			} else {
				choices = ModelChoices(res.models, query)
			}
		case <-timer.C:
			// The fetch keeps running and warms the cache for the next keystroke.
			log.WithField("guild_id", i.GuildID).Debug("bot: autocomplete catalog not ready")
		}
	}
	errRespond := h.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if errRespond != nil {
		log.WithError(errRespond).Warn("bot: autocomplete respond failed")
	}
}

func (h *Handler) handleButton(ctx context.Context, i *discordgo.Interaction) {
	customID := i.MessageComponentData().CustomID
	entry := log.WithFields(log.Fields{"guild_id": i.GuildID, "custom_id": customID})
	if i.GuildID == "" {
		if errReply := h.reply(i, true, embed.Error("This button can only be used in a server.", "")); errReply != nil {
			entry.WithError(errReply).Warn("bot: button reply failed")
		}
		return
	}

	errRun := h.runButton(ctx, i, customID)
	if errRun == nil {
		return
	}
	entry.WithError(errRun).Error("bot: button failed")
	errEmbed := embed.Error(buttonErrorMessage, "")
	if errReply := h.reply(i, true, errEmbed); errReply != nil {
		if errFollowup := h.followup(i, errEmbed); errFollowup != nil {
			entry.WithError(errFollowup).Warn("bot: button error reply failed")
		}
	}
}

// runButton acknowledges the click before any upstream call, then edits the
// status message in place. Rejections go out as ephemeral followups.
func (h *Handler) runButton(ctx context.Context, i *discordgo.Interaction, customID string) error {
	switch customID {
	case ButtonToggleFreeOnly, ButtonToggleLlmDetails:
		if !canManageGuild(i.Member) {
			return h.reply(i, true, embed.Error(permissionMessage, "Permission denied"))
		}
	case ButtonModelRefresh:
	default:
		log.WithField("custom_id", customID).Warn("bot: unknown button")
		return nil
	}
	if errDefer := h.deferUpdate(i); errDefer != nil {
		return errDefer
	}

	switch customID {
	case ButtonToggleFreeOnly:
		settings, errGet := h.settings.GetGuildSettings(ctx, i.GuildID)
		if errGet != nil {
			return errGet
		}
		next := !settings.FreeModelsOnly
		if next && h.freeOnlyBlocked(ctx, settings) {
			return h.followup(i, freeOnlyBlockedEmbed(settings.DefaultModel))
		}
		if _, errSet := h.settings.SetFreeModelsOnly(ctx, i.GuildID, next); errSet != nil {
			return errSet
		}
	case ButtonToggleLlmDetails:
		if _, errToggle := h.settings.ToggleShowLlmDetails(ctx, i.GuildID); errToggle != nil {
			return errToggle
		}
	case ButtonModelRefresh:
		catalogCtx, cancel := context.WithTimeout(ctx, upstreamTimeout)
		h.catalog.RefreshCache(catalogCtx)
		cancel()
	}

	data, errData := h.statusData(ctx, i.GuildID)
	if errData != nil {
		return errData
	}
	statusEmbed, components := StatusView(data)
	return h.edit(i, []*discordgo.MessageEmbed{statusEmbed}, components)
}
