package bot

import (
	"github.com/bwmarrin/discordgo"
)

// CommandName is the root slash command.
const CommandName = "disqord"

// Subcommand groups and subcommands.
const (
	groupModel  = "model"
	groupConfig = "config"

	subHelp           = "help"
	subStatus         = "status"
	subModelCurrent   = "current"
	subModelSet       = "set"
	subModelList      = "list"
	subModelRefresh   = "refresh"
	subFreeOnly       = "free-only"
	subReleaseChannel = "release-channel"
	subLlmDetails     = "llm-details"

	optionModel   = "model"
	optionEnabled = "enabled"
	optionChannel = "channel"
)

// Button custom ids on the status view.
const (
	ButtonToggleFreeOnly   = "status_toggle_free_only"
	ButtonToggleLlmDetails = "status_toggle_llm_details"
	ButtonModelRefresh     = "status_model_refresh"
)

func onOffOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optionEnabled,
		Description: description,
		Required:    true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "on", Value: "on"},
			{Name: "off", Value: "off"},
		},
	}
}

// Commands returns the application command definitions.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{{
		Name:        CommandName,
		Description: "DisQord bot commands",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        subHelp,
				Description: "Show DisQord usage guidance",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        subStatus,
				Description: "Display bot health information, such as OpenRouter credits",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        groupModel,
				Description: "Model management commands",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        subModelCurrent,
						Description: "Show the current default model for this guild",
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        subModelSet,
						Description: "Update the default model for this guild",
						Options: []*discordgo.ApplicationCommandOption{{
							Type:         discordgo.ApplicationCommandOptionString,
							Name:         optionModel,
							Description:  "Model identifier as provided by OpenRouter",
							Required:     true,
							Autocomplete: true,
						}},
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        subModelList,
						Description: "List available OpenRouter models",
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        subModelRefresh,
						Description: "Refresh the model cache",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        groupConfig,
				Description: "Guild configuration commands (Manage Server)",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        subFreeOnly,
						Description: "Restrict to free models only",
						Options:     []*discordgo.ApplicationCommandOption{onOffOption("Enable or disable the free models only restriction")},
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        subReleaseChannel,
						Description: "Set the release notification channel (omit to disable)",
						Options: []*discordgo.ApplicationCommandOption{{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        optionChannel,
							Description: "Channel that receives release notifications",
							ChannelTypes: []discordgo.ChannelType{
								discordgo.ChannelTypeGuildText,
								discordgo.ChannelTypeGuildNews,
							},
						}},
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        subLlmDetails,
						Description: "Show token usage, cost and latency under replies",
						Options:     []*discordgo.ApplicationCommandOption{onOffOption("Enable or disable LLM details")},
					},
				},
			},
		},
	}}
}

// invocation is a resolved /disqord call.
type invocation struct {
	group   string
	sub     string
	options map[string]*discordgo.ApplicationCommandInteractionDataOption
}

// parseInvocation flattens the nested subcommand options.
func parseInvocation(data discordgo.ApplicationCommandInteractionData) invocation {
	inv := invocation{options: map[string]*discordgo.ApplicationCommandInteractionDataOption{}}
	opts := data.Options
	for len(opts) > 0 {
		first := opts[0]
		switch first.Type {
		case discordgo.ApplicationCommandOptionSubCommandGroup:
			inv.group = first.Name
			opts = first.Options
			continue
		case discordgo.ApplicationCommandOptionSubCommand:
			inv.sub = first.Name
			opts = first.Options
			continue
		}
		for _, opt := range opts {
			inv.options[opt.Name] = opt
		}
		break
	}
	return inv
}

func (inv invocation) stringOption(name string) string {
	opt := inv.options[name]
	if opt == nil {
		return ""
	}
	if s, ok := opt.Value.(string); ok {
		return s
	}
	return ""
}

// focusedOption returns the option the user is typing into during autocomplete.
func (inv invocation) focusedOption() *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range inv.options {
		if opt.Focused {
			return opt
		}
	}
	return nil
}
