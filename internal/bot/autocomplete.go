package bot

import (
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/router-for-me/disqord/internal/format"
	"github.com/router-for-me/disqord/internal/openrouter"
)

const (
	maxChoices         = 25
	maxChoiceNameRunes = 100
)

// ModelChoices filters models by a case-insensitive substring of id or name,
// newest first, capped at the Discord choice limit.
func ModelChoices(catalog []openrouter.Model, query string) []*discordgo.ApplicationCommandOptionChoice {
	query = strings.ToLower(strings.TrimSpace(query))
	matched := make([]openrouter.Model, 0, len(catalog))
	for _, m := range catalog {
		if query == "" ||
			strings.Contains(strings.ToLower(m.ID), query) ||
			strings.Contains(strings.ToLower(m.Name), query) {
			matched = append(matched, m)
		}
	}
	sortNewestFirst(matched)
	if len(matched) > maxChoices {
		matched = matched[:maxChoices]
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(matched))
	for _, m := range matched {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  format.Truncate(name+" ("+m.ID+")", maxChoiceNameRunes),
			Value: m.ID,
		})
	}
	return choices
}

func sortNewestFirst(models []openrouter.Model) {
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Created > models[j].Created
	})
}
