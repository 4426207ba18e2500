// Package embed builds Discord embeds within the API size limits.
package embed

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/router-for-me/disqord/internal/format"
)

// Discord embed limits, in characters.
const (
	TitleLimit       = 256
	DescriptionLimit = 4096
	FooterLimit      = 2048
	AuthorLimit      = 256
	FieldLimit       = 25
	FieldNameLimit   = 256
	FieldValueLimit  = 1024
)

// Standard colors.
const (
	ColorBlurple = 0x5865f2
	ColorRed     = 0xed4245
)

var modelPalette = [16]int{
	0x5865f2, 0x57f287, 0xfee75c, 0xeb459e,
	0xed4245, 0x3498db, 0x9b59b6, 0x1abc9c,
	0xe67e22, 0x2ecc71, 0xf1c40f, 0xe91e63,
	0x11806a, 0x206694, 0x71368a, 0xa84300,
}

// ColorForModel maps a model id to a stable palette color.
func ColorForModel(modelID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(modelID))
	return modelPalette[h.Sum32()%uint32(len(modelPalette))]
}

// Field is a single embed field.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Author is the embed author block.
type Author struct {
	Name    string
	IconURL string
	URL     string
}

// Config describes an embed. A nil Timestamp leaves the timestamp unset.
type Config struct {
	Color       int
	Title       string
	Description string
	URL         string
	Timestamp   *time.Time
	Footer      string
	FooterIcon  string
	Thumbnail   string
	Author      *Author
	Fields      []Field
}

// Build converts cfg to a discordgo embed, truncating every part to its limit.
func Build(cfg Config) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Color:       cfg.Color,
		Title:       format.Truncate(cfg.Title, TitleLimit),
		Description: format.Truncate(cfg.Description, DescriptionLimit),
		URL:         cfg.URL,
	}
	if cfg.Timestamp != nil {
		out.Timestamp = cfg.Timestamp.UTC().Format(time.RFC3339)
	}
	if cfg.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{
			Text:    format.Truncate(cfg.Footer, FooterLimit),
			IconURL: cfg.FooterIcon,
		}
	}
	if cfg.Thumbnail != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: cfg.Thumbnail}
	}
	if cfg.Author != nil {
		out.Author = &discordgo.MessageEmbedAuthor{
			Name:    format.Truncate(cfg.Author.Name, AuthorLimit),
			IconURL: cfg.Author.IconURL,
			URL:     cfg.Author.URL,
		}
	}
	fields := cfg.Fields
	if len(fields) > FieldLimit {
		fields = fields[:FieldLimit]
	}
	for _, f := range fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   format.Truncate(f.Name, FieldNameLimit),
			Value:  format.Truncate(f.Value, FieldValueLimit),
			Inline: f.Inline,
		})
	}
	return out
}

// Pages splits text into one embed per message, numbering pages when there is
// more than one. details, when non-empty, is appended to the last footer.
// Empty text yields no pages.
func Pages(text string, base Config, details string) []*discordgo.MessageEmbed {
	if text == "" {
		return nil
	}
	chunks := format.SplitIntoChunks(text, DescriptionLimit)
	total := len(chunks)
	pages := make([]*discordgo.MessageEmbed, 0, total)
	for i, chunk := range chunks {
		var footer []string
		if total > 1 {
			footer = append(footer, fmt.Sprintf("Page %d/%d", i+1, total))
		}
		if i == total-1 && details != "" {
			footer = append(footer, details)
		}
		cfg := base
		cfg.Description = chunk
		cfg.Footer = strings.Join(footer, "\n")
		pages = append(pages, Build(cfg))
	}
	return pages
}

// Error builds a red error embed stamped with the current time.
func Error(message, title string) *discordgo.MessageEmbed {
	if title == "" {
		title = "Error"
	}
	now := time.Now()
	return Build(Config{Color: ColorRed, Title: title, Description: message, Timestamp: &now})
}

// Success builds a blurple embed without a timestamp.
func Success(message, title string) *discordgo.MessageEmbed {
	return Build(Config{Color: ColorBlurple, Title: title, Description: message})
}
