// Package format renders prices, context lengths and response details for chat output.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/router-for-me/disqord/internal/openrouter"
)

// MessageLimit is the maximum length of a plain Discord message.
const MessageLimit = 2000

// FormatPrice renders a per-token price string as a per-million price.
func FormatPrice(price string) string {
	if price == "0" {
		return "free"
	}
	perToken, errParse := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if errParse != nil {
		return price
	}
	perMillion := perToken * 1_000_000

	var formatted string
	switch {
	case perMillion >= 0.01:
		formatted = strconv.FormatFloat(perMillion, 'f', 2, 64)
	case perMillion >= 0.0001:
		precision := int(math.Ceil(-math.Log10(perMillion))) + 1
		if precision > 4 {
			precision = 4
		}
		formatted = strings.TrimRight(strconv.FormatFloat(perMillion, 'f', precision, 64), "0")
	default:
		formatted = strings.TrimRight(strconv.FormatFloat(perMillion, 'f', 6, 64), "0")
		if strings.HasSuffix(formatted, ".") {
			formatted += "0"
		}
	}
	return "$" + formatted + "/1M"
}

// FormatContextLength renders 128000 as "128K (128,000)".
func FormatContextLength(length int) string {
	if length >= 1000 {
		return fmt.Sprintf("%dK (%s)", length/1000, humanize.Comma(int64(length)))
	}
	return strconv.Itoa(length)
}

// Details carries the values shown in the response details line.
type Details struct {
	Model     string
	Provider  string
	LatencyMs int64
	Usage     *openrouter.Usage
}

// DetailsLine joins the response details with " | ". It returns "" without usage data.
func DetailsLine(d Details) string {
	if d.Usage == nil {
		return ""
	}
	u := d.Usage
	parts := []string{fmt.Sprintf("Tokens: %d+%d=%d", u.PromptTokens, u.CompletionTokens, u.TotalTokens)}
	if u.Cost != nil {
		parts = append(parts, fmt.Sprintf("Cost: $%.6f", *u.Cost))
	}
	if d.Model != "" {
		parts = append(parts, "Model: "+d.Model)
	}
	if d.LatencyMs > 0 {
		parts = append(parts, fmt.Sprintf("Latency: %dms", d.LatencyMs))
	}
	if d.Provider != "" {
		parts = append(parts, "Provider: "+d.Provider)
	}
	if u.PromptTokensDetails != nil && u.PromptTokensDetails.CachedTokens > 0 {
		parts = append(parts, fmt.Sprintf("Cached: %d", u.PromptTokensDetails.CachedTokens))
	}
	if u.CompletionTokensDetails != nil && u.CompletionTokensDetails.ReasoningTokens > 0 {
		parts = append(parts, fmt.Sprintf("Reasoning: %d", u.CompletionTokensDetails.ReasoningTokens))
	}
	if u.CompletionTokens > 0 && d.LatencyMs > 0 {
		tps := float64(u.CompletionTokens) / (float64(d.LatencyMs) / 1000)
		parts = append(parts, fmt.Sprintf("TPS: %.2f", tps))
	}
	return strings.Join(parts, " | ")
}

// SplitIntoChunks splits text into pieces of at most limit runes.
func SplitIntoChunks(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
