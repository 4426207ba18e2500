package ratelimit

import "strings"

// KeyForMention builds the limiter key for a user mentioning the bot.
// Users are throttled across all guilds.
func KeyForMention(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}
	return "mention:u:" + userID
}
