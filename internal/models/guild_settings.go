package models

import "time"

// GuildSettings stores per-guild bot configuration.
type GuildSettings struct {
	GuildID string `gorm:"column:guild_id;type:varchar(32);primaryKey"` // Discord guild snowflake.

	DefaultModel     string  `gorm:"type:varchar(255);not null"`                       // Model id used for chat replies.
	FreeModelsOnly   bool    `gorm:"not null"`                                         // Restrict selection to zero-priced models.
	ReleaseChannelID *string `gorm:"column:release_channel_id;type:varchar(32);index"` // Channel for release notifications.
	ShowLlmDetails   bool    `gorm:"column:show_llm_details;not null"`                 // Append usage details to replies.

	CreatedAt time.Time `gorm:"not null"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null"` // Last update timestamp.
}

// TableName overrides the default table name.
func (GuildSettings) TableName() string {
	return "guild_settings"
}

// HasReleaseChannel reports whether a release channel is configured.
func (g GuildSettings) HasReleaseChannel() bool {
	return g.ReleaseChannelID != nil && *g.ReleaseChannelID != ""
}
