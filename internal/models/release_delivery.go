package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReleaseDelivery records the outcome of one release webhook fan-out.
type ReleaseDelivery struct {
	ID         string `gorm:"type:varchar(36);primaryKey"`      // Row id (uuid).
	DeliveryID string `gorm:"type:varchar(64);not null;index"`  // X-GitHub-Delivery header or generated id.
	Repository string `gorm:"type:varchar(255);not null;index"` // Repository full name.
	Tag        string `gorm:"type:varchar(255);not null"`       // Release tag.
	Action     string `gorm:"type:varchar(32);not null"`        // Webhook action.

	Success int `gorm:"not null;default:0"` // Channels delivered.
	Failed  int `gorm:"not null;default:0"` // Channels failed.
	Skipped int `gorm:"not null;default:0"` // Payloads skipped.

	Errors    datatypes.JSON `gorm:"type:jsonb"`              // Per-guild failures.
	CreatedAt time.Time      `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TableName overrides the default table name.
func (ReleaseDelivery) TableName() string {
	return "release_deliveries"
}
