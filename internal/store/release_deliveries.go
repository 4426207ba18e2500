package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/router-for-me/disqord/internal/models"
	"gorm.io/gorm"
)

// ReleaseDeliveryStore records release webhook fan-out results.
type ReleaseDeliveryStore struct {
	db *gorm.DB
}

// NewReleaseDeliveryStore constructs a ReleaseDeliveryStore.
func NewReleaseDeliveryStore(db *gorm.DB) *ReleaseDeliveryStore {
	return &ReleaseDeliveryStore{db: db}
}

// Record inserts a delivery row, assigning ids when missing.
func (s *ReleaseDeliveryStore) Record(ctx context.Context, row *models.ReleaseDelivery) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("release delivery store: not initialized")
	}
	if row == nil {
		return fmt.Errorf("release delivery store: nil row")
	}
	if strings.TrimSpace(row.ID) == "" {
		row.ID = uuid.NewString()
	}
	if strings.TrimSpace(row.DeliveryID) == "" {
		row.DeliveryID = uuid.NewString()
	}
	if errCreate := s.db.WithContext(ctx).Create(row).Error; errCreate != nil {
		return fmt.Errorf("release delivery store: create: %w", errCreate)
	}
	return nil
}
