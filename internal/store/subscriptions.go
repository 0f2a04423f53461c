package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-branch-monitor/internal/model"
)

// ErrUnknownMachine is returned when a subscription names a machine that is
// not in the mirrored inventory.
var ErrUnknownMachine = errors.New("unknown machine")

// SaveSubscription creates or replaces a push subscription together with the
// set of machines it follows.
func (s *gormStore) SaveSubscription(ctx context.Context, sub model.PushSubscription, machineIDs []int64) error {
	ids := uniqueIDs(machineIDs)
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var machines []model.Machine
		if len(ids) > 0 {
			if err := tx.Find(&machines, ids).Error; err != nil {
				return fmt.Errorf("failed to load subscribed machines: %w", err)
			}
			if len(machines) != len(ids) {
				return fmt.Errorf("subscribed_machines %v: %w", ids, ErrUnknownMachine)
			}
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
		if err := tx.Model(&sub).Association("Machines").Replace(&machines); err != nil {
			return fmt.Errorf("failed to map subscription machines: %w", err)
		}
		return nil
	})
}

// GetSubscription loads a subscription with its machines.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Machines").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PushSubscription{}, fmt.Errorf("subscription: %w", ErrNotFound)
	}
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

// DeleteSubscription removes a subscription and its machine mapping. Deleting
// an unknown endpoint is not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).
		Select("Machines").
		Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
