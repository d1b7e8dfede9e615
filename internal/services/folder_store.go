package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inboxpilot/folderengine/internal/models"
)

// upsertProviderFolder writes one folder observation keyed by
// (provider, label_id). Concurrent writers for the same id are safe:
// last write wins on synced_at.
func upsertProviderFolder(ctx context.Context, db *gorm.DB, record *models.ProviderFolder) error {
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider"}, {Name: "label_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"business_profile_id", "label_name", "color", "synced_at", "is_deleted", "updated_at",
			}),
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("upsert provider folder %s/%s: %w", record.Provider, record.LabelID, err)
	}
	return nil
}

// loadActiveFolders returns the non-deleted folder records for a profile.
func loadActiveFolders(ctx context.Context, db *gorm.DB, profileID string) ([]models.ProviderFolder, error) {
	var folders []models.ProviderFolder
	err := db.WithContext(ctx).
		Where("business_profile_id = ? AND is_deleted = ?", profileID, false).
		Order("label_name ASC").
		Find(&folders).Error
	if err != nil {
		return nil, fmt.Errorf("load provider folders: %w", err)
	}
	return folders, nil
}
