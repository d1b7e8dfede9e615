package database

import (
	"gorm.io/gorm"

	"github.com/inboxpilot/folderengine/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.BusinessProfile{},
		&models.TeamMember{},
		&models.Supplier{},
		&models.ProviderFolder{},
		&models.ProviderCredential{},
	)
}
