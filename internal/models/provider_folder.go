package models

import "time"

// ProviderFolder records one remote folder/label as last observed. The
// provider-assigned identifier is opaque: a short token for flat-label
// providers, a long GUID-like token for hierarchical ones. Rows are never
// hard-deleted; a reconciliation pass that can no longer see the id remotely
// sets IsDeleted so historical routing decisions stay auditable.
type ProviderFolder struct {
	LabelID           string    `gorm:"primaryKey" json:"label_id"`
	Provider          string    `gorm:"primaryKey" json:"provider"`
	BusinessProfileID string    `gorm:"type:uuid;not null;index" json:"business_profile_id"`
	LabelName         string    `gorm:"not null" json:"label_name"`
	Color             string    `json:"color"`
	SyncedAt          time.Time `json:"synced_at"`
	IsDeleted         bool      `gorm:"default:false;index" json:"is_deleted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the historical table name used by the first migration.
func (ProviderFolder) TableName() string {
	return "provider_folders"
}
