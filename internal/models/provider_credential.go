package models

import "time"

// ProviderCredential stores the bearer credential for one (profile, provider)
// pair. AccessToken is AES-256-GCM encrypted at rest; the engine only reads
// it, token refresh belongs to the OAuth collaborator.
type ProviderCredential struct {
	BaseModel

	BusinessProfileID string    `gorm:"type:uuid;not null;uniqueIndex:idx_credential_profile_provider" json:"business_profile_id"`
	Provider          string    `gorm:"not null;uniqueIndex:idx_credential_profile_provider" json:"provider"`
	AccessToken       string    `gorm:"not null" json:"-"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Expired reports whether the stored credential is past its expiry.
func (c *ProviderCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
