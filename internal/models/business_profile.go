package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// BusinessProfile is the tenant-scoped root record. It owns every
// ProviderFolder, team member, supplier and credential for one connected
// mailbox.
type BusinessProfile struct {
	BaseModel

	TenantID      string         `gorm:"not null;uniqueIndex" json:"tenant_id"`
	Provider      string         `gorm:"not null;index" json:"provider"`
	EmailAddress  string         `json:"email_address"`
	BusinessTypes datatypes.JSON `json:"business_types"`

	TeamMembers []TeamMember       `gorm:"foreignKey:BusinessProfileID" json:"team_members,omitempty"`
	Suppliers   []Supplier         `gorm:"foreignKey:BusinessProfileID" json:"suppliers,omitempty"`
	Folders     []ProviderFolder   `gorm:"foreignKey:BusinessProfileID" json:"folders,omitempty"`
	Credential  *ProviderCredential `gorm:"foreignKey:BusinessProfileID" json:"-"`
}

// BusinessTypeSlugs decodes the stored business-type list. A malformed or
// empty column yields nil rather than an error; the resolver rejects unknown
// types downstream.
func (p *BusinessProfile) BusinessTypeSlugs() []string {
	if len(p.BusinessTypes) == 0 {
		return nil
	}
	var slugs []string
	if err := json.Unmarshal(p.BusinessTypes, &slugs); err != nil {
		return nil
	}
	return slugs
}

// TeamMember is a named staff member whose personal subfolder lives under the
// MANAGER category.
type TeamMember struct {
	BaseModel

	BusinessProfileID string `gorm:"type:uuid;not null;index" json:"business_profile_id"`
	Name              string `gorm:"not null" json:"name"`
	Role              string `json:"role"`
	Email             string `json:"email"`
}

// Supplier is a vendor whose subfolder lives under the SUPPLIERS category.
type Supplier struct {
	BaseModel

	BusinessProfileID string         `gorm:"type:uuid;not null;index" json:"business_profile_id"`
	Name              string         `gorm:"not null" json:"name"`
	Domains           datatypes.JSON `json:"domains"`
}
