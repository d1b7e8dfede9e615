package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inboxpilot/folderengine/internal/mailprovider"
	"github.com/inboxpilot/folderengine/internal/models"
	"github.com/inboxpilot/folderengine/internal/schema"
	"github.com/inboxpilot/folderengine/pkg/crypto"
	apperrors "github.com/inboxpilot/folderengine/pkg/errors"
)

// ProfileService manages business profiles and the read-only inputs the
// resolver consumes: business types, team members, suppliers, credential.
type ProfileService struct {
	db       *gorm.DB
	registry *mailprovider.Registry
	key      []byte
}

// NewProfileService constructs a profile service. The encryption key protects
// stored provider credentials at rest.
func NewProfileService(db *gorm.DB, registry *mailprovider.Registry, encryptionKey []byte) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	if registry == nil {
		return nil, errors.New("profile service: registry is required")
	}
	if len(encryptionKey) == 0 {
		return nil, errors.New("profile service: encryption key is required")
	}
	return &ProfileService{db: db, registry: registry, key: encryptionKey}, nil
}

// CreateProfileInput describes a new tenant mailbox registration.
type CreateProfileInput struct {
	TenantID      string
	Provider      string
	EmailAddress  string
	BusinessTypes []string
}

// TeamMemberInput is one entry of a replace-team request.
type TeamMemberInput struct {
	Name  string
	Role  string
	Email string
}

// SupplierInput is one entry of a replace-suppliers request.
type SupplierInput struct {
	Name    string
	Domains []string
}

// Create registers a business profile for a tenant.
func (s *ProfileService) Create(ctx context.Context, input CreateProfileInput) (*models.BusinessProfile, error) {
	ctx = ensureContext(ctx)

	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	if !s.knownProvider(provider) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown mail provider %q", input.Provider))
	}

	slugs := make([]string, 0, len(input.BusinessTypes))
	for _, businessType := range input.BusinessTypes {
		slugs = append(slugs, schema.BusinessTypeSlug(businessType))
	}
	if _, err := schema.Resolve(schema.Input{BusinessTypes: slugs}); err != nil {
		return nil, apperrors.ErrSchemaInvalid.WithInternal(err)
	}

	types, err := json.Marshal(slugs)
	if err != nil {
		return nil, fmt.Errorf("profile service: encode business types: %w", err)
	}

	profile := models.BusinessProfile{
		TenantID:      strings.TrimSpace(input.TenantID),
		Provider:      provider,
		EmailAddress:  strings.TrimSpace(input.EmailAddress),
		BusinessTypes: datatypes.JSON(types),
	}
	if profile.TenantID == "" {
		return nil, apperrors.NewBadRequest("tenant_id is required")
	}

	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.New("PROFILE_EXISTS", "A business profile already exists for this tenant", 409)
		}
		return nil, fmt.Errorf("profile service: create profile: %w", err)
	}

	return &profile, nil
}

// GetByTenant loads a profile with its team members and suppliers.
func (s *ProfileService) GetByTenant(ctx context.Context, tenantID string) (*models.BusinessProfile, error) {
	ctx = ensureContext(ctx)

	var profile models.BusinessProfile
	err := s.db.WithContext(ctx).
		Preload("TeamMembers").
		Preload("Suppliers").
		First(&profile, "tenant_id = ?", strings.TrimSpace(tenantID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTenantNotFound
		}
		return nil, fmt.Errorf("profile service: load profile: %w", err)
	}

	return &profile, nil
}

// ReplaceTeam swaps the tenant's team-member list for the provided one.
func (s *ProfileService) ReplaceTeam(ctx context.Context, tenantID string, members []TeamMemberInput) error {
	ctx = ensureContext(ctx)

	profile, err := s.GetByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_profile_id = ?", profile.ID).Delete(&models.TeamMember{}).Error; err != nil {
			return fmt.Errorf("profile service: clear team members: %w", err)
		}
		for _, member := range members {
			name := strings.TrimSpace(member.Name)
			if name == "" {
				continue
			}
			record := models.TeamMember{
				BusinessProfileID: profile.ID,
				Name:              name,
				Role:              strings.TrimSpace(member.Role),
				Email:             strings.TrimSpace(member.Email),
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("profile service: create team member: %w", err)
			}
		}
		return nil
	})
}

// ReplaceSuppliers swaps the tenant's supplier list for the provided one.
func (s *ProfileService) ReplaceSuppliers(ctx context.Context, tenantID string, suppliers []SupplierInput) error {
	ctx = ensureContext(ctx)

	profile, err := s.GetByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("business_profile_id = ?", profile.ID).Delete(&models.Supplier{}).Error; err != nil {
			return fmt.Errorf("profile service: clear suppliers: %w", err)
		}
		for _, supplier := range suppliers {
			name := strings.TrimSpace(supplier.Name)
			if name == "" {
				continue
			}
			domains, err := json.Marshal(supplier.Domains)
			if err != nil {
				return fmt.Errorf("profile service: encode supplier domains: %w", err)
			}
			record := models.Supplier{
				BusinessProfileID: profile.ID,
				Name:              name,
				Domains:           datatypes.JSON(domains),
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("profile service: create supplier: %w", err)
			}
		}
		return nil
	})
}

// StoreCredential encrypts and upserts the provider bearer credential for the
// tenant. The OAuth collaborator owns acquisition and refresh; this engine
// only stores what it is handed.
func (s *ProfileService) StoreCredential(ctx context.Context, tenantID, accessToken string, expiresAt time.Time) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(accessToken) == "" {
		return apperrors.NewBadRequest("access_token is required")
	}

	profile, err := s.GetByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	encrypted, err := crypto.Encrypt([]byte(accessToken), s.key)
	if err != nil {
		return fmt.Errorf("profile service: encrypt credential: %w", err)
	}

	var existing models.ProviderCredential
	err = s.db.WithContext(ctx).
		First(&existing, "business_profile_id = ? AND provider = ?", profile.ID, profile.Provider).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record := models.ProviderCredential{
			BusinessProfileID: profile.ID,
			Provider:          profile.Provider,
			AccessToken:       encrypted,
			ExpiresAt:         expiresAt,
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("profile service: create credential: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("profile service: load credential: %w", err)
	default:
		updates := map[string]any{
			"access_token": encrypted,
			"expires_at":   expiresAt,
		}
		if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("profile service: update credential: %w", err)
		}
		return nil
	}
}

// ResolverInput projects a loaded profile into the schema resolver's input.
func ResolverInput(profile *models.BusinessProfile, includeDynamic bool) schema.Input {
	input := schema.Input{BusinessTypes: profile.BusinessTypeSlugs()}
	if !includeDynamic {
		return input
	}

	for _, member := range profile.TeamMembers {
		input.TeamMembers = append(input.TeamMembers, member.Name)
	}
	for _, supplier := range profile.Suppliers {
		input.Suppliers = append(input.Suppliers, supplier.Name)
	}
	return input
}

func (s *ProfileService) knownProvider(provider string) bool {
	for _, meta := range s.registry.Metadata() {
		if meta.Type == provider {
			return true
		}
	}
	return false
}
