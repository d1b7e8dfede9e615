package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/inboxpilot/folderengine/internal/mailprovider"
	"github.com/inboxpilot/folderengine/internal/models"
	"github.com/inboxpilot/folderengine/pkg/crypto"
	apperrors "github.com/inboxpilot/folderengine/pkg/errors"
)

// ProviderSettings carries the per-provider connection knobs from
// configuration: endpoint, call timeout, and the transient-retry policy.
type ProviderSettings struct {
	BaseURL string
	Timeout time.Duration
	Retry   mailprovider.RetryPolicy
}

// AdapterSource builds a provider adapter bound to one profile's credential.
// Implemented by AdapterFactory in production and by fakes in tests.
type AdapterSource interface {
	ForProfile(ctx context.Context, profile *models.BusinessProfile) (mailprovider.Adapter, error)
}

// AdapterFactory loads the stored bearer credential for a profile, decrypts
// it, and instantiates the registered adapter variant for the profile's
// provider. Tenant identity and credential travel explicitly through every
// call; there is no ambient current-tenant state.
type AdapterFactory struct {
	db       *gorm.DB
	registry *mailprovider.Registry
	settings map[string]ProviderSettings
	key      []byte
}

// NewAdapterFactory constructs an AdapterFactory.
func NewAdapterFactory(db *gorm.DB, registry *mailprovider.Registry, settings map[string]ProviderSettings, encryptionKey []byte) (*AdapterFactory, error) {
	if db == nil {
		return nil, errors.New("adapter factory: db is required")
	}
	if registry == nil {
		return nil, errors.New("adapter factory: registry is required")
	}
	if len(encryptionKey) == 0 {
		return nil, errors.New("adapter factory: encryption key is required")
	}

	return &AdapterFactory{
		db:       db,
		registry: registry,
		settings: settings,
		key:      encryptionKey,
	}, nil
}

// ForProfile returns an adapter for the profile's provider. A missing or
// expired credential is an auth failure for the whole run; the engine never
// refreshes tokens itself.
func (f *AdapterFactory) ForProfile(ctx context.Context, profile *models.BusinessProfile) (mailprovider.Adapter, error) {
	ctx = ensureContext(ctx)

	var credential models.ProviderCredential
	err := f.db.WithContext(ctx).
		First(&credential, "business_profile_id = ? AND provider = ?", profile.ID, profile.Provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProviderAuth.WithInternal(err)
		}
		return nil, fmt.Errorf("adapter factory: load credential: %w", err)
	}

	if credential.Expired(time.Now()) {
		return nil, apperrors.ErrProviderAuth
	}

	token, err := crypto.Decrypt(credential.AccessToken, f.key)
	if err != nil {
		return nil, apperrors.ErrProviderAuth.WithInternal(err)
	}

	settings := f.settings[profile.Provider]
	return f.registry.New(profile.Provider, mailprovider.Config{
		BaseURL:     settings.BaseURL,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: string(token)}),
		Timeout:     settings.Timeout,
		Retry:       settings.Retry,
	})
}
