package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/folderengine/internal/models"
)

func TestAutoMigrateCreatesSchema(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file:migrations_test?mode=memory&cache=shared&_foreign_keys=1"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrateAll(db))

	for _, table := range []string{"business_profiles", "team_members", "suppliers", "provider_folders", "provider_credentials"} {
		require.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	profile := models.BusinessProfile{TenantID: "tenant-1", Provider: "google"}
	require.NoError(t, db.Create(&profile).Error)
	require.NotEmpty(t, profile.ID)

	// (provider, label_id) is the composite key; the same label id may exist
	// under a different provider.
	folder := models.ProviderFolder{
		LabelID:           "Label_1",
		Provider:          "google",
		BusinessProfileID: profile.ID,
		LabelName:         "BANKING",
		SyncedAt:          time.Now().UTC(),
	}
	require.NoError(t, db.Create(&folder).Error)

	other := folder
	other.Provider = "microsoft"
	require.NoError(t, db.Create(&other).Error)

	dup := folder
	require.Error(t, db.Create(&dup).Error)
}

func TestTenantIDUniqueness(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file:tenant_unique_test?mode=memory&cache=shared&_foreign_keys=1"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrateAll(db))

	require.NoError(t, db.Create(&models.BusinessProfile{TenantID: "tenant-1", Provider: "google"}).Error)
	require.Error(t, db.Create(&models.BusinessProfile{TenantID: "tenant-1", Provider: "microsoft"}).Error)
}
