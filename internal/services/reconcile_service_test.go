package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/folderengine/internal/mailprovider"
	"github.com/inboxpilot/folderengine/internal/models"
	apperrors "github.com/inboxpilot/folderengine/pkg/errors"
)

func TestReconcileDiscoversForeignFolders(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	profile := env.createProfile(t, "tenant-1", "google", "general")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	// A folder created out-of-band, e.g. by the user in the mail client.
	env.adapter.seed("Newsletter Blast", nil)

	summary, err := env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 8, summary.Observed)
	require.Equal(t, 1, summary.Discovered)
	// The seven provisioned folders are unchanged remotely, so none counts as
	// updated.
	require.Zero(t, summary.Updated)
	require.Zero(t, summary.SoftDeleted)

	require.NotNil(t, env.folderByName(t, profile.ID, "Newsletter Blast"))
}

func TestReconcileSoftDeletesVanishedFolders(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	profile := env.createProfile(t, "tenant-1", "google", "general")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	victim := env.folderByName(t, profile.ID, "PROMO")
	require.NotNil(t, victim)
	env.adapter.remove(victim.LabelID)

	summary, err := env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 1, summary.SoftDeleted)

	// The record survives, marked stale, never hard-deleted.
	require.Nil(t, env.folderByName(t, profile.ID, "PROMO"))

	var record models.ProviderFolder
	err = env.db.First(&record, "label_id = ? AND provider = ?", victim.LabelID, victim.Provider).Error
	require.NoError(t, err)
	require.True(t, record.IsDeleted)
}

func TestReconcileRevivesRestoredFolder(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	profile := env.createProfile(t, "tenant-1", "google", "general")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	victim := env.folderByName(t, profile.ID, "MISC")
	env.adapter.remove(victim.LabelID)

	_, err = env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Nil(t, env.folderByName(t, profile.ID, "MISC"))

	// The folder reappears remotely under the same id.
	env.adapter.mu.Lock()
	env.adapter.folders[victim.LabelID] = mailprovider.RemoteFolder{ID: victim.LabelID, Name: "MISC"}
	env.adapter.keys["misc"] = victim.LabelID
	env.adapter.mu.Unlock()

	summary, err := env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Updated)

	restored := env.folderByName(t, profile.ID, "MISC")
	require.NotNil(t, restored)
	require.False(t, restored.IsDeleted)
}

func TestReconcileConvergesOnSecondRun(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "general")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	first, err := env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)
	second, err := env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)

	require.Equal(t, first.Observed, second.Observed)
	require.Zero(t, second.Discovered)
	require.Zero(t, second.SoftDeleted)
}

func TestReconcileStoresHierarchicalPaths(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderMicrosoft, true)
	profile := env.createProfile(t, "tenant-1", "microsoft", "general")

	// Folders created out-of-band report bare display names with a parent
	// pointer; the record keeps the full path.
	archiveID := env.adapter.seed("Archive", nil)
	env.adapter.seed("2024", &mailprovider.FolderRef{ID: archiveID})

	summary, err := env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 2, summary.Discovered)

	require.NotNil(t, env.folderByName(t, profile.ID, "Archive"))
	require.NotNil(t, env.folderByName(t, profile.ID, "Archive/2024"))
	require.Nil(t, env.folderByName(t, profile.ID, "2024"))
}

func TestReconcileCountsRenameAsUpdate(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	profile := env.createProfile(t, "tenant-1", "google", "general")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	victim := env.folderByName(t, profile.ID, "PROMO")
	require.NotNil(t, victim)

	env.adapter.mu.Lock()
	env.adapter.folders[victim.LabelID] = mailprovider.RemoteFolder{ID: victim.LabelID, Name: "Promotions"}
	env.adapter.mu.Unlock()

	summary, err := env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Updated)
	require.NotNil(t, env.folderByName(t, profile.ID, "Promotions"))
}

func TestReconcileAuthFailure(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "general")

	env.adapter.listErr = &mailprovider.ProviderError{
		Provider:   "google",
		Operation:  "list",
		Kind:       mailprovider.KindAuth,
		StatusCode: http.StatusUnauthorized,
	}

	_, err := env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.Error(t, err)
	require.True(t, isProviderAuth(err))
}

// tenantSource routes each tenant to its own adapter, like the production
// factory building one adapter per mailbox credential.
type tenantSource struct {
	adapters map[string]mailprovider.Adapter
}

func (s *tenantSource) ForProfile(ctx context.Context, profile *models.BusinessProfile) (mailprovider.Adapter, error) {
	adapter, ok := s.adapters[profile.TenantID]
	if !ok {
		return nil, apperrors.ErrProviderAuth
	}
	return adapter, nil
}

func TestReconcileAllContinuesPastFailingTenant(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	healthy := env.createProfile(t, "tenant-1", "google", "general")
	env.createProfile(t, "tenant-2", "google", "general")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	// tenant-2 has no usable credential; tenant-1 must still reconcile.
	source := &tenantSource{adapters: map[string]mailprovider.Adapter{"tenant-1": env.adapter}}
	reconciler, err := NewReconcileService(env.db, source, env.profiles)
	require.NoError(t, err)

	env.adapter.seed("Newsletter Blast", nil)

	err = reconciler.ReconcileAll(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "tenant-2")

	require.NotNil(t, env.folderByName(t, healthy.ID, "Newsletter Blast"))
}

func TestReconcileUnknownTenant(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)

	_, err := env.reconciler.Reconcile(context.Background(), "ghost")
	require.ErrorIs(t, err, apperrors.ErrTenantNotFound)
}
