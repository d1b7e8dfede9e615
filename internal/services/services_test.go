package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/inboxpilot/folderengine/internal/database/testutil"
	"github.com/inboxpilot/folderengine/internal/mailprovider"
	"github.com/inboxpilot/folderengine/internal/models"
	"github.com/inboxpilot/folderengine/pkg/crypto"
)

var testKey = crypto.DeriveKey("test-passphrase", "test-salt")

// fakeAdapter simulates a provider folder API in memory, covering both the
// flat-label and hierarchical dialects.
type fakeAdapter struct {
	mu           sync.Mutex
	provider     string
	hierarchical bool
	nextID       int
	folders      map[string]mailprovider.RemoteFolder // id -> folder
	keys         map[string]string                    // uniqueness key -> id

	createErrs map[string]error // folder name -> error to return once attempted
	listErr    error
}

func newFakeAdapter(provider string, hierarchical bool) *fakeAdapter {
	return &fakeAdapter{
		provider:     provider,
		hierarchical: hierarchical,
		folders:      make(map[string]mailprovider.RemoteFolder),
		keys:         make(map[string]string),
		createErrs:   make(map[string]error),
	}
}

func (f *fakeAdapter) Provider() string { return f.provider }

func (f *fakeAdapter) key(name string, parent *mailprovider.FolderRef) string {
	if f.hierarchical {
		parentID := ""
		if parent != nil {
			parentID = parent.ID
		}
		return parentID + "|" + strings.ToLower(name)
	}
	if parent != nil && parent.Path != "" {
		return strings.ToLower(parent.Path + "/" + name)
	}
	return strings.ToLower(name)
}

func (f *fakeAdapter) displayName(name string, parent *mailprovider.FolderRef) string {
	if f.hierarchical {
		return name
	}
	if parent != nil && parent.Path != "" {
		return parent.Path + "/" + name
	}
	return name
}

// seed inserts a pre-existing remote folder and returns its id.
func (f *fakeAdapter) seed(name string, parent *mailprovider.FolderRef) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertLocked(name, parent)
}

func (f *fakeAdapter) insertLocked(name string, parent *mailprovider.FolderRef) string {
	f.nextID++
	id := fmt.Sprintf("%s-%d", f.provider, f.nextID)

	folder := mailprovider.RemoteFolder{ID: id, Name: f.displayName(name, parent)}
	if f.hierarchical && parent != nil {
		folder.ParentID = parent.ID
	}

	f.folders[id] = folder
	f.keys[f.key(name, parent)] = id
	return id
}

func (f *fakeAdapter) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.folders, id)
	for key, keyID := range f.keys {
		if keyID == id {
			delete(f.keys, key)
		}
	}
}

func (f *fakeAdapter) failCreate(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErrs[strings.ToLower(name)] = err
}

func (f *fakeAdapter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.folders)
}

func (f *fakeAdapter) Create(ctx context.Context, name string, parent *mailprovider.FolderRef) (mailprovider.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.createErrs[strings.ToLower(name)]; ok {
		return mailprovider.CreateResult{}, err
	}

	if id, exists := f.keys[f.key(name, parent)]; exists {
		if f.hierarchical {
			return mailprovider.CreateResult{Conflict: true}, nil
		}
		return mailprovider.CreateResult{ID: id, Conflict: true}, nil
	}

	return mailprovider.CreateResult{ID: f.insertLocked(name, parent)}, nil
}

func (f *fakeAdapter) List(ctx context.Context) ([]mailprovider.RemoteFolder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	folders := make([]mailprovider.RemoteFolder, 0, len(f.folders))
	for _, folder := range f.folders {
		folders = append(folders, folder)
	}
	return folders, nil
}

func (f *fakeAdapter) ResolveByName(ctx context.Context, name string, parent *mailprovider.FolderRef) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id, ok := f.keys[f.key(name, parent)]; ok {
		return id, nil
	}
	return "", mailprovider.ErrFolderNotFound
}

// fakeSource hands out one shared adapter regardless of profile.
type fakeSource struct {
	adapter mailprovider.Adapter
	err     error
}

func (s *fakeSource) ForProfile(ctx context.Context, profile *models.BusinessProfile) (mailprovider.Adapter, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.adapter, nil
}

// testEnv wires the service layer against a fresh in-memory database and one
// fake adapter.
type testEnv struct {
	db          *gorm.DB
	adapter     *fakeAdapter
	profiles    *ProfileService
	reconciler  *ReconcileService
	provisioner *ProvisioningService
	coverage    *CoverageService
	routing     *RoutingService
}

func newTestEnv(t *testing.T, provider string, hierarchical bool) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	registry := mailprovider.NewDefaultRegistry()
	adapter := newFakeAdapter(provider, hierarchical)
	source := &fakeSource{adapter: adapter}

	profiles, err := NewProfileService(db, registry, testKey)
	require.NoError(t, err)

	reconciler, err := NewReconcileService(db, source, profiles)
	require.NoError(t, err)

	provisioner, err := NewProvisioningService(db, source, profiles, reconciler)
	require.NoError(t, err)

	coverage, err := NewCoverageService(db, profiles)
	require.NoError(t, err)

	routing, err := NewRoutingService(db, profiles)
	require.NoError(t, err)

	return &testEnv{
		db:          db,
		adapter:     adapter,
		profiles:    profiles,
		reconciler:  reconciler,
		provisioner: provisioner,
		coverage:    coverage,
		routing:     routing,
	}
}

func (e *testEnv) createProfile(t *testing.T, tenantID, provider string, businessTypes ...string) *models.BusinessProfile {
	t.Helper()

	profile, err := e.profiles.Create(context.Background(), CreateProfileInput{
		TenantID:      tenantID,
		Provider:      provider,
		EmailAddress:  tenantID + "@example.com",
		BusinessTypes: businessTypes,
	})
	require.NoError(t, err)
	return profile
}

func (e *testEnv) activeFolders(t *testing.T, profileID string) []models.ProviderFolder {
	t.Helper()

	folders, err := loadActiveFolders(context.Background(), e.db, profileID)
	require.NoError(t, err)
	return folders
}

func (e *testEnv) folderByName(t *testing.T, profileID, labelName string) *models.ProviderFolder {
	t.Helper()

	for _, folder := range e.activeFolders(t, profileID) {
		if strings.EqualFold(folder.LabelName, labelName) {
			f := folder
			return &f
		}
	}
	return nil
}

func resultPaths(results []NodeResult) []string {
	paths := make([]string, 0, len(results))
	for _, result := range results {
		paths = append(paths, result.Path)
	}
	return paths
}
