package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/folderengine/internal/mailprovider"
	"github.com/inboxpilot/folderengine/internal/models"
)

func TestCoverageFullyProvisionedTenantIsHealthy(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "hot-tub-spa")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	report, err := env.coverage.CheckCoverage(context.Background(), "tenant-1")
	require.NoError(t, err)

	require.Equal(t, 12, report.TotalFolders)
	require.Equal(t, 12, report.ClassifiableFolders)
	require.Empty(t, report.UnclassifiableFolders)
	require.InDelta(t, 100.0, report.CoveragePercentage, 0.01)
	require.True(t, report.IsHealthy)
}

func TestCoverageFlagsForeignFolders(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "hot-tub-spa")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	env.adapter.seed("Holiday Photos", nil)
	env.adapter.seed("Old Stuff", nil)
	_, err = env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)

	report, err := env.coverage.CheckCoverage(context.Background(), "tenant-1")
	require.NoError(t, err)

	require.Equal(t, 14, report.TotalFolders)
	require.Equal(t, 12, report.ClassifiableFolders)
	require.ElementsMatch(t, []string{"Holiday Photos", "Old Stuff"}, report.UnclassifiableFolders)
	require.InDelta(t, 85.71, report.CoveragePercentage, 0.01)
	require.False(t, report.IsHealthy)
}

func TestCoverageCountsAliasNamedFolders(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "general")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	// A folder named with a known alias still counts as classifiable.
	env.adapter.seed("Promotions", nil)
	_, err = env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)

	report, err := env.coverage.CheckCoverage(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, report.TotalFolders, report.ClassifiableFolders)
	require.True(t, report.IsHealthy)
}

func TestCoverageImprovesAfterTeamInjection(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	profile := env.createProfile(t, "tenant-1", "google", "general")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	// A folder for a team member the profile does not know about yet.
	record := &models.ProviderFolder{
		LabelID:           "Label_hailey",
		Provider:          "google",
		BusinessProfileID: profile.ID,
		LabelName:         "MANAGER/Hailey",
		SyncedAt:          time.Now().UTC(),
	}
	require.NoError(t, upsertProviderFolder(context.Background(), env.db, record))

	before, err := env.coverage.CheckCoverage(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Contains(t, before.UnclassifiableFolders, "MANAGER/Hailey")

	require.NoError(t, env.profiles.ReplaceTeam(context.Background(), "tenant-1", []TeamMemberInput{{Name: "Hailey"}}))

	after, err := env.coverage.CheckCoverage(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.NotContains(t, after.UnclassifiableFolders, "MANAGER/Hailey")
	require.Greater(t, after.CoveragePercentage, before.CoveragePercentage)
}

func TestCoverageEmptyTenantIsUnhealthy(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "general")

	report, err := env.coverage.CheckCoverage(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Zero(t, report.TotalFolders)
	require.Zero(t, report.CoveragePercentage)
	require.False(t, report.IsHealthy)
}

func TestCheckHealthAccountsForSoftDeletedFolders(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	profile := env.createProfile(t, "tenant-1", "google", "general")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	victim := env.folderByName(t, profile.ID, "PROMO")
	env.adapter.remove(victim.LabelID)
	_, err = env.reconciler.Reconcile(context.Background(), "tenant-1")
	require.NoError(t, err)

	health, err := env.coverage.CheckHealth(context.Background(), "tenant-1")
	require.NoError(t, err)

	// 6 of 7 ever-recorded folders are still live.
	require.InDelta(t, float64(6)/float64(7)*100, health.FolderHealthPercentage, 0.01)
	require.NotNil(t, health.ClassifierCoverage)
	require.Equal(t, 6, health.ClassifierCoverage.TotalFolders)
}

func TestCoverageThresholdBoundary(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	profile := env.createProfile(t, "tenant-1", "google", "hot-tub-spa")

	_, err := env.provisioner.ProvisionSkeleton(context.Background(), "tenant-1")
	require.NoError(t, err)

	// 12 classifiable plus 1 foreign folder sits at 92.3%, above the line.
	record := &models.ProviderFolder{
		LabelID:           "Label_junk1",
		Provider:          "google",
		BusinessProfileID: profile.ID,
		LabelName:         "Scratch",
		SyncedAt:          time.Now().UTC(),
	}
	require.NoError(t, upsertProviderFolder(context.Background(), env.db, record))

	report, err := env.coverage.CheckCoverage(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.True(t, report.IsHealthy, fmt.Sprintf("coverage %.2f", report.CoveragePercentage))

	// A second foreign folder drops it to 85.7%, below the line.
	record2 := &models.ProviderFolder{
		LabelID:           "Label_junk2",
		Provider:          "google",
		BusinessProfileID: profile.ID,
		LabelName:         "Scratch Two",
		SyncedAt:          time.Now().UTC(),
	}
	require.NoError(t, upsertProviderFolder(context.Background(), env.db, record2))

	report, err = env.coverage.CheckCoverage(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.False(t, report.IsHealthy)
}
