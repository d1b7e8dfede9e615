package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inboxpilot/folderengine/internal/mailprovider"
	apperrors "github.com/inboxpilot/folderengine/pkg/errors"
)

func TestProfileCreateNormalisesInput(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)

	profile, err := env.profiles.Create(context.Background(), CreateProfileInput{
		TenantID:      " tenant-1 ",
		Provider:      "Google",
		EmailAddress:  "owner@example.com",
		BusinessTypes: []string{"Hot tub & Spa"},
	})
	require.NoError(t, err)
	require.Equal(t, "tenant-1", profile.TenantID)
	require.Equal(t, "google", profile.Provider)
	require.Equal(t, []string{"hot-tub-spa"}, profile.BusinessTypeSlugs())
}

func TestProfileCreateRejectsUnknownProvider(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)

	_, err := env.profiles.Create(context.Background(), CreateProfileInput{
		TenantID:      "tenant-1",
		Provider:      "yahoo",
		BusinessTypes: []string{"general"},
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
}

func TestProfileCreateRejectsUnknownBusinessType(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)

	_, err := env.profiles.Create(context.Background(), CreateProfileInput{
		TenantID:      "tenant-1",
		Provider:      "google",
		BusinessTypes: []string{"bowling-alley"},
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrSchemaInvalid.Code, appErr.Code)
}

func TestProfileCreateRejectsDuplicateTenant(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "general")

	_, err := env.profiles.Create(context.Background(), CreateProfileInput{
		TenantID:      "tenant-1",
		Provider:      "google",
		BusinessTypes: []string{"general"},
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "PROFILE_EXISTS", appErr.Code)
	require.Equal(t, 409, appErr.StatusCode)
}

func TestProfileReplaceTeamAndSuppliersRoundTrip(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "general")

	require.NoError(t, env.profiles.ReplaceTeam(context.Background(), "tenant-1", []TeamMemberInput{
		{Name: "Hailey", Role: "manager", Email: "hailey@example.com"},
		{Name: " "},
		{Name: "Jillian"},
	}))
	require.NoError(t, env.profiles.ReplaceSuppliers(context.Background(), "tenant-1", []SupplierInput{
		{Name: "AquaParts", Domains: []string{"aquaparts.example.com"}},
	}))

	profile, err := env.profiles.GetByTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, profile.TeamMembers, 2)
	require.Len(t, profile.Suppliers, 1)

	input := ResolverInput(profile, true)
	require.ElementsMatch(t, []string{"Hailey", "Jillian"}, input.TeamMembers)
	require.Equal(t, []string{"AquaParts"}, input.Suppliers)

	// Replacement is a swap, not a merge.
	require.NoError(t, env.profiles.ReplaceTeam(context.Background(), "tenant-1", []TeamMemberInput{
		{Name: "Sam"},
	}))
	profile, err = env.profiles.GetByTenant(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, profile.TeamMembers, 1)
	require.Equal(t, "Sam", profile.TeamMembers[0].Name)
}

func TestProfileResolverInputExcludesDynamicWhenAsked(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "general")

	require.NoError(t, env.profiles.ReplaceTeam(context.Background(), "tenant-1", []TeamMemberInput{{Name: "Hailey"}}))

	profile, err := env.profiles.GetByTenant(context.Background(), "tenant-1")
	require.NoError(t, err)

	input := ResolverInput(profile, false)
	require.Empty(t, input.TeamMembers)
	require.Empty(t, input.Suppliers)
	require.Equal(t, []string{"general"}, input.BusinessTypes)
}

func TestProfileStoreCredentialEncryptsAtRest(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	profile := env.createProfile(t, "tenant-1", "google", "general")

	expiry := time.Now().Add(time.Hour).UTC()
	require.NoError(t, env.profiles.StoreCredential(context.Background(), "tenant-1", "ya29.secret-token", expiry))

	var stored struct {
		AccessToken string
	}
	err := env.db.Table("provider_credentials").
		Select("access_token").
		Where("business_profile_id = ?", profile.ID).
		Scan(&stored).Error
	require.NoError(t, err)
	require.NotEmpty(t, stored.AccessToken)
	require.NotContains(t, stored.AccessToken, "ya29.secret-token")

	// Storing again replaces in place instead of inserting a second row.
	require.NoError(t, env.profiles.StoreCredential(context.Background(), "tenant-1", "ya29.rotated", expiry.Add(time.Hour)))

	var count int64
	require.NoError(t, env.db.Table("provider_credentials").Where("business_profile_id = ?", profile.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestProfileStoreCredentialValidation(t *testing.T) {
	env := newTestEnv(t, mailprovider.ProviderGoogle, false)
	env.createProfile(t, "tenant-1", "google", "general")

	require.Error(t, env.profiles.StoreCredential(context.Background(), "tenant-1", "   ", time.Now()))
	require.ErrorIs(t, env.profiles.StoreCredential(context.Background(), "ghost", "token", time.Now()), apperrors.ErrTenantNotFound)
}
