package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithInternalKeepsOriginalUntouched(t *testing.T) {
	cause := stderrors.New("token expired")
	wrapped := ErrProviderAuth.WithInternal(cause)

	require.Nil(t, ErrProviderAuth.Internal)
	require.Equal(t, ErrProviderAuth.Code, wrapped.Code)
	require.Equal(t, ErrProviderAuth.StatusCode, wrapped.StatusCode)
	require.ErrorIs(t, wrapped, cause)
	require.Contains(t, wrapped.Error(), "token expired")
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(fmt.Errorf("reconcile: %w", ErrTenantNotFound))
	require.Equal(t, "TENANT_NOT_FOUND", appErr.Code)
	require.Equal(t, http.StatusNotFound, appErr.StatusCode)

	generic := FromError(stderrors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.Contains(t, generic.Error(), "boom")
}

func TestDomainSentinelStatusCodes(t *testing.T) {
	require.Equal(t, http.StatusNotFound, ErrTenantNotFound.StatusCode)
	require.Equal(t, http.StatusUnauthorized, ErrProviderAuth.StatusCode)
	require.Equal(t, http.StatusConflict, ErrNotProvisioned.StatusCode)
	require.Equal(t, http.StatusUnprocessableEntity, ErrSchemaInvalid.StatusCode)
}

func TestWrapAndNew(t *testing.T) {
	cause := stderrors.New("disk full")
	wrapped := Wrap(cause, "persist folder record")
	require.Equal(t, "INTERNAL_ERROR", wrapped.Code)
	require.ErrorIs(t, wrapped, cause)

	custom := New("PROFILE_EXISTS", "duplicate", http.StatusConflict)
	require.Equal(t, http.StatusConflict, custom.StatusCode)

	bad := NewBadRequest("tenant id is required")
	require.Equal(t, ErrBadRequest.Code, bad.Code)
	require.Equal(t, "tenant id is required", bad.Message)
}
