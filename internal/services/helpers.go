package services

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/inboxpilot/folderengine/pkg/errors"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// isProviderAuth matches the auth failure class across wrapped copies, which
// errors.Is cannot do for value-copied AppErrors.
func isProviderAuth(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Code == apperrors.ErrProviderAuth.Code
}

func lastPathSegment(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func firstPathSegment(name string) string {
	if idx := strings.Index(name, "/"); idx >= 0 {
		return name[:idx]
	}
	return name
}
