package mailprovider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind tags expected provider failure modes so callers branch on kind
// instead of parsing payloads.
type ErrorKind string

const (
	// KindAuth covers expired or invalid credentials. Fatal for a whole run,
	// never retried.
	KindAuth ErrorKind = "auth"
	// KindTransient covers network failures, timeouts, rate limits and 5xx
	// responses. Retried per policy.
	KindTransient ErrorKind = "transient"
	// KindNotFound covers lookups for folders that do not exist remotely.
	KindNotFound ErrorKind = "not_found"
	// KindPermanent covers everything else; retrying will not help.
	KindPermanent ErrorKind = "permanent"
)

// ErrFolderNotFound is returned by ResolveByName when no folder matches.
var ErrFolderNotFound = errors.New("mailprovider: folder not found")

// ProviderError wraps a failed remote call with its classification. Code
// carries the remote API's machine-readable error code when one was present.
type ProviderError struct {
	Provider   string
	Operation  string
	Kind       ErrorKind
	StatusCode int
	Code       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Operation, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s (status %d)", e.Provider, e.Operation, e.Kind, e.StatusCode)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsAuth reports whether the error is a credential failure.
func IsAuth(err error) bool {
	return kindOf(err) == KindAuth
}

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	return kindOf(err) == KindTransient
}

func kindOf(err error) ErrorKind {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Kind
	}
	return ""
}

// classifyStatus maps an HTTP status onto the error taxonomy.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}

func statusError(provider, operation string, status int, code, message string) *ProviderError {
	perr := &ProviderError{
		Provider:   provider,
		Operation:  operation,
		Kind:       classifyStatus(status),
		StatusCode: status,
		Code:       code,
	}
	if message != "" {
		perr.Err = errors.New(message)
	}
	return perr
}

func transportError(provider, operation string, err error) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Kind:      KindTransient,
		Err:       err,
	}
}
