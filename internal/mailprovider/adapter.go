package mailprovider

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Provider identifiers understood by the registry.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
)

// FolderRef identifies an existing remote folder as a creation parent. Flat
// providers use Path (hierarchy is a display convention only), hierarchical
// providers use ID.
type FolderRef struct {
	ID   string
	Path string
}

// CreateResult reports the outcome of an idempotent create. Conflict means the
// name already existed remotely; that is a success, never an error. ID may be
// empty on conflict when the remote API does not echo the existing identifier,
// in which case the caller resolves it by name.
type CreateResult struct {
	ID       string
	Conflict bool
}

// RemoteFolder is one folder as reported by the provider's list operation.
type RemoteFolder struct {
	ID       string
	Name     string
	ParentID string
	Color    string
}

// Adapter normalises provider folder APIs into provider-agnostic operations.
// Implementations retry transient failures according to their configured
// policy and map "already exists" responses onto the CreateResult.Conflict
// contract. Every call honours the caller's context deadline.
type Adapter interface {
	// Provider returns the registry identifier of this adapter.
	Provider() string
	// Create ensures a folder with the given name exists under parent
	// (nil parent means top-level).
	Create(ctx context.Context, name string, parent *FolderRef) (CreateResult, error)
	// List returns every folder of the mailbox.
	List(ctx context.Context) ([]RemoteFolder, error)
	// ResolveByName finds the identifier of a folder by display name under
	// parent, returning ErrFolderNotFound when absent.
	ResolveByName(ctx context.Context, name string, parent *FolderRef) (string, error)
}

// Config bundles what a factory needs to build an adapter for one tenant. The
// bearer credential arrives as an oauth2.TokenSource supplied by the caller;
// adapters never refresh tokens themselves.
type Config struct {
	BaseURL     string
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
	Timeout     time.Duration
	Retry       RetryPolicy
}

func (cfg Config) client() *http.Client {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if cfg.TokenSource != nil {
		client = &http.Client{
			Transport: &oauth2.Transport{Source: cfg.TokenSource, Base: client.Transport},
			Timeout:   client.Timeout,
		}
	}
	if client.Timeout == 0 {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client.Timeout = timeout
	}
	return client
}
