package mailprovider

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// FlatLabelAdapter speaks the Gmail-style label API: a flat namespace where a
// "/" in the label name is a display convention, not a parent/child link.
// Identifiers are short opaque tokens.
type FlatLabelAdapter struct {
	provider string
	baseURL  string
	client   *http.Client
	retry    RetryPolicy
}

// NewFlatLabelAdapter builds a flat-label adapter bound to one mailbox.
func NewFlatLabelAdapter(provider string, cfg Config) (*FlatLabelAdapter, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("mailprovider: flat-label adapter requires a base URL")
	}

	return &FlatLabelAdapter{
		provider: provider,
		baseURL:  baseURL,
		client:   cfg.client(),
		retry:    cfg.Retry.normalised(),
	}, nil
}

// Provider returns the registry identifier of this adapter.
func (a *FlatLabelAdapter) Provider() string {
	return a.provider
}

type labelPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type labelListPayload struct {
	Labels []labelPayload `json:"labels"`
}

// Create ensures a label exists for the logical path of name under parent.
// An existing label is a success: the provider's 409 maps onto Conflict=true
// and the existing identifier is looked up so the caller never fabricates one.
func (a *FlatLabelAdapter) Create(ctx context.Context, name string, parent *FolderRef) (CreateResult, error) {
	path := labelPath(name, parent)

	var created labelPayload
	err := withRetry(ctx, a.provider, "create", a.retry, func() error {
		created = labelPayload{}
		return doJSON(ctx, a.client, a.provider, "create", http.MethodPost, a.baseURL+"/labels", map[string]string{"name": path}, &created)
	})
	if err == nil {
		return CreateResult{ID: created.ID}, nil
	}
	if !isConflict(err) {
		return CreateResult{}, err
	}

	id, resolveErr := a.resolvePath(ctx, path)
	if resolveErr != nil {
		return CreateResult{}, resolveErr
	}
	return CreateResult{ID: id, Conflict: true}, nil
}

// List returns every label in the mailbox. ParentID is always empty; the
// namespace is flat.
func (a *FlatLabelAdapter) List(ctx context.Context) ([]RemoteFolder, error) {
	var payload labelListPayload
	err := withRetry(ctx, a.provider, "list", a.retry, func() error {
		payload = labelListPayload{}
		return doJSON(ctx, a.client, a.provider, "list", http.MethodGet, a.baseURL+"/labels", nil, &payload)
	})
	if err != nil {
		return nil, err
	}

	folders := make([]RemoteFolder, 0, len(payload.Labels))
	for _, label := range payload.Labels {
		folders = append(folders, RemoteFolder{
			ID:    label.ID,
			Name:  label.Name,
			Color: label.Color,
		})
	}
	return folders, nil
}

// ResolveByName finds the identifier of the label whose full path matches
// name under parent.
func (a *FlatLabelAdapter) ResolveByName(ctx context.Context, name string, parent *FolderRef) (string, error) {
	return a.resolvePath(ctx, labelPath(name, parent))
}

func (a *FlatLabelAdapter) resolvePath(ctx context.Context, path string) (string, error) {
	labels, err := a.List(ctx)
	if err != nil {
		return "", err
	}

	for _, label := range labels {
		if strings.EqualFold(label.Name, path) {
			return label.ID, nil
		}
	}
	return "", ErrFolderNotFound
}

func labelPath(name string, parent *FolderRef) string {
	if parent != nil && parent.Path != "" {
		return parent.Path + "/" + name
	}
	return name
}
