package mailprovider

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// HierarchicalAdapter speaks the Outlook-style folder API: true parent/child
// identifiers, GUID-like tokens, duplicate names rejected per parent with an
// ErrorFolderExists code that maps onto the conflict contract.
type HierarchicalAdapter struct {
	provider string
	baseURL  string
	client   *http.Client
	retry    RetryPolicy
}

// NewHierarchicalAdapter builds a hierarchical folder adapter bound to one
// mailbox.
func NewHierarchicalAdapter(provider string, cfg Config) (*HierarchicalAdapter, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("mailprovider: hierarchical adapter requires a base URL")
	}

	return &HierarchicalAdapter{
		provider: provider,
		baseURL:  baseURL,
		client:   cfg.client(),
		retry:    cfg.Retry.normalised(),
	}, nil
}

// Provider returns the registry identifier of this adapter.
func (a *HierarchicalAdapter) Provider() string {
	return a.provider
}

type mailFolderPayload struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	ParentFolderID string `json:"parentFolderId,omitempty"`
}

type mailFolderPage struct {
	Value    []mailFolderPayload `json:"value"`
	NextLink string              `json:"@odata.nextLink"`
}

// Create ensures a child folder with the given display name exists under
// parent (nil parent means top level). A duplicate-name rejection is mapped
// onto Conflict=true with an empty ID; the caller resolves the canonical id
// by name.
func (a *HierarchicalAdapter) Create(ctx context.Context, name string, parent *FolderRef) (CreateResult, error) {
	url := a.baseURL + "/mailFolders"
	if parent != nil && parent.ID != "" {
		url = a.baseURL + "/mailFolders/" + parent.ID + "/childFolders"
	}

	var created mailFolderPayload
	err := withRetry(ctx, a.provider, "create", a.retry, func() error {
		created = mailFolderPayload{}
		return doJSON(ctx, a.client, a.provider, "create", http.MethodPost, url, map[string]string{"displayName": name}, &created)
	})
	if err == nil {
		return CreateResult{ID: created.ID}, nil
	}
	if isConflict(err) {
		return CreateResult{Conflict: true}, nil
	}
	return CreateResult{}, err
}

// List walks the paged folder listing and returns every folder with its
// parent identifier preserved.
func (a *HierarchicalAdapter) List(ctx context.Context) ([]RemoteFolder, error) {
	var folders []RemoteFolder

	err := withRetry(ctx, a.provider, "list", a.retry, func() error {
		folders = folders[:0]

		url := a.baseURL + "/mailFolders"
		for url != "" {
			var page mailFolderPage
			if err := doJSON(ctx, a.client, a.provider, "list", http.MethodGet, url, nil, &page); err != nil {
				return err
			}
			for _, folder := range page.Value {
				folders = append(folders, RemoteFolder{
					ID:       folder.ID,
					Name:     folder.DisplayName,
					ParentID: folder.ParentFolderID,
				})
			}
			url = page.NextLink
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// ResolveByName finds the identifier of the folder with the given display
// name under parent.
func (a *HierarchicalAdapter) ResolveByName(ctx context.Context, name string, parent *FolderRef) (string, error) {
	folders, err := a.List(ctx)
	if err != nil {
		return "", err
	}

	parentID := ""
	if parent != nil {
		parentID = parent.ID
	}

	for _, folder := range folders {
		if folder.ParentID == parentID && strings.EqualFold(folder.Name, name) {
			return folder.ID, nil
		}
	}
	return "", ErrFolderNotFound
}
