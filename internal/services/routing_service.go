package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/inboxpilot/folderengine/internal/schema"
	apperrors "github.com/inboxpilot/folderengine/pkg/errors"
)

// RoutingTable maps normalized category keys to the provider folder
// identifiers under that top-level category. Consumed verbatim by the
// workflow engine; keys stay stable across reconciliation runs as long as
// folder names are unchanged.
type RoutingTable struct {
	Provider   string              `json:"provider"`
	Categories map[string][]string `json:"categories"`
}

// RoutingService projects the reconciled local record into the routing table.
type RoutingService struct {
	db       *gorm.DB
	profiles *ProfileService
}

// NewRoutingService constructs a routing table builder.
func NewRoutingService(db *gorm.DB, profiles *ProfileService) (*RoutingService, error) {
	if db == nil {
		return nil, errors.New("routing service: db is required")
	}
	if profiles == nil {
		return nil, errors.New("routing service: profile service is required")
	}
	return &RoutingService{db: db, profiles: profiles}, nil
}

// BuildRoutingTable derives the category → identifiers mapping from the
// non-deleted folder records. Category-container folders (spec nodes with
// children) are not routing destinations; their leaves are. A tenant with no
// folders gets ErrNotProvisioned, never a silently empty table.
func (s *RoutingService) BuildRoutingTable(ctx context.Context, tenantID string) (*RoutingTable, error) {
	ctx = ensureContext(ctx)

	profile, err := s.profiles.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	folders, err := loadActiveFolders(ctx, s.db, profile.ID)
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, apperrors.ErrNotProvisioned
	}

	tree, err := schema.Resolve(ResolverInput(profile, true))
	if err != nil {
		return nil, apperrors.ErrSchemaInvalid.WithInternal(err)
	}

	containers := make(map[string]struct{})
	topOf := make(map[string]string)
	tree.Walk(func(node *schema.FolderSpec) {
		key := schema.CanonicalCategory(node.Name)
		if len(node.Children) > 0 {
			containers[key] = struct{}{}
		}
		topOf[key] = schema.CanonicalCategory(node.Root().Name)
	})

	table := &RoutingTable{
		Provider:   profile.Provider,
		Categories: make(map[string][]string),
	}

	for _, folder := range folders {
		leaf := schema.CanonicalCategory(lastPathSegment(folder.LabelName))
		if _, isContainer := containers[leaf]; isContainer {
			continue
		}

		var top string
		if strings.Contains(folder.LabelName, "/") {
			top = schema.CanonicalCategory(firstPathSegment(folder.LabelName))
			if rootKey, ok := topOf[top]; !ok || rootKey != top {
				continue
			}
		} else if category, ok := topOf[leaf]; ok {
			top = category
		} else {
			// Outside the expected set; the coverage validator surfaces it.
			continue
		}

		table.Categories[top] = append(table.Categories[top], folder.LabelID)
	}

	for _, ids := range table.Categories {
		sort.Strings(ids)
	}

	if len(table.Categories) == 0 {
		return nil, apperrors.ErrNotProvisioned
	}

	return table, nil
}
