package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/inboxpilot/folderengine/internal/mailprovider"
	"github.com/inboxpilot/folderengine/internal/models"
	"github.com/inboxpilot/folderengine/internal/schema"
	apperrors "github.com/inboxpilot/folderengine/pkg/errors"
	"github.com/inboxpilot/folderengine/pkg/logger"
	"github.com/inboxpilot/folderengine/pkg/metrics"
)

// defaultWorkers bounds concurrent remote calls per orchestrator run.
// Independent top-level branches run in parallel; within a branch, parents are
// always created before children.
const defaultWorkers = 4

// NodeResult records the outcome for one folder node of a run.
type NodeResult struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	LabelID string `json:"label_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ProvisionReport is the partial-success report of an orchestrator run. A run
// with failures still completes; re-running is always safe because every
// operation is create-or-resolve.
type ProvisionReport struct {
	Created        []NodeResult `json:"created"`
	AlreadyExisted []NodeResult `json:"already_existed"`
	Failed         []NodeResult `json:"failed"`
}

// Total returns the number of nodes the run attempted.
func (r *ProvisionReport) Total() int {
	return len(r.Created) + len(r.AlreadyExisted) + len(r.Failed)
}

// PartialFailure reports whether any node failed after retries.
func (r *ProvisionReport) PartialFailure() bool {
	return len(r.Failed) > 0
}

func (r *ProvisionReport) sortResults() {
	byPath := func(results []NodeResult) func(i, j int) bool {
		return func(i, j int) bool { return results[i].Path < results[j].Path }
	}
	sort.Slice(r.Created, byPath(r.Created))
	sort.Slice(r.AlreadyExisted, byPath(r.AlreadyExisted))
	sort.Slice(r.Failed, byPath(r.Failed))
}

// ProvisioningService walks the canonical folder tree and ensures every node
// exists remotely, in two phases: the core skeleton on business-type
// selection, then dynamic team/supplier injection.
type ProvisioningService struct {
	db         *gorm.DB
	adapters   AdapterSource
	profiles   *ProfileService
	reconciler *ReconcileService
	workers    int
	log        *zap.Logger
}

// NewProvisioningService constructs the orchestrator.
func NewProvisioningService(db *gorm.DB, adapters AdapterSource, profiles *ProfileService, reconciler *ReconcileService) (*ProvisioningService, error) {
	if db == nil {
		return nil, errors.New("provisioning service: db is required")
	}
	if adapters == nil {
		return nil, errors.New("provisioning service: adapter source is required")
	}
	if profiles == nil {
		return nil, errors.New("provisioning service: profile service is required")
	}

	return &ProvisioningService{
		db:         db,
		adapters:   adapters,
		profiles:   profiles,
		reconciler: reconciler,
		workers:    defaultWorkers,
		log:        logger.WithModule("provisioning"),
	}, nil
}

// ProvisionSkeleton runs Phase A: the business-type tree with no team or
// supplier members, dynamic nodes limited to the always-present Unassigned.
func (s *ProvisioningService) ProvisionSkeleton(ctx context.Context, tenantID string) (*ProvisionReport, error) {
	ctx = ensureContext(ctx)

	profile, err := s.profiles.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tree, err := schema.Resolve(ResolverInput(profile, false))
	if err != nil {
		return nil, apperrors.ErrSchemaInvalid.WithInternal(err)
	}

	return s.run(ctx, profile, tree, nil)
}

// InjectTeamFolders runs Phase B: re-resolves the tree with current team and
// supplier data and creates only the nodes not already recorded. Existing
// nodes are left untouched.
func (s *ProvisioningService) InjectTeamFolders(ctx context.Context, tenantID string) (*ProvisionReport, error) {
	ctx = ensureContext(ctx)

	profile, err := s.profiles.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tree, err := schema.Resolve(ResolverInput(profile, true))
	if err != nil {
		return nil, apperrors.ErrSchemaInvalid.WithInternal(err)
	}

	existing, err := loadActiveFolders(ctx, s.db, profile.ID)
	if err != nil {
		return nil, err
	}

	// Records carry full display paths, so a dynamic node is matched only
	// against the folder at its exact position. A supplier that shares a name
	// with an unrelated folder elsewhere in the tree still gets created.
	known := make(map[string]string, len(existing))
	for _, folder := range existing {
		known[strings.ToLower(folder.LabelName)] = folder.LabelID
	}

	skip := func(node *schema.FolderSpec) (string, bool) {
		id, ok := known[strings.ToLower(node.Path())]
		return id, ok
	}

	return s.run(ctx, profile, tree, skip)
}

// run reconciles first so the local record reflects remote truth, then walks
// the tree. Reconciling up front makes the conflict-handling path deliberate
// rather than accidental when a folder already exists remotely.
func (s *ProvisioningService) run(ctx context.Context, profile *models.BusinessProfile, tree *schema.Tree, skip func(*schema.FolderSpec) (string, bool)) (*ProvisionReport, error) {
	adapter, err := s.adapters.ForProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	log := logger.WithTenant("provisioning", profile.TenantID)

	if s.reconciler != nil {
		if _, err := s.reconciler.Reconcile(ctx, profile.TenantID); err != nil {
			if isProviderAuth(err) {
				return nil, err
			}
			log.Warn("pre-provisioning reconcile failed", zap.Error(err))
		}
	}

	report := &ProvisionReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, root := range tree.Roots {
		root := root
		g.Go(func() error {
			return s.provisionBranch(gctx, adapter, profile, root, nil, skip, report, &mu)
		})
	}

	// Only auth failures bubble out of a branch; node failures are isolated
	// in the report.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.sortResults()
	metrics.ProvisionedNodes.WithLabelValues(profile.Provider, "created").Add(float64(len(report.Created)))
	metrics.ProvisionedNodes.WithLabelValues(profile.Provider, "already_existed").Add(float64(len(report.AlreadyExisted)))
	metrics.ProvisionedNodes.WithLabelValues(profile.Provider, "failed").Add(float64(len(report.Failed)))

	log.Info("provisioning run finished",
		zap.Int("created", len(report.Created)),
		zap.Int("already_existed", len(report.AlreadyExisted)),
		zap.Int("failed", len(report.Failed)))

	return report, nil
}

func (s *ProvisioningService) provisionBranch(ctx context.Context, adapter mailprovider.Adapter, profile *models.BusinessProfile, node *schema.FolderSpec, parentRef *mailprovider.FolderRef, skip func(*schema.FolderSpec) (string, bool), report *ProvisionReport, mu *sync.Mutex) error {
	result := NodeResult{Name: node.Name, Path: node.Path()}

	var ref *mailprovider.FolderRef

	if skip != nil {
		if id, ok := skip(node); ok {
			result.LabelID = id
			mu.Lock()
			report.AlreadyExisted = append(report.AlreadyExisted, result)
			mu.Unlock()
			ref = &mailprovider.FolderRef{ID: id, Path: node.Path()}
		}
	}

	if ref == nil {
		id, existed, err := s.ensureNode(ctx, adapter, node, parentRef)
		if err != nil {
			if mailprovider.IsAuth(err) {
				return apperrors.ErrProviderAuth.WithInternal(err)
			}
			result.Reason = err.Error()
			mu.Lock()
			report.Failed = append(report.Failed, result)
			mu.Unlock()
			markDescendantsFailed(node, report, mu)
			return nil
		}

		record := &models.ProviderFolder{
			LabelID:           id,
			Provider:          adapter.Provider(),
			BusinessProfileID: profile.ID,
			LabelName:         node.Path(),
			SyncedAt:          time.Now().UTC(),
			IsDeleted:         false,
		}
		if err := upsertProviderFolder(ctx, s.db, record); err != nil {
			s.log.Error("record upsert failed", zap.String("path", node.Path()), zap.Error(err))
		}

		result.LabelID = id
		mu.Lock()
		if existed {
			report.AlreadyExisted = append(report.AlreadyExisted, result)
		} else {
			report.Created = append(report.Created, result)
		}
		mu.Unlock()

		ref = &mailprovider.FolderRef{ID: id, Path: node.Path()}
	}

	for _, child := range node.Children {
		if err := s.provisionBranch(ctx, adapter, profile, child, ref, skip, report, mu); err != nil {
			return err
		}
	}
	return nil
}

// ensureNode is the create-or-resolve step for one node: attempt create, and
// on conflict resolve the canonical id by name. An id is never fabricated.
func (s *ProvisioningService) ensureNode(ctx context.Context, adapter mailprovider.Adapter, node *schema.FolderSpec, parentRef *mailprovider.FolderRef) (string, bool, error) {
	res, err := adapter.Create(ctx, node.Name, parentRef)
	if err != nil {
		return "", false, err
	}

	if !res.Conflict {
		return res.ID, false, nil
	}

	id := res.ID
	if id == "" {
		id, err = adapter.ResolveByName(ctx, node.Name, parentRef)
		if err != nil {
			return "", false, err
		}
	}

	s.log.Debug("folder already existed, resolved provider id",
		zap.String("path", node.Path()), zap.String("label_id", id))
	return id, true, nil
}

// markDescendantsFailed records every descendant of a failed node as failed,
// since children cannot be parented under a folder that was never created.
func markDescendantsFailed(node *schema.FolderSpec, report *ProvisionReport, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()

	var walk func(n *schema.FolderSpec)
	walk = func(n *schema.FolderSpec) {
		for _, child := range n.Children {
			report.Failed = append(report.Failed, NodeResult{
				Name:   child.Name,
				Path:   child.Path(),
				Reason: "parent folder creation failed",
			})
			walk(child)
		}
	}
	walk(node)
}
