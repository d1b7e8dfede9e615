package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inboxpilot/folderengine/internal/mailprovider"
	"github.com/inboxpilot/folderengine/internal/models"
	apperrors "github.com/inboxpilot/folderengine/pkg/errors"
	"github.com/inboxpilot/folderengine/pkg/logger"
	"github.com/inboxpilot/folderengine/pkg/metrics"
)

// ReconcileSummary reports what a reconciliation pass observed and changed.
type ReconcileSummary struct {
	Observed    int `json:"observed"`
	Discovered  int `json:"discovered"`
	Updated     int `json:"updated"`
	SoftDeleted int `json:"soft_deleted"`
}

// ReconcileService refreshes the local folder record from observed remote
// state. The local record is a cache with explicit staleness marking, never
// authoritative; this service is the only writer allowed to mark staleness.
type ReconcileService struct {
	db       *gorm.DB
	adapters AdapterSource
	profiles *ProfileService
	log      *zap.Logger
}

// NewReconcileService constructs a reconciliation service.
func NewReconcileService(db *gorm.DB, adapters AdapterSource, profiles *ProfileService) (*ReconcileService, error) {
	if db == nil {
		return nil, errors.New("reconcile service: db is required")
	}
	if adapters == nil {
		return nil, errors.New("reconcile service: adapter source is required")
	}
	if profiles == nil {
		return nil, errors.New("reconcile service: profile service is required")
	}

	return &ReconcileService{
		db:       db,
		adapters: adapters,
		profiles: profiles,
		log:      logger.WithModule("reconcile"),
	}, nil
}

// Reconcile lists the provider's actual folders and converges the local
// record: every remote folder gets an upserted record (including folders this
// system never created), and every known, non-deleted record missing remotely
// is soft-deleted.
func (s *ReconcileService) Reconcile(ctx context.Context, tenantID string) (*ReconcileSummary, error) {
	ctx = ensureContext(ctx)

	profile, err := s.profiles.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	adapter, err := s.adapters.ForProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	remote, err := adapter.List(ctx)
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		if mailprovider.IsAuth(err) {
			return nil, apperrors.ErrProviderAuth.WithInternal(err)
		}
		return nil, fmt.Errorf("reconcile: list remote folders: %w", err)
	}

	var known []models.ProviderFolder
	err = s.db.WithContext(ctx).
		Where("business_profile_id = ? AND provider = ?", profile.ID, profile.Provider).
		Find(&known).Error
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("reconcile: load known folders: %w", err)
	}

	knownByID := make(map[string]models.ProviderFolder, len(known))
	for _, folder := range known {
		knownByID[folder.LabelID] = folder
	}

	summary := &ReconcileSummary{Observed: len(remote)}
	now := time.Now().UTC()
	paths := remotePaths(remote)

	var upsertErrs error
	remoteIDs := make([]string, 0, len(remote))
	for _, folder := range remote {
		remoteIDs = append(remoteIDs, folder.ID)
		path := paths[folder.ID]

		record := &models.ProviderFolder{
			LabelID:           folder.ID,
			Provider:          profile.Provider,
			BusinessProfileID: profile.ID,
			LabelName:         path,
			Color:             folder.Color,
			SyncedAt:          now,
			IsDeleted:         false,
		}
		if err := upsertProviderFolder(ctx, s.db, record); err != nil {
			upsertErrs = multierr.Append(upsertErrs, err)
			continue
		}

		// Updated counts state transitions only: a revived, renamed, moved or
		// recolored record. Records already matching the remote observation
		// are refreshed silently.
		if prior, ok := knownByID[folder.ID]; ok {
			if prior.IsDeleted || prior.LabelName != path || prior.Color != folder.Color {
				summary.Updated++
			}
		} else {
			summary.Discovered++
		}
	}

	query := s.db.WithContext(ctx).
		Model(&models.ProviderFolder{}).
		Where("business_profile_id = ? AND provider = ? AND is_deleted = ?", profile.ID, profile.Provider, false)
	if len(remoteIDs) > 0 {
		query = query.Where("label_id NOT IN ?", remoteIDs)
	}
	res := query.Updates(map[string]any{"is_deleted": true, "updated_at": now})
	if res.Error != nil {
		upsertErrs = multierr.Append(upsertErrs, fmt.Errorf("reconcile: soft-delete vanished folders: %w", res.Error))
	} else {
		summary.SoftDeleted = int(res.RowsAffected)
	}

	if upsertErrs != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return summary, upsertErrs
	}

	metrics.ReconcileRuns.WithLabelValues("ok").Inc()
	logger.WithTenant("reconcile", profile.TenantID).Info("reconcile pass finished",
		zap.Int("observed", summary.Observed),
		zap.Int("discovered", summary.Discovered),
		zap.Int("updated", summary.Updated),
		zap.Int("soft_deleted", summary.SoftDeleted))

	return summary, nil
}

// remotePaths resolves each remote folder to its full display path. Flat
// providers encode the hierarchy in the name already; hierarchical providers
// report bare names with a parent pointer, which is followed up to the root.
func remotePaths(remote []mailprovider.RemoteFolder) map[string]string {
	byID := make(map[string]mailprovider.RemoteFolder, len(remote))
	for _, folder := range remote {
		byID[folder.ID] = folder
	}

	paths := make(map[string]string, len(remote))
	var resolve func(id string, seen map[string]bool) string
	resolve = func(id string, seen map[string]bool) string {
		if path, ok := paths[id]; ok {
			return path
		}

		folder := byID[id]
		path := folder.Name
		// An unknown or cyclic parent chain falls back to the bare name.
		if parent, ok := byID[folder.ParentID]; ok && !seen[folder.ParentID] {
			seen[id] = true
			path = resolve(parent.ID, seen) + "/" + folder.Name
		}

		paths[id] = path
		return path
	}

	for _, folder := range remote {
		resolve(folder.ID, map[string]bool{folder.ID: true})
	}
	return paths
}

// ReconcileAll runs a pass for every profile, used by the background
// scheduler. Per-tenant failures are aggregated, never short-circuiting the
// remaining tenants.
func (s *ReconcileService) ReconcileAll(ctx context.Context) error {
	ctx = ensureContext(ctx)

	var profiles []models.BusinessProfile
	if err := s.db.WithContext(ctx).Find(&profiles).Error; err != nil {
		return fmt.Errorf("reconcile: list profiles: %w", err)
	}

	var errs error
	for _, profile := range profiles {
		if _, err := s.Reconcile(ctx, profile.TenantID); err != nil {
			s.log.Warn("tenant reconcile failed",
				zap.String("tenant_id", profile.TenantID), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("tenant %s: %w", profile.TenantID, err))
		}
	}
	return errs
}
