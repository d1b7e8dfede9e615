package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/inboxpilot/folderengine/internal/models"
	"github.com/inboxpilot/folderengine/internal/schema"
	apperrors "github.com/inboxpilot/folderengine/pkg/errors"
)

// healthyCoverageThreshold is the coverage percentage at or above which the
// folder setup is considered healthy.
const healthyCoverageThreshold = 90.0

// CoverageReport summarises how much of the tenant's folder set the
// downstream classifier can route into. Advisory only; drives a UI warning
// and never mutates state.
type CoverageReport struct {
	TotalFolders          int      `json:"total_folders"`
	ClassifiableFolders   int      `json:"classifiable_folders"`
	UnclassifiableFolders []string `json:"unclassifiable_folders"`
	CoveragePercentage    float64  `json:"coverage_percentage"`
	IsHealthy             bool     `json:"is_healthy"`
}

// HealthReport is the combined health surface exposed to the onboarding UI.
type HealthReport struct {
	FolderHealthPercentage float64         `json:"folder_health_percentage"`
	ClassifierCoverage     *CoverageReport `json:"classifier_coverage"`
}

// CoverageService computes the Expected Category Set from current
// team/supplier data and flags locally-recorded folders outside it.
type CoverageService struct {
	db       *gorm.DB
	profiles *ProfileService
}

// NewCoverageService constructs a coverage validator.
func NewCoverageService(db *gorm.DB, profiles *ProfileService) (*CoverageService, error) {
	if db == nil {
		return nil, errors.New("coverage service: db is required")
	}
	if profiles == nil {
		return nil, errors.New("coverage service: profile service is required")
	}
	return &CoverageService{db: db, profiles: profiles}, nil
}

// CheckCoverage validates every non-deleted folder record against the
// Expected Category Set recomputed from current team and supplier names.
func (s *CoverageService) CheckCoverage(ctx context.Context, tenantID string) (*CoverageReport, error) {
	ctx = ensureContext(ctx)

	profile, err := s.profiles.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	expected, err := schema.ExpectedCategories(ResolverInput(profile, true))
	if err != nil {
		return nil, apperrors.ErrSchemaInvalid.WithInternal(err)
	}

	folders, err := loadActiveFolders(ctx, s.db, profile.ID)
	if err != nil {
		return nil, err
	}

	report := &CoverageReport{TotalFolders: len(folders)}
	for _, folder := range folders {
		if expected.Contains(folder.LabelName) || expected.Contains(lastPathSegment(folder.LabelName)) {
			report.ClassifiableFolders++
			continue
		}
		report.UnclassifiableFolders = append(report.UnclassifiableFolders, folder.LabelName)
	}

	if report.TotalFolders > 0 {
		report.CoveragePercentage = float64(report.ClassifiableFolders) / float64(report.TotalFolders) * 100
	}
	report.IsHealthy = report.TotalFolders > 0 && report.CoveragePercentage >= healthyCoverageThreshold

	return report, nil
}

// CheckHealth combines classifier coverage with the folder-health ratio of
// active records against everything ever recorded for the tenant.
func (s *CoverageService) CheckHealth(ctx context.Context, tenantID string) (*HealthReport, error) {
	ctx = ensureContext(ctx)

	coverage, err := s.CheckCoverage(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var total int64
	err = s.db.WithContext(ctx).
		Model(&models.ProviderFolder{}).
		Where("business_profile_id = ?", profile.ID).
		Count(&total).Error
	if err != nil {
		return nil, err
	}

	report := &HealthReport{ClassifierCoverage: coverage}
	if total > 0 {
		report.FolderHealthPercentage = float64(coverage.TotalFolders) / float64(total) * 100
	}
	return report, nil
}
