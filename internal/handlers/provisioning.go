package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inboxpilot/folderengine/internal/services"
	"github.com/inboxpilot/folderengine/pkg/response"
)

// ProvisioningHandler exposes the provisioning, reconciliation and health
// endpoints for a tenant mailbox.
type ProvisioningHandler struct {
	provisioner *services.ProvisioningService
	reconciler  *services.ReconcileService
	coverage    *services.CoverageService
}

func NewProvisioningHandler(provisioner *services.ProvisioningService, reconciler *services.ReconcileService, coverage *services.CoverageService) *ProvisioningHandler {
	return &ProvisioningHandler{
		provisioner: provisioner,
		reconciler:  reconciler,
		coverage:    coverage,
	}
}

type provisionResponse struct {
	*services.ProvisionReport
	PartialFailure bool `json:"partial_failure"`
}

// POST /api/tenants/:tenantID/provision
func (h *ProvisioningHandler) Provision(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	report, err := h.provisioner.ProvisionSkeleton(requestContext(c), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, provisionResponse{
		ProvisionReport: report,
		PartialFailure:  report.PartialFailure(),
	})
}

// POST /api/tenants/:tenantID/team-folders
func (h *ProvisioningHandler) InjectTeamFolders(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	report, err := h.provisioner.InjectTeamFolders(requestContext(c), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, provisionResponse{
		ProvisionReport: report,
		PartialFailure:  report.PartialFailure(),
	})
}

// POST /api/tenants/:tenantID/reconcile
func (h *ProvisioningHandler) Reconcile(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	summary, err := h.reconciler.Reconcile(requestContext(c), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// GET /api/tenants/:tenantID/health
func (h *ProvisioningHandler) Health(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	report, err := h.coverage.CheckHealth(requestContext(c), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}
