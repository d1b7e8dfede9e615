package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inboxpilot/folderengine/internal/services"
	"github.com/inboxpilot/folderengine/pkg/response"
)

// ProfileHandler exposes business profile management endpoints.
type ProfileHandler struct {
	service *services.ProfileService
}

func NewProfileHandler(service *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type createProfileRequest struct {
	TenantID      string   `json:"tenant_id" validate:"required,max=128,slug"`
	Provider      string   `json:"provider" validate:"required"`
	EmailAddress  string   `json:"email_address" validate:"required,email"`
	BusinessTypes []string `json:"business_types" validate:"required,min=1,dive,required"`
}

type teamMemberRequest struct {
	Name  string `json:"name" validate:"required,max=128,foldername"`
	Role  string `json:"role" validate:"omitempty,max=64"`
	Email string `json:"email" validate:"omitempty,email"`
}

type replaceTeamRequest struct {
	Members []teamMemberRequest `json:"members" validate:"dive"`
}

type supplierRequest struct {
	Name    string   `json:"name" validate:"required,max=128,foldername"`
	Domains []string `json:"domains" validate:"omitempty,dive,hostname"`
}

type replaceSuppliersRequest struct {
	Suppliers []supplierRequest `json:"suppliers" validate:"dive"`
}

type storeCredentialRequest struct {
	AccessToken string    `json:"access_token" validate:"required"`
	ExpiresAt   time.Time `json:"expires_at" validate:"required"`
}

// POST /api/profiles
func (h *ProfileHandler) Create(c *gin.Context) {
	var body createProfileRequest
	if !bindAndValidate(c, &body) {
		return
	}

	profile, err := h.service.Create(requestContext(c), services.CreateProfileInput{
		TenantID:      strings.TrimSpace(body.TenantID),
		Provider:      body.Provider,
		EmailAddress:  strings.ToLower(strings.TrimSpace(body.EmailAddress)),
		BusinessTypes: body.BusinessTypes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, profile)
}

// GET /api/profiles/:tenantID
func (h *ProfileHandler) Get(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	profile, err := h.service.GetByTenant(requestContext(c), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// PUT /api/profiles/:tenantID/team
func (h *ProfileHandler) ReplaceTeam(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	var body replaceTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	members := make([]services.TeamMemberInput, 0, len(body.Members))
	for _, member := range body.Members {
		members = append(members, services.TeamMemberInput{
			Name:  strings.TrimSpace(member.Name),
			Role:  strings.TrimSpace(member.Role),
			Email: strings.ToLower(strings.TrimSpace(member.Email)),
		})
	}

	if err := h.service.ReplaceTeam(requestContext(c), tenantID, members); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"members": len(members)})
}

// PUT /api/profiles/:tenantID/suppliers
func (h *ProfileHandler) ReplaceSuppliers(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	var body replaceSuppliersRequest
	if !bindAndValidate(c, &body) {
		return
	}

	suppliers := make([]services.SupplierInput, 0, len(body.Suppliers))
	for _, supplier := range body.Suppliers {
		suppliers = append(suppliers, services.SupplierInput{
			Name:    strings.TrimSpace(supplier.Name),
			Domains: supplier.Domains,
		})
	}

	if err := h.service.ReplaceSuppliers(requestContext(c), tenantID, suppliers); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"suppliers": len(suppliers)})
}

// PUT /api/profiles/:tenantID/credential
func (h *ProfileHandler) StoreCredential(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	var body storeCredentialRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.service.StoreCredential(requestContext(c), tenantID, body.AccessToken, body.ExpiresAt); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stored": true})
}
