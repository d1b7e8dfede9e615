package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inboxpilot/folderengine/internal/services"
	"github.com/inboxpilot/folderengine/pkg/response"
)

// RoutingHandler exposes the routing table consumed by the workflow engine.
type RoutingHandler struct {
	service *services.RoutingService
}

func NewRoutingHandler(service *services.RoutingService) *RoutingHandler {
	return &RoutingHandler{service: service}
}

// GET /api/tenants/:tenantID/routing-table
func (h *RoutingHandler) Get(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	table, err := h.service.BuildRoutingTable(requestContext(c), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, table)
}
