package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inboxpilot/folderengine/internal/app"
	iauth "github.com/inboxpilot/folderengine/internal/auth"
	"github.com/inboxpilot/folderengine/internal/handlers"
	"github.com/inboxpilot/folderengine/internal/middleware"
	"github.com/inboxpilot/folderengine/internal/services"
)

// Services bundles the wired service layer the router exposes.
type Services struct {
	Profiles    *services.ProfileService
	Provisioner *services.ProvisioningService
	Reconciler  *services.ReconcileService
	Coverage    *services.CoverageService
	Routing     *services.RoutingService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(cfg *app.Config, tokens *iauth.ServiceTokenService, svc Services) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if svc.Profiles == nil || svc.Provisioner == nil || svc.Reconciler == nil || svc.Coverage == nil || svc.Routing == nil {
		return nil, fmt.Errorf("all services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	profileHandler := handlers.NewProfileHandler(svc.Profiles)
	provisioningHandler := handlers.NewProvisioningHandler(svc.Provisioner, svc.Reconciler, svc.Coverage)
	routingHandler := handlers.NewRoutingHandler(svc.Routing)

	api := r.Group("/api")
	api.Use(middleware.Auth(tokens))

	profiles := api.Group("/profiles")
	{
		profiles.POST("", profileHandler.Create)
		profiles.GET("/:tenantID", profileHandler.Get)
		profiles.PUT("/:tenantID/team", profileHandler.ReplaceTeam)
		profiles.PUT("/:tenantID/suppliers", profileHandler.ReplaceSuppliers)
		profiles.PUT("/:tenantID/credential", profileHandler.StoreCredential)
	}

	tenants := api.Group("/tenants/:tenantID")
	{
		tenants.POST("/provision", provisioningHandler.Provision)
		tenants.POST("/team-folders", provisioningHandler.InjectTeamFolders)
		tenants.POST("/reconcile", provisioningHandler.Reconcile)
		tenants.GET("/health", provisioningHandler.Health)
		tenants.GET("/routing-table", routingHandler.Get)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
