package handlers

import (
	"net/http"
	"time"

	"nexusgate/internal/config"
	mw "nexusgate/internal/middleware"
	"nexusgate/internal/services"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	cfg         *config.Config
	sessions    *services.SessionService
	provisioner *services.Provisioner
	admin       *services.AdminService
	dir         *services.DirectoryService
	bench       services.Bench
}

func NewHandler(cfg *config.Config, sessions *services.SessionService, provisioner *services.Provisioner, admin *services.AdminService, dir *services.DirectoryService, bench services.Bench) *Handler {
	return &Handler{
		cfg:         cfg,
		sessions:    sessions,
		provisioner: provisioner,
		admin:       admin,
		dir:         dir,
		bench:       bench,
	}
}

func RegisterRoutes(e *echo.Echo, h *Handler) {
	secure := h.cfg.IsProduction()
	cookieDomain := h.cookieDomain()

	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.POST("/signup", h.Signup)
	api.GET("/check-subdomain/:subdomain", h.CheckSubdomain)
	api.GET("/me", h.Me, mw.SessionGuard(secure, cookieDomain))

	admin := api.Group("/admin", mw.OperatorOnly())
	admin.GET("/tenants", h.ListTenants)
	admin.GET("/tenants/:subdomain", h.GetTenant)
	admin.DELETE("/tenants/:subdomain", h.DeleteTenant)
	admin.POST("/tenants/:subdomain/restart", h.RestartTenant)
	admin.POST("/tenants/:subdomain/suspend", h.SuspendTenant)
	admin.POST("/tenants/:subdomain/reactivate", h.ReactivateTenant)
	admin.POST("/tenants/:subdomain/usage", h.RefreshUsage)
}

// cookieDomain returns ".{root_domain}" in production so one login follows
// the user across tenant subdomains; host-only cookies locally.
func (h *Handler) cookieDomain() string {
	if h.cfg.IsProduction() {
		return "." + h.cfg.RootDomain
	}
	return ""
}

func (h *Handler) Health(c echo.Context) error {
	status := "healthy"

	sqlDB, err := dbHandle()
	if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status = "degraded"
	}

	ctx, cancel := contextWithTimeout(c, 5*time.Second)
	defer cancel()
	if _, err := h.bench.SiteExists(ctx, h.cfg.MasterSite); err != nil {
		status = "degraded"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]string{
		"status":      status,
		"master_site": h.cfg.MasterSite,
		"root_domain": h.cfg.RootDomain,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
