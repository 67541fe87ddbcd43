package handlers

import (
	"errors"
	"net/http"

	"nexusgate/internal/services"

	"github.com/labstack/echo/v4"
)

func (h *Handler) ListTenants(c echo.Context) error {
	enrich := c.QueryParam("enrich") == "1"
	tenants, err := h.admin.ListTenants(c.Request().Context(), 100, enrich)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, tenants)
}

func (h *Handler) GetTenant(c echo.Context) error {
	overview, err := h.admin.Inspect(c.Request().Context(), c.Param("subdomain"))
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, overview)
}

func (h *Handler) DeleteTenant(c echo.Context) error {
	result, err := h.admin.Delete(c.Request().Context(), c.Param("subdomain"))
	if err != nil {
		if errors.Is(err, services.ErrPartialTeardown) {
			// Manual reconciliation needed; never dressed up as success
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	resp := map[string]any{"success": true, "subdomain": result.Subdomain}
	if result.Note != "" {
		resp["note"] = result.Note
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) RestartTenant(c echo.Context) error {
	if err := h.admin.Restart(c.Request().Context(), c.Param("subdomain")); err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) SuspendTenant(c echo.Context) error {
	if err := h.admin.Suspend(c.Param("subdomain")); err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) ReactivateTenant(c echo.Context) error {
	if err := h.admin.Reactivate(c.Param("subdomain")); err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) RefreshUsage(c echo.Context) error {
	t, err := h.admin.RefreshUsage(c.Request().Context(), c.Param("subdomain"))
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) adminError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrTenantNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "tenant not found"})
	case errors.Is(err, services.ErrCredentialsMissing):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		// Raw step-level error for the operator, not a generic message
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}
