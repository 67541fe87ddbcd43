package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"nexusgate/internal/services"

	"github.com/labstack/echo/v4"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Signup provisions a new isolated workspace for an organization. The
// request blocks for the duration of provisioning (typically 30-90 seconds
// including the activation wait).
func (h *Handler) Signup(c echo.Context) error {
	var req services.ProvisionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	if req.CompanyName == "" || req.OwnerEmail == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "company_name and owner_email are required"})
	}
	if !emailPattern.MatchString(req.OwnerEmail) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid email address"})
	}
	if req.AdminPassword != "" && len(req.AdminPassword) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
	}

	t, err := h.provisioner.Provision(c.Request().Context(), req)
	if err != nil {
		return h.provisionError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"tenant":       t,
		"redirect_url": h.cfg.SiteURL(t.Subdomain),
	})
}

func (h *Handler) provisionError(c echo.Context, err error) error {
	var pErr *services.ProvisioningError
	switch {
	case errors.Is(err, services.ErrSubdomainTaken):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidSubdomain):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "subdomain must be 3-63 lowercase letters, numbers, and hyphens"})
	case errors.Is(err, services.ErrActivationTimeout):
		// The instance may still come up; the caller should poll status
		// instead of re-provisioning from scratch
		return c.JSON(http.StatusAccepted, map[string]string{
			"status":  "provisioning",
			"message": "we are still preparing your workspace, check back in a few minutes",
		})
	case errors.As(err, &pErr):
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "provisioning failed, please retry or contact support",
			"step":  pErr.Step,
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// CheckSubdomain reports whether a subdomain is still available. The name
// is slugified the same way signup does it, so the answer matches what
// signup would actually claim.
func (h *Handler) CheckSubdomain(c echo.Context) error {
	subdomain := services.Slugify(c.Param("subdomain"))
	if !services.ValidSubdomain(subdomain) {
		return c.JSON(http.StatusOK, map[string]any{
			"available": false,
			"subdomain": subdomain,
			"reason":    "invalid subdomain format",
		})
	}

	_, err := h.dir.GetBySubdomain(subdomain)
	if err == nil {
		return c.JSON(http.StatusOK, map[string]any{
			"available": false,
			"subdomain": subdomain,
			"reason":    "subdomain already taken",
		})
	}
	if !errors.Is(err, services.ErrTenantNotFound) {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"available": true,
		"subdomain": subdomain,
	})
}
