package handlers

import (
	"errors"
	"net/http"

	"nexusgate/internal/erpnext"
	mw "nexusgate/internal/middleware"
	"nexusgate/internal/services"
	"nexusgate/internal/tenant"

	"github.com/labstack/echo/v4"
)

func (h *Handler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and password are required"})
	}

	session, err := h.sessions.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.loginError(c, err)
	}

	mw.SetSessionCookies(c, session, h.cfg.IsProduction(), h.cookieDomain())

	return c.JSON(http.StatusOK, map[string]any{
		"user":         session.UserEmail,
		"full_name":    session.FullName,
		"user_type":    session.UserType,
		"subdomain":    session.Subdomain,
		"redirect_url": session.RedirectURL,
	})
}

func (h *Handler) loginError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, erpnext.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials, please check your email and password"})
	case errors.Is(err, erpnext.ErrSiteNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "workspace not found, please check your site URL"})
	case errors.Is(err, services.ErrTenantPending):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrTenantSuspended),
		errors.Is(err, services.ErrTenantCancelled),
		errors.Is(err, services.ErrTenantFailed):
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrCredentialsMissing):
		// Force a session reset rather than limping along without a
		// credential pair
		mw.ClearSessionCookies(c, h.cfg.IsProduction(), h.cookieDomain())
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": services.ErrCredentialsMissing.Error()})
	default:
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "unable to reach the authentication service"})
	}
}

func (h *Handler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(mw.CookieSID); err == nil && cookie.Value != "" {
		// The cookie holds a full URL; the backend routes on the bare site name
		site := ""
		if sc, err := c.Cookie(mw.CookieTenantSiteURL); err == nil {
			site = tenant.SiteNameFromURL(sc.Value)
		}
		h.sessions.Logout(c.Request().Context(), site, cookie.Value)
	}

	mw.ClearSessionCookies(c, h.cfg.IsProduction(), h.cookieDomain())
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) Me(c echo.Context) error {
	email, _ := c.Cookie(mw.CookieUserEmail)
	userType, _ := c.Cookie(mw.CookieUserType)
	sub, _ := c.Cookie(mw.CookieTenantSubdomain)

	resp := map[string]string{
		"user":      cookieVal(email),
		"user_type": cookieVal(userType),
	}
	if v := cookieVal(sub); v != "" {
		resp["subdomain"] = v
	}
	return c.JSON(http.StatusOK, resp)
}

func cookieVal(c *http.Cookie) string {
	if c == nil {
		return ""
	}
	return c.Value
}
