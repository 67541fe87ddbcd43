package middleware

import (
	"net/http"
	"strings"

	"nexusgate/internal/services"
	"nexusgate/internal/tenant"

	"github.com/labstack/echo/v4"
)

// TenantResolver resolves the tenant from the request host and binds the
// request-scoped identity, filling credentials in from session cookies when
// present. Resolution is never fatal: an unrecognized host serves the
// master/marketing shell.
func TenantResolver(rootDomain string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sub := tenant.Resolve(c.Request().Host, rootDomain)

			id := &tenant.Identity{
				Subdomain: sub,
				UserEmail: cookieValue(c, CookieUserEmail),
				UserType:  cookieValue(c, CookieUserType),
				SiteURL:   cookieValue(c, CookieTenantSiteURL),
				APIKey:    cookieValue(c, CookieTenantAPIKey),
				APISecret: cookieValue(c, CookieTenantAPISecret),
			}
			if bound := cookieValue(c, CookieTenantSubdomain); bound != "" {
				id.SiteName = tenant.SiteNameFromURL(id.SiteURL)
				if sub == "" {
					id.Subdomain = bound
				}
			}

			if sub == "" {
				c.Response().Header().Set("X-Tenant-Id", "master")
			} else {
				c.Response().Header().Set("X-Tenant-Id", sub)
			}

			ctx := tenant.WithIdentity(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// SessionGuard protects tenant-facing routes. An unauthenticated request is
// redirected to login (or rejected with 401 for API clients). An
// authenticated tenant session without its credential pair is a distinct
// error condition: the session is reset and the user re-authenticates,
// never silently falling back to another tenant's data.
func SessionGuard(secure bool, cookieDomain string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookieValue(c, CookieSID) == "" {
				return unauthenticated(c, "authentication required")
			}

			if cookieValue(c, CookieUserType) == services.UserTypeTenant {
				id := tenant.FromContext(c.Request().Context())
				if !id.HasCredentials() {
					ClearSessionCookies(c, secure, cookieDomain)
					return unauthenticated(c, services.ErrCredentialsMissing.Error())
				}
			}

			return next(c)
		}
	}
}

// OperatorOnly gates the admin surface. Rejected before any external call
// is made.
func OperatorOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookieValue(c, CookieSID) == "" || cookieValue(c, CookieUserType) != services.UserTypeAdmin {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "operator access required"})
			}
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, msg string) error {
	if strings.Contains(c.Request().Header.Get("Accept"), "text/html") {
		return c.Redirect(http.StatusFound, "/login")
	}
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": msg})
}
