package middleware

import (
	"net/http"
	"time"

	"nexusgate/internal/services"

	"github.com/labstack/echo/v4"
)

// Session cookie names. The credential pair is never script-readable; in
// production every cookie is transport-secured and scoped to the root
// domain so one login works across all tenant subdomains.
const (
	CookieSID             = "sid"
	CookieUserEmail       = "user_email"
	CookieUserType        = "user_type"
	CookieTenantSubdomain = "tenant_subdomain"
	CookieTenantSiteURL   = "tenant_site_url"
	CookieTenantAPIKey    = "tenant_api_key"
	CookieTenantAPISecret = "tenant_api_secret"
)

var sessionCookieNames = []string{
	CookieSID,
	CookieUserEmail,
	CookieUserType,
	CookieTenantSubdomain,
	CookieTenantSiteURL,
	CookieTenantAPIKey,
	CookieTenantAPISecret,
}

const sessionMaxAge = 7 * 24 * time.Hour

func setCookie(c echo.Context, name, value string, secure bool, domain string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   domain,
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSessionCookies serializes a login result into the session cookies. An
// empty cookieDomain keeps host-only cookies for local development; in
// production it is ".{root_domain}" so the session follows the user onto
// their tenant subdomain.
func SetSessionCookies(c echo.Context, s *services.Session, secure bool, cookieDomain string) {
	setCookie(c, CookieSID, s.SID, secure, cookieDomain)
	setCookie(c, CookieUserEmail, s.UserEmail, secure, cookieDomain)
	setCookie(c, CookieUserType, s.UserType, secure, cookieDomain)
	if s.UserType == services.UserTypeTenant {
		setCookie(c, CookieTenantSubdomain, s.Subdomain, secure, cookieDomain)
		setCookie(c, CookieTenantSiteURL, s.SiteURL, secure, cookieDomain)
		setCookie(c, CookieTenantAPIKey, s.APIKey, secure, cookieDomain)
		setCookie(c, CookieTenantAPISecret, s.APISecret, secure, cookieDomain)
	}
}

// ClearSessionCookies expires every session cookie.
func ClearSessionCookies(c echo.Context, secure bool, cookieDomain string) {
	for _, name := range sessionCookieNames {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
