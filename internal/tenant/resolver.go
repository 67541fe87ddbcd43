package tenant

import (
	"net"
	"strings"
)

// Resolve maps an inbound Host header to a tenant subdomain. It returns ""
// for the apex/marketing domain ("master" site). The function is total:
// any host it does not recognize resolves to no tenant, never an error.
//
//	acme.example.com     -> "acme"
//	example.com          -> ""
//	www.example.com      -> ""
//	localhost            -> ""
//	acme.localhost:3000  -> "acme"
func Resolve(host, rootDomain string) string {
	if host == "" {
		return ""
	}

	// Strip port suffix if present
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)

	if host == rootDomain || host == "www."+rootDomain || host == "localhost" {
		return ""
	}

	if sub, ok := strings.CutSuffix(host, "."+rootDomain); ok {
		if sub == "www" || sub == "" || strings.Contains(sub, ".") {
			return ""
		}
		return sub
	}

	// Local development: acme.localhost
	if sub, ok := strings.CutSuffix(host, ".localhost"); ok {
		if sub == "www" || sub == "" || strings.Contains(sub, ".") {
			return ""
		}
		return sub
	}

	return ""
}

// SiteNameFromURL reduces a site URL to the bare site name the backend
// routes on: "http://acme.localhost:8080" -> "acme.localhost". The backend
// does not understand schemes or ports in its site-name header.
func SiteNameFromURL(siteURL string) string {
	s := strings.TrimPrefix(siteURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	return s
}
