package tenant

import (
	"context"
)

// Context key type to avoid collisions
type contextKey string

const identityKey contextKey = "tenant_identity"

// Identity is the request-scoped tenant binding, populated once per request
// by the routing middleware from the resolved host and session cookies.
// There is no ambient process-wide tenant state; everything downstream reads
// from here.
type Identity struct {
	Subdomain string
	SiteURL   string
	SiteName  string
	APIKey    string
	APISecret string
	UserEmail string
	UserType  string
}

// IsMaster reports whether the request targets the apex/marketing site.
func (id *Identity) IsMaster() bool {
	return id == nil || id.Subdomain == ""
}

// HasCredentials reports whether a usable credential pair is bound.
func (id *Identity) HasCredentials() bool {
	return id != nil && id.APIKey != "" && id.APISecret != ""
}

// WithIdentity attaches the tenant identity to the request context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext retrieves the tenant identity, or nil when none was bound.
func FromContext(ctx context.Context) *Identity {
	if val := ctx.Value(identityKey); val != nil {
		if id, ok := val.(*Identity); ok {
			return id
		}
	}
	return nil
}
