package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	const root = "example.com"

	tests := []struct {
		name string
		host string
		want string
	}{
		{"tenant subdomain", "acme.example.com", "acme"},
		{"root domain", "example.com", ""},
		{"www on root", "www.example.com", ""},
		{"bare localhost", "localhost", ""},
		{"localhost with port", "localhost:3000", ""},
		{"local tenant with port", "acme.localhost:3000", "acme"},
		{"local tenant", "acme.localhost", "acme"},
		{"tenant with port", "acme.example.com:8080", "acme"},
		{"www as local tenant", "www.localhost", ""},
		{"uppercase host", "ACME.Example.com", "acme"},
		{"empty host", "", ""},
		{"unrelated domain", "evil.com", ""},
		{"unrelated subdomain", "acme.evil.com", ""},
		{"nested label", "a.b.example.com", ""},
		{"root with port", "example.com:443", ""},
		{"suffix lookalike", "notexample.com", ""},
		{"hyphenated tenant", "big-rentals.example.com", "big-rentals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.host, root))
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	for _, host := range []string{"acme.example.com", "example.com", "acme.localhost:3000", "garbage"} {
		first := Resolve(host, "example.com")
		second := Resolve(host, "example.com")
		assert.Equal(t, first, second, "host %q", host)
	}
}

func TestSiteNameFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://acme.localhost:8080", "acme.localhost"},
		{"https://acme.example.com", "acme.example.com"},
		{"https://acme.example.com/app/home", "acme.example.com"},
		{"acme.example.com", "acme.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SiteNameFromURL(tt.in), "input %q", tt.in)
	}
}

func TestIdentityContext(t *testing.T) {
	id := &Identity{Subdomain: "acme", APIKey: "k", APISecret: "s"}
	ctx := WithIdentity(context.Background(), id)

	got := FromContext(ctx)
	assert.Equal(t, id, got)
	assert.False(t, got.IsMaster())
	assert.True(t, got.HasCredentials())

	assert.Nil(t, FromContext(context.Background()))
	assert.True(t, (*Identity)(nil).IsMaster())
	assert.False(t, (*Identity)(nil).HasCredentials())
}
