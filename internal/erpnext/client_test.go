package erpnext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// A misbehaving proxy in front of the web tier can strip the JSON content
// type; the client must still decode the body instead of silently returning
// zero values.
func TestGetUserAPIKeysWithoutContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(`{"message":{"api_key":"user-key","api_secret":"user-secret"}}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, zap.NewNop())
	key, secret, err := client.GetUserAPIKeys(context.Background(), "acme.localhost", "mk", "ms", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "user-key", key)
	assert.Equal(t, "user-secret", secret)
}

func TestCountDocsWithoutContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":7}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, zap.NewNop())
	n, err := client.CountDocs(context.Background(), "acme.localhost", "k", "s", "Lead", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestLoginWithoutContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "sid-1"})
		w.Write([]byte(`{"message":"Logged In","full_name":"Ada Lovelace"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, zap.NewNop())
	result, err := client.Login(context.Background(), "", "a@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "sid-1", result.SID)
	assert.Equal(t, "Ada Lovelace", result.FullName)
}
