// Package erpnext is a thin client for the Frappe/ERPNext REST API. All
// calls go through the shared web tier and are targeted at a specific site
// with the X-Frappe-Site-Name header; authentication is token style
// ("token key:secret") scoped to that site.
package erpnext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const siteHeader = "X-Frappe-Site-Name"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSiteNotFound       = errors.New("site not found")
)

type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: client, logger: logger}
}

// BaseURL returns the shared web tier address the client talks to.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

func tokenAuth(key, secret string) string {
	return fmt.Sprintf("token %s:%s", key, secret)
}

type messageEnvelope struct {
	Message json.RawMessage `json:"message"`
}

// LoginResult carries the session issued by a site login.
type LoginResult struct {
	SID      string
	FullName string
}

// Login authenticates a user against one site. An empty site targets the
// master site.
func (c *Client) Login(ctx context.Context, site, usr, pwd string) (*LoginResult, error) {
	var out struct {
		Message  string `json:"message"`
		FullName string `json:"full_name"`
	}

	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"usr": usr, "pwd": pwd}).
		SetResult(&out).
		ForceContentType("application/json")
	if site != "" {
		req.SetHeader(siteHeader, site)
	}

	resp, err := req.Post("/api/method/login")
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return nil, ErrInvalidCredentials
	case resp.StatusCode() == 404:
		return nil, ErrSiteNotFound
	case !resp.IsSuccess():
		return nil, fmt.Errorf("login failed: status %d", resp.StatusCode())
	}

	result := &LoginResult{FullName: out.FullName}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "sid" {
			result.SID = cookie.Value
		}
	}
	if result.SID == "" {
		return nil, fmt.Errorf("login succeeded but no session cookie issued")
	}

	return result, nil
}

// GetLoggedUser issues the lightweight authenticated read used to check
// whether a credential pair is live. It returns the raw HTTP status; the
// caller decides what counts as "active".
func (c *Client) GetLoggedUser(ctx context.Context, site, apiKey, apiSecret string) (int, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", tokenAuth(apiKey, apiSecret)).
		SetHeader(siteHeader, site).
		Get("/api/method/frappe.auth.get_logged_user")
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

// GetUserAPIKeys reads the api_key/api_secret pair of a user on a tenant
// site, using the master admin token for authorization.
func (c *Client) GetUserAPIKeys(ctx context.Context, site, masterKey, masterSecret, email string) (string, string, error) {
	var env messageEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", tokenAuth(masterKey, masterSecret)).
		SetHeader(siteHeader, site).
		SetBody(map[string]any{
			"doctype":   "User",
			"name":      email,
			"fieldname": []string{"api_key", "api_secret"},
		}).
		SetResult(&env).
		ForceContentType("application/json").
		Post("/api/method/frappe.client.get_value")
	if err != nil {
		return "", "", fmt.Errorf("api key lookup failed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", "", fmt.Errorf("api key lookup failed: status %d", resp.StatusCode())
	}

	var keys struct {
		APIKey    string `json:"api_key"`
		APISecret string `json:"api_secret"`
	}
	if len(env.Message) > 0 {
		if err := json.Unmarshal(env.Message, &keys); err != nil {
			return "", "", fmt.Errorf("failed to parse api key response: %w", err)
		}
	}

	return keys.APIKey, keys.APISecret, nil
}

// SeedWorkspaceSettings writes the plan limits document onto a freshly
// provisioned tenant site. Callers only run this after the activation
// poller has confirmed the site's credentials.
func (c *Client) SeedWorkspaceSettings(ctx context.Context, site, apiKey, apiSecret, companyName, plan string, maxUsers int) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", tokenAuth(apiKey, apiSecret)).
		SetHeader(siteHeader, site).
		SetBody(map[string]any{
			"doc": map[string]any{
				"doctype":           "SaaS Settings",
				"organization_name": companyName,
				"plan_type":         plan,
				"max_users":         maxUsers,
			},
		}).
		Post("/api/method/frappe.client.insert")
	if err != nil {
		return fmt.Errorf("settings seed failed: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("settings seed failed: status %d", resp.StatusCode())
	}
	return nil
}

// CountDocs counts documents of a doctype on one site, used for the periodic
// usage counter refresh.
func (c *Client) CountDocs(ctx context.Context, site, apiKey, apiSecret, doctype string, filters map[string]any) (int, error) {
	var env messageEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", tokenAuth(apiKey, apiSecret)).
		SetHeader(siteHeader, site).
		SetBody(map[string]any{"doctype": doctype, "filters": filters}).
		SetResult(&env).
		ForceContentType("application/json").
		Post("/api/method/frappe.client.get_count")
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("count failed: status %d", resp.StatusCode())
	}

	var count int
	if len(env.Message) > 0 {
		if err := json.Unmarshal(env.Message, &count); err != nil {
			return 0, fmt.Errorf("failed to parse count response: %w", err)
		}
	}
	return count, nil
}

// Logout ends a session on the backend. Failures are not fatal to the
// gateway-side logout, so the caller may log and ignore the error.
func (c *Client) Logout(ctx context.Context, site, sid string) error {
	req := c.http.R().
		SetContext(ctx).
		SetCookie(&http.Cookie{Name: "sid", Value: sid})
	if site != "" {
		req.SetHeader(siteHeader, site)
	}
	_, err := req.Post("/api/method/logout")
	return err
}
