package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"nexusgate/internal/erpnext"
	"nexusgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAdmin(t *testing.T, bench Bench, handler http.HandlerFunc) (*AdminService, *DirectoryService) {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"message":0}`))
		}
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	dir := NewDirectoryService(newTestDB(t))
	return NewAdminService(dir, bench, erpnext.NewClient(server.URL, zap.NewNop()), zap.NewNop()), dir
}

func seedActive(t *testing.T, dir *DirectoryService, subdomain string) {
	t.Helper()
	tenant := newTenant(subdomain, subdomain+"@x.com", models.StatusProvisioning)
	require.NoError(t, dir.Create(tenant))
	require.NoError(t, dir.MarkActive(subdomain, "https://"+subdomain+".example.com", subdomain+".example.com", "key", "secret"))
}

func TestAdminDeleteDropsSiteAndRecord(t *testing.T) {
	bench := &fakeBench{}
	admin, dir := newTestAdmin(t, bench, nil)
	seedActive(t, dir, "acme")

	result, err := admin.Delete(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, result.SiteDropped)
	assert.False(t, result.SiteAbsent)
	assert.Equal(t, []string{"acme.example.com"}, bench.dropped)

	_, err = dir.GetBySubdomain("acme")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestAdminDeleteSiteAlreadyAbsent(t *testing.T) {
	// The instance vanished out from under us; the record still goes and
	// the operator is told the site was already gone
	bench := &fakeBench{dropErr: ErrSiteNotFound}
	admin, dir := newTestAdmin(t, bench, nil)
	seedActive(t, dir, "acme")

	result, err := admin.Delete(context.Background(), "acme")
	require.NoError(t, err)
	assert.False(t, result.SiteDropped)
	assert.True(t, result.SiteAbsent)
	assert.Equal(t, "instance was already absent", result.Note)

	_, err = dir.GetBySubdomain("acme")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestAdminDeleteNeverProvisionedTenant(t *testing.T) {
	// A pending tenant has no instance; teardown is a no-op, not an error
	bench := &fakeBench{}
	admin, dir := newTestAdmin(t, bench, nil)
	require.NoError(t, dir.Create(newTenant("acme", "a@x.com", models.StatusPending)))

	result, err := admin.Delete(context.Background(), "acme")
	require.NoError(t, err)
	assert.True(t, result.SiteAbsent)
	assert.Empty(t, bench.dropped)

	_, err = dir.GetBySubdomain("acme")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestAdminDeleteIsIdempotent(t *testing.T) {
	bench := &fakeBench{}
	admin, dir := newTestAdmin(t, bench, nil)
	seedActive(t, dir, "acme")

	_, err := admin.Delete(context.Background(), "acme")
	require.NoError(t, err)

	result, err := admin.Delete(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "tenant already deleted", result.Note)
}

func TestAdminDeletePartialTeardown(t *testing.T) {
	// The instance drop succeeds but the directory delete cannot; the
	// inconsistency is surfaced, never reported as success
	bench := &fakeBench{}
	admin, dir := newTestAdmin(t, bench, nil)
	seedActive(t, dir, "acme")

	bench.dropHook = func() {
		require.NoError(t, dir.db.Migrator().DropTable(&models.Tenant{}))
	}

	_, err := admin.Delete(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrPartialTeardown)
	assert.Equal(t, []string{"acme.example.com"}, bench.dropped)
}

func TestAdminDeleteTeardownFailureKeepsRecord(t *testing.T) {
	bench := &fakeBench{dropErr: errors.New("docker daemon unreachable")}
	admin, dir := newTestAdmin(t, bench, nil)
	seedActive(t, dir, "acme")

	_, err := admin.Delete(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance teardown failed")

	// Record survives so the operator can retry
	_, err = dir.GetBySubdomain("acme")
	assert.NoError(t, err)
}

func TestAdminListEnrichment(t *testing.T) {
	bench := &fakeBench{siteExists: true, apps: []string{"frappe", "nexus_core"}}
	admin, dir := newTestAdmin(t, bench, nil)
	seedActive(t, dir, "acme")

	tenants, err := admin.ListTenants(context.Background(), 100, true)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, LiveStatusPresent, tenants[0].LiveStatus)
	assert.Equal(t, []string{"frappe", "nexus_core"}, tenants[0].InstalledApps)
}

func TestAdminListEnrichmentFailureIsNotFatal(t *testing.T) {
	// Probe failure marks the row unknown, never fails the list
	bench := &fakeBench{existsErr: errors.New("docker exec timed out")}
	admin, dir := newTestAdmin(t, bench, nil)
	seedActive(t, dir, "acme")
	seedActive(t, dir, "globex")

	tenants, err := admin.ListTenants(context.Background(), 100, true)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	for _, tt := range tenants {
		assert.Equal(t, LiveStatusUnknown, tt.LiveStatus)
	}
}

func TestAdminListWithoutEnrichment(t *testing.T) {
	bench := &fakeBench{existsErr: errors.New("should not be called")}
	admin, dir := newTestAdmin(t, bench, nil)
	seedActive(t, dir, "acme")

	tenants, err := admin.ListTenants(context.Background(), 100, false)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Empty(t, tenants[0].LiveStatus)
}

func TestAdminRestart(t *testing.T) {
	bench := &fakeBench{}
	admin, dir := newTestAdmin(t, bench, nil)
	seedActive(t, dir, "acme")

	require.NoError(t, admin.Restart(context.Background(), "acme"))
	assert.Equal(t, []string{"acme.example.com"}, bench.cleared)

	assert.ErrorIs(t, admin.Restart(context.Background(), "ghost"), ErrTenantNotFound)
}

func TestAdminSuspendReactivate(t *testing.T) {
	admin, dir := newTestAdmin(t, &fakeBench{}, nil)
	seedActive(t, dir, "acme")

	require.NoError(t, admin.Suspend("acme"))
	got, _ := dir.GetBySubdomain("acme")
	assert.Equal(t, models.StatusSuspended, got.Status)

	// Double suspend is rejected
	assert.Error(t, admin.Suspend("acme"))

	require.NoError(t, admin.Reactivate("acme"))
	got, _ = dir.GetBySubdomain("acme")
	assert.Equal(t, models.StatusActive, got.Status)

	assert.Error(t, admin.Reactivate("acme"))
}

func TestAdminRefreshUsage(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":7}`))
	}
	admin, dir := newTestAdmin(t, &fakeBench{}, handler)
	seedActive(t, dir, "acme")

	tenant, err := admin.RefreshUsage(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 7, tenant.Users)
	assert.Equal(t, 7, tenant.Leads)
	assert.Equal(t, 7, tenant.Projects)
	assert.Equal(t, 7, tenant.Invoices)
}

func TestAdminRefreshUsageRequiresCredentials(t *testing.T) {
	admin, dir := newTestAdmin(t, &fakeBench{}, nil)
	require.NoError(t, dir.Create(newTenant("acme", "a@x.com", models.StatusPending)))

	_, err := admin.RefreshUsage(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrCredentialsMissing)
}
