package services

import (
	"testing"

	"nexusgate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A pooled :memory: connection is a separate database; pin to one
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Tenant{}))
	return db
}

func newTenant(subdomain, email, status string) *models.Tenant {
	return &models.Tenant{
		Name:        subdomain,
		CompanyName: "Acme Rentals",
		Subdomain:   subdomain,
		OwnerEmail:  email,
		Plan:        models.PlanFree,
		Status:      status,
	}
}

func TestDirectoryCreateAndGet(t *testing.T) {
	dir := NewDirectoryService(newTestDB(t))

	require.NoError(t, dir.Create(newTenant("acme", "a@x.com", models.StatusProvisioning)))

	bySub, err := dir.GetBySubdomain("acme")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", bySub.OwnerEmail)
	assert.Equal(t, models.StatusProvisioning, bySub.Status)
	assert.Nil(t, bySub.ProvisionedAt)

	byEmail, err := dir.GetByOwnerEmail("a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "acme", byEmail.Subdomain)

	_, err = dir.GetBySubdomain("ghost")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestDirectoryUniqueSubdomain(t *testing.T) {
	// The storage layer is the duplicate guard, not check-then-insert
	dir := NewDirectoryService(newTestDB(t))

	require.NoError(t, dir.Create(newTenant("acme", "a@x.com", models.StatusProvisioning)))
	err := dir.Create(newTenant("acme", "b@y.com", models.StatusProvisioning))
	assert.ErrorIs(t, err, ErrSubdomainTaken)

	tenants, err := dir.List(10)
	require.NoError(t, err)
	assert.Len(t, tenants, 1)
}

func TestDirectoryMarkActive(t *testing.T) {
	dir := NewDirectoryService(newTestDB(t))
	require.NoError(t, dir.Create(newTenant("acme", "a@x.com", models.StatusProvisioning)))

	err := dir.MarkActive("acme", "https://acme.example.com", "acme.example.com", "key", "secret")
	require.NoError(t, err)

	got, err := dir.GetBySubdomain("acme")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Equal(t, "https://acme.example.com", got.SiteURL)
	assert.Equal(t, "acme.example.com", got.ERPNextSite)
	assert.True(t, got.HasCredentials())
	require.NotNil(t, got.ProvisionedAt)

	assert.ErrorIs(t, dir.MarkActive("ghost", "", "", "", ""), ErrTenantNotFound)
}

func TestDirectoryStatusAndDelete(t *testing.T) {
	dir := NewDirectoryService(newTestDB(t))
	require.NoError(t, dir.Create(newTenant("acme", "a@x.com", models.StatusProvisioning)))

	require.NoError(t, dir.MarkFailed("acme"))
	got, err := dir.GetBySubdomain("acme")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)

	require.NoError(t, dir.Delete("acme"))
	assert.ErrorIs(t, dir.Delete("acme"), ErrTenantNotFound)
}

func TestDirectoryUpdateUsage(t *testing.T) {
	dir := NewDirectoryService(newTestDB(t))
	require.NoError(t, dir.Create(newTenant("acme", "a@x.com", models.StatusActive)))

	require.NoError(t, dir.UpdateUsage("acme", 4, 12, 3, 9))
	got, err := dir.GetBySubdomain("acme")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Users)
	assert.Equal(t, 12, got.Leads)
	assert.Equal(t, 3, got.Projects)
	assert.Equal(t, 9, got.Invoices)
}

func TestDirectoryListBounded(t *testing.T) {
	dir := NewDirectoryService(newTestDB(t))
	for _, sub := range []string{"alpha", "beta", "gamma"} {
		require.NoError(t, dir.Create(newTenant(sub, sub+"@x.com", models.StatusActive)))
	}

	tenants, err := dir.List(2)
	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}
