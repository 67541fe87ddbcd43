package models

import (
	"time"
)

// Tenant lifecycle statuses. Transitions are one-directional except
// operator-triggered suspend/reactivate.
const (
	StatusPending      = "pending"
	StatusProvisioning = "provisioning"
	StatusActive       = "active"
	StatusFailed       = "failed"
	StatusSuspended    = "suspended"
	StatusTrial        = "trial"
	StatusCancelled    = "cancelled"
)

// Subscription tiers.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Tenant is one customer organization, isolated by its own backend site.
// Subdomain is unique and immutable once assigned; the unique index on it is
// what guards against two concurrent signups racing for the same name.
type Tenant struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	CompanyName string `gorm:"not null" json:"company_name"`
	Subdomain   string `gorm:"not null;uniqueIndex" json:"subdomain"`
	OwnerEmail  string `gorm:"not null;index" json:"owner_email"`
	OwnerName   string `json:"owner_name"`

	SiteURL     string `json:"site_url"`
	ERPNextSite string `gorm:"column:erpnext_site" json:"erpnext_site"`
	APIKey      string `json:"-"`
	APISecret   string `json:"-"`

	Plan   string `gorm:"default:'free'" json:"plan"`
	Status string `gorm:"default:'pending';index" json:"status"`

	// Usage counters, refreshed periodically, not atomically.
	Users     int   `json:"users"`
	Leads     int   `json:"leads"`
	Projects  int   `json:"projects"`
	Invoices  int   `json:"invoices"`
	StorageMB int64 `json:"storage_mb"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ProvisionedAt *time.Time `json:"provisioned_at"`
}

// HasCredentials reports whether a verified credential pair is recorded.
// A tenant must not be active without one.
func (t *Tenant) HasCredentials() bool {
	return t.APIKey != "" && t.APISecret != ""
}
