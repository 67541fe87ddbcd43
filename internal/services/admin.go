package services

import (
	"context"
	"fmt"

	"nexusgate/internal/erpnext"
	"nexusgate/internal/models"

	"go.uber.org/zap"
)

// Live status markers produced by the best-effort instance cross-check.
const (
	LiveStatusPresent = "present"
	LiveStatusMissing = "missing"
	LiveStatusUnknown = "unknown"
)

// TenantOverview is a directory record enriched with the live instance
// state, for operator review.
type TenantOverview struct {
	models.Tenant
	LiveStatus    string   `json:"live_status,omitempty"`
	InstalledApps []string `json:"installed_apps,omitempty"`
}

// DeleteResult reports what a tenant delete actually did.
type DeleteResult struct {
	Subdomain   string `json:"subdomain"`
	SiteDropped bool   `json:"site_dropped"`
	SiteAbsent  bool   `json:"site_absent"`
	Note        string `json:"note,omitempty"`
}

// AdminService implements the operator-only tenant operations, layered on
// the directory and the instance manager.
type AdminService struct {
	dir    *DirectoryService
	bench  Bench
	erp    *erpnext.Client
	logger *zap.Logger
}

func NewAdminService(dir *DirectoryService, bench Bench, erp *erpnext.Client, logger *zap.Logger) *AdminService {
	return &AdminService{dir: dir, bench: bench, erp: erp, logger: logger}
}

// ListTenants returns directory records, optionally cross-checked against
// the instance manager. Enrichment is best effort: a probe failure marks the
// row unknown and never fails the list as a whole.
func (s *AdminService) ListTenants(ctx context.Context, limit int, enrich bool) ([]TenantOverview, error) {
	tenants, err := s.dir.List(limit)
	if err != nil {
		return nil, err
	}

	overviews := make([]TenantOverview, 0, len(tenants))
	for _, t := range tenants {
		o := TenantOverview{Tenant: t}
		if enrich && t.ERPNextSite != "" {
			s.enrich(ctx, &o)
		}
		overviews = append(overviews, o)
	}
	return overviews, nil
}

// Inspect returns one tenant with live instance state.
func (s *AdminService) Inspect(ctx context.Context, subdomain string) (*TenantOverview, error) {
	t, err := s.dir.GetBySubdomain(subdomain)
	if err != nil {
		return nil, err
	}
	o := &TenantOverview{Tenant: *t}
	if t.ERPNextSite != "" {
		s.enrich(ctx, o)
	}
	return o, nil
}

func (s *AdminService) enrich(ctx context.Context, o *TenantOverview) {
	exists, err := s.bench.SiteExists(ctx, o.ERPNextSite)
	if err != nil {
		s.logger.Warn("Instance existence probe failed",
			zap.String("site", o.ERPNextSite), zap.Error(err))
		o.LiveStatus = LiveStatusUnknown
		return
	}
	if !exists {
		o.LiveStatus = LiveStatusMissing
		return
	}

	o.LiveStatus = LiveStatusPresent
	apps, err := s.bench.ListApps(ctx, o.ERPNextSite)
	if err != nil {
		s.logger.Warn("Installed app probe failed",
			zap.String("site", o.ERPNextSite), zap.Error(err))
		return
	}
	o.InstalledApps = apps
}

// Delete drops the tenant's instance and removes the directory record.
// Delete is idempotent: a record that is already gone reports success. A
// site that no longer exists on disk is a no-op for the teardown step. When
// the instance drop succeeds but the directory delete fails, the tenant is
// left inconsistent and that is surfaced as a partial-teardown error rather
// than silent success.
func (s *AdminService) Delete(ctx context.Context, subdomain string) (*DeleteResult, error) {
	result := &DeleteResult{Subdomain: subdomain}

	t, err := s.dir.GetBySubdomain(subdomain)
	if err == ErrTenantNotFound {
		result.Note = "tenant already deleted"
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if t.ERPNextSite == "" {
		// Never got far enough to have an instance
		result.SiteAbsent = true
	} else {
		switch err := s.bench.DropSite(ctx, t.ERPNextSite); err {
		case nil:
			result.SiteDropped = true
		case ErrSiteNotFound:
			result.SiteAbsent = true
			result.Note = "instance was already absent"
		default:
			return nil, fmt.Errorf("instance teardown failed: %w", err)
		}
	}

	if err := s.dir.Delete(subdomain); err != nil && err != ErrTenantNotFound {
		if result.SiteDropped {
			return nil, fmt.Errorf("%w: instance dropped but directory delete failed: %v", ErrPartialTeardown, err)
		}
		return nil, err
	}

	s.logger.Info("Tenant deleted",
		zap.String("subdomain", subdomain),
		zap.Bool("site_dropped", result.SiteDropped),
		zap.Bool("site_absent", result.SiteAbsent),
	)
	return result, nil
}

// Restart issues a cache-clear against the tenant's instance without
// touching directory state.
func (s *AdminService) Restart(ctx context.Context, subdomain string) error {
	t, err := s.dir.GetBySubdomain(subdomain)
	if err != nil {
		return err
	}
	if t.ERPNextSite == "" {
		return fmt.Errorf("tenant %s has no instance to restart", subdomain)
	}
	return s.bench.ClearCache(ctx, t.ERPNextSite)
}

// Suspend and Reactivate are the only operator-triggered reverse
// transitions in the lifecycle.
func (s *AdminService) Suspend(subdomain string) error {
	t, err := s.dir.GetBySubdomain(subdomain)
	if err != nil {
		return err
	}
	if t.Status != models.StatusActive && t.Status != models.StatusTrial {
		return fmt.Errorf("cannot suspend tenant in status %s", t.Status)
	}
	return s.dir.UpdateStatus(subdomain, models.StatusSuspended)
}

func (s *AdminService) Reactivate(subdomain string) error {
	t, err := s.dir.GetBySubdomain(subdomain)
	if err != nil {
		return err
	}
	if t.Status != models.StatusSuspended {
		return fmt.Errorf("cannot reactivate tenant in status %s", t.Status)
	}
	return s.dir.UpdateStatus(subdomain, models.StatusActive)
}

// RefreshUsage pulls current document counts from the tenant's own site and
// stores them on the directory record. Counters are advisory; individual
// count failures degrade to the last known value.
func (s *AdminService) RefreshUsage(ctx context.Context, subdomain string) (*models.Tenant, error) {
	t, err := s.dir.GetBySubdomain(subdomain)
	if err != nil {
		return nil, err
	}
	if !t.HasCredentials() {
		return nil, ErrCredentialsMissing
	}

	counts := map[string]int{"User": t.Users, "Lead": t.Leads, "Project": t.Projects, "Sales Invoice": t.Invoices}
	for doctype := range counts {
		filters := map[string]any{}
		if doctype == "User" {
			filters["enabled"] = 1
			filters["user_type"] = "System User"
		}
		n, err := s.erp.CountDocs(ctx, t.ERPNextSite, t.APIKey, t.APISecret, doctype, filters)
		if err != nil {
			s.logger.Warn("Usage count failed",
				zap.String("subdomain", subdomain),
				zap.String("doctype", doctype),
				zap.Error(err))
			continue
		}
		counts[doctype] = n
	}

	if err := s.dir.UpdateUsage(subdomain, counts["User"], counts["Lead"], counts["Project"], counts["Sales Invoice"]); err != nil {
		return nil, err
	}
	return s.dir.GetBySubdomain(subdomain)
}
