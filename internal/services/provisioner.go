package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"strings"

	"nexusgate/internal/config"
	"nexusgate/internal/erpnext"
	"nexusgate/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	subdomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)
	nonSlugChars     = regexp.MustCompile(`[^a-z0-9]+`)
)

// Per-plan seat limits seeded onto new tenant sites.
var planMaxUsers = map[string]int{
	models.PlanFree:       5,
	models.PlanPro:        50,
	models.PlanEnterprise: 1000,
}

// ProvisionRequest describes one tenant creation request.
type ProvisionRequest struct {
	Subdomain     string `json:"subdomain"`
	CompanyName   string `json:"company_name"`
	OwnerEmail    string `json:"owner_email"`
	OwnerName     string `json:"owner_name"`
	Plan          string `json:"plan"`
	AdminPassword string `json:"admin_password"`
}

type activationPoller interface {
	PollUntilActive(ctx context.Context, site, apiKey, apiSecret string) PollResult
}

// Provisioner drives the multi-step creation of an isolated backend
// instance for a tenant. The sequence is not transactional: the directory
// record's status is the only durable trace of how far an attempt got.
// Failures after record creation mark the record failed and attempt a
// best-effort instance teardown; the caller always sees the original error.
type Provisioner struct {
	cfg    *config.Config
	dir    *DirectoryService
	bench  Bench
	poller activationPoller
	erp    *erpnext.Client
	logger *zap.Logger
}

func NewProvisioner(cfg *config.Config, dir *DirectoryService, bench Bench, poller activationPoller, erp *erpnext.Client, logger *zap.Logger) *Provisioner {
	return &Provisioner{cfg: cfg, dir: dir, bench: bench, poller: poller, erp: erp, logger: logger}
}

// Provision creates a new isolated instance for the request and records its
// connection details. On an activation timeout the record is left in
// provisioning status and ErrActivationTimeout is returned: the instance may
// still come up, so callers must not re-provision from scratch.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (*models.Tenant, error) {
	subdomain := req.Subdomain
	if subdomain == "" {
		subdomain = Slugify(req.CompanyName)
	}
	if !ValidSubdomain(subdomain) {
		return nil, ErrInvalidSubdomain
	}

	password := req.AdminPassword
	if password == "" {
		password = randomPassword()
	}
	plan := req.Plan
	if _, ok := planMaxUsers[plan]; !ok {
		plan = models.PlanFree
	}

	site := p.cfg.SiteName(subdomain)
	attemptID := uuid.NewString()
	log := p.logger.With(
		zap.String("attempt_id", attemptID),
		zap.String("subdomain", subdomain),
		zap.String("site", site),
	)
	log.Info("Provisioning started", zap.String("owner_email", req.OwnerEmail), zap.String("plan", plan))

	// Step 1: directory record in provisioning status. The unique index on
	// subdomain is the real duplicate guard.
	t := &models.Tenant{
		Name:        subdomain,
		CompanyName: req.CompanyName,
		Subdomain:   subdomain,
		OwnerEmail:  req.OwnerEmail,
		OwnerName:   req.OwnerName,
		Plan:        plan,
		Status:      models.StatusProvisioning,
		ERPNextSite: site,
	}
	if err := p.dir.Create(t); err != nil {
		if err == ErrSubdomainTaken {
			return nil, err
		}
		return nil, &ProvisioningError{Step: StepCreateRecord, Err: err}
	}

	// Step 2: create the isolated site/database.
	if err := p.bench.NewSite(ctx, site, password); err != nil {
		return nil, p.fail(ctx, log, subdomain, site, StepCreateSite, err)
	}
	log.Info("Site created")

	// Step 3: install the application bundle.
	for _, app := range p.cfg.DefaultAppList() {
		if err := p.bench.InstallApp(ctx, site, app); err != nil {
			return nil, p.fail(ctx, log, subdomain, site, StepInstallApps, err)
		}
		log.Info("App installed", zap.String("app", app))
	}

	// Step 4: administrative credential pair scoped to the new site.
	keys, err := p.bench.GenerateAPIKeys(ctx, site, req.OwnerEmail, req.OwnerName, password)
	if err != nil {
		return nil, p.fail(ctx, log, subdomain, site, StepGenerateKeys, err)
	}
	log.Info("API credentials generated")

	// Step 5: wait for the credentials to go live before anything depends
	// on them.
	poll := p.poller.PollUntilActive(ctx, site, keys.APIKey, keys.APISecret)
	if !poll.Active {
		log.Warn("Activation polling exhausted, leaving tenant in provisioning",
			zap.Int("attempts", poll.Attempts),
			zap.Duration("total_wait", poll.TotalWait),
		)
		return nil, poll.Err
	}

	// Step 6: record connection details and advance to active.
	siteURL := p.cfg.SiteURL(subdomain)
	if err := p.dir.MarkActive(subdomain, siteURL, site, keys.APIKey, keys.APISecret); err != nil {
		return nil, p.fail(ctx, log, subdomain, site, StepRecordActive, err)
	}

	// Step 7: seed plan limits on the tenant site. Runs only after the
	// poller confirmed the credentials; failure does not undo provisioning.
	if err := p.erp.SeedWorkspaceSettings(ctx, site, keys.APIKey, keys.APISecret, req.CompanyName, plan, planMaxUsers[plan]); err != nil {
		log.Warn("Workspace settings seeding failed", zap.Error(err))
	}

	log.Info("Provisioning complete")
	return p.dir.GetBySubdomain(subdomain)
}

// fail marks the record failed and tears down whatever was created, best
// effort. Teardown problems are logged, never surfaced over the original
// provisioning error.
func (p *Provisioner) fail(ctx context.Context, log *zap.Logger, subdomain, site, step string, cause error) error {
	log.Error("Provisioning step failed", zap.String("step", step), zap.Error(cause))

	if err := p.dir.MarkFailed(subdomain); err != nil {
		log.Error("Failed to mark tenant failed", zap.Error(err))
	}
	if err := p.bench.DropSite(ctx, site); err != nil && err != ErrSiteNotFound {
		log.Error("Compensating teardown failed", zap.Error(err))
	}

	return &ProvisioningError{Step: step, Err: cause}
}

// ValidSubdomain checks the lowercase URL-safe subdomain token format.
func ValidSubdomain(s string) bool {
	return len(s) >= 3 && len(s) <= 63 && subdomainPattern.MatchString(s)
}

// Slugify converts a company name to a valid subdomain token.
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) < 3 {
		slug += "-org"
	}
	if len(slug) > 63 {
		slug = strings.TrimRight(slug[:63], "-")
	}
	return slug
}

func randomPassword() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}
