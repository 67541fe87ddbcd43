package services

import (
	"context"
	"errors"
	"fmt"

	"nexusgate/internal/config"
	"nexusgate/internal/erpnext"
	"nexusgate/internal/models"

	"go.uber.org/zap"
)

const (
	UserTypeAdmin  = "admin"
	UserTypeTenant = "tenant"
)

var (
	ErrTenantSuspended = errors.New("account is suspended, contact support to reactivate")
	ErrTenantCancelled = errors.New("account has been cancelled, contact support to restore access")
	ErrTenantPending   = errors.New("account is still being set up, this usually takes 2-3 minutes")
	ErrTenantFailed    = errors.New("account setup did not complete, please sign up again or contact support")
)

// Session is the credential binding produced by a successful login. The
// handler layer serializes it into scoped cookies; nothing is cached in
// process memory.
type Session struct {
	SID         string
	UserEmail   string
	FullName    string
	UserType    string
	Subdomain   string
	SiteURL     string
	SiteName    string
	APIKey      string
	APISecret   string
	RedirectURL string
}

// SessionService binds a login to the owning tenant's instance. An owner
// email present in the directory authenticates against that tenant's site
// with its scoped credentials; anyone else authenticates against the master
// site.
type SessionService struct {
	cfg    *config.Config
	dir    *DirectoryService
	erp    *erpnext.Client
	logger *zap.Logger
}

func NewSessionService(cfg *config.Config, dir *DirectoryService, erp *erpnext.Client, logger *zap.Logger) *SessionService {
	return &SessionService{cfg: cfg, dir: dir, erp: erp, logger: logger}
}

func (s *SessionService) Login(ctx context.Context, email, password string) (*Session, error) {
	t, err := s.dir.GetByOwnerEmail(email)
	if err == ErrTenantNotFound {
		return s.loginMaster(ctx, email, password)
	}
	if err != nil {
		return nil, err
	}

	switch t.Status {
	case models.StatusSuspended:
		return nil, ErrTenantSuspended
	case models.StatusCancelled:
		return nil, ErrTenantCancelled
	case models.StatusPending, models.StatusProvisioning:
		return nil, ErrTenantPending
	case models.StatusFailed:
		return nil, ErrTenantFailed
	}

	if t.SiteURL == "" || t.ERPNextSite == "" {
		s.logger.Error("Active tenant missing connection details", zap.String("subdomain", t.Subdomain))
		return nil, ErrCredentialsMissing
	}

	login, err := s.erp.Login(ctx, t.ERPNextSite, email, password)
	if err != nil {
		return nil, err
	}

	// The user's own key pair is what subsequent calls carry; session
	// cookies do not cross sites. Its absence is a hard error so a session
	// can never silently fall back to another tenant's data.
	apiKey, apiSecret, err := s.erp.GetUserAPIKeys(ctx, t.ERPNextSite, s.cfg.MasterAPIKey, s.cfg.MasterAPISecret, email)
	if err != nil {
		s.logger.Error("Tenant API key lookup failed", zap.String("subdomain", t.Subdomain), zap.Error(err))
		return nil, ErrCredentialsMissing
	}
	if apiKey == "" || apiSecret == "" {
		return nil, ErrCredentialsMissing
	}

	return &Session{
		SID:         login.SID,
		UserEmail:   email,
		FullName:    login.FullName,
		UserType:    UserTypeTenant,
		Subdomain:   t.Subdomain,
		SiteURL:     t.SiteURL,
		SiteName:    t.ERPNextSite,
		APIKey:      apiKey,
		APISecret:   apiSecret,
		RedirectURL: s.dashboardURL(t.Subdomain),
	}, nil
}

func (s *SessionService) loginMaster(ctx context.Context, email, password string) (*Session, error) {
	login, err := s.erp.Login(ctx, "", email, password)
	if err != nil {
		return nil, err
	}
	return &Session{
		SID:         login.SID,
		UserEmail:   email,
		FullName:    login.FullName,
		UserType:    UserTypeAdmin,
		RedirectURL: "/dashboard",
	}, nil
}

// Logout ends the backend session, best effort.
func (s *SessionService) Logout(ctx context.Context, site, sid string) {
	if sid == "" {
		return
	}
	if err := s.erp.Logout(ctx, site, sid); err != nil {
		s.logger.Warn("Backend logout failed", zap.Error(err))
	}
}

func (s *SessionService) dashboardURL(subdomain string) string {
	if s.cfg.IsProduction() {
		return fmt.Sprintf("https://%s.%s/dashboard", subdomain, s.cfg.RootDomain)
	}
	return fmt.Sprintf("http://%s.localhost:3000/dashboard", subdomain)
}
