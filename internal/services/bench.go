package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"nexusgate/internal/config"

	"go.uber.org/zap"
)

// ErrSiteNotFound is returned by site commands when the target site does not
// exist on disk, so callers can treat teardown of a never-provisioned tenant
// as a no-op.
var ErrSiteNotFound = errors.New("site does not exist")

// APIKeyPair is the administrative credential pair issued for a new site.
type APIKeyPair struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// Bench is the instance-management surface: every call is an external,
// long-running, side-effecting administrative command with an explicit
// timeout.
type Bench interface {
	NewSite(ctx context.Context, site, adminPassword string) error
	InstallApp(ctx context.Context, site, app string) error
	GenerateAPIKeys(ctx context.Context, site, email, fullName, password string) (*APIKeyPair, error)
	DropSite(ctx context.Context, site string) error
	ClearCache(ctx context.Context, site string) error
	SiteExists(ctx context.Context, site string) (bool, error)
	ListApps(ctx context.Context, site string) ([]string, error)
}

// BenchService runs bench commands inside the Frappe backend container via
// docker exec. This is the only place in the gateway where shell commands
// run.
type BenchService struct {
	cfg    *config.Config
	logger *zap.Logger
}

func NewBenchService(cfg *config.Config, logger *zap.Logger) *BenchService {
	return &BenchService{cfg: cfg, logger: logger}
}

func (s *BenchService) exec(ctx context.Context, timeout time.Duration, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", append([]string{"exec", s.cfg.BackendContainer}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Info("Running instance command",
		zap.String("container", s.cfg.BackendContainer),
		zap.Strings("args", args),
	)

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return stdout.String(), stderr.String(), fmt.Errorf("command timed out after %s", timeout)
	}
	return stdout.String(), stderr.String(), err
}

func (s *BenchService) bench(ctx context.Context, timeout time.Duration, benchArgs ...string) (string, string, error) {
	shell := fmt.Sprintf("cd %s && bench %s", s.cfg.BenchPath, strings.Join(benchArgs, " "))
	return s.exec(ctx, timeout, "bash", "-c", shell)
}

// NewSite materializes a new isolated site and database. A site that already
// exists is tolerated so a retried provisioning attempt can continue.
func (s *BenchService) NewSite(ctx context.Context, site, adminPassword string) error {
	stdout, stderr, err := s.bench(ctx, 5*time.Minute,
		"new-site", site,
		"--admin-password", adminPassword,
		"--db-root-password", s.cfg.DBRootPassword,
		"--no-mariadb-socket",
	)
	if err != nil {
		if strings.Contains(strings.ToLower(stdout+stderr), "already exists") {
			s.logger.Info("Site already exists, continuing", zap.String("site", site))
			return nil
		}
		return fmt.Errorf("new-site %s failed: %w: %s", site, err, firstLine(stderr))
	}
	return nil
}

// InstallApp installs one application bundle onto a site.
func (s *BenchService) InstallApp(ctx context.Context, site, app string) error {
	stdout, stderr, err := s.bench(ctx, 2*time.Minute, "--site", site, "install-app", app)
	if err != nil {
		if strings.Contains(strings.ToLower(stdout+stderr), "already installed") {
			s.logger.Info("App already installed", zap.String("site", site), zap.String("app", app))
			return nil
		}
		return fmt.Errorf("install-app %s on %s failed: %w: %s", app, site, err, firstLine(stderr))
	}
	return nil
}

// GenerateAPIKeys creates (or updates) the administrative user on a site and
// issues an API key/secret pair scoped to that site. The bootstrap command
// prints its result as JSON on the last line of output.
func (s *BenchService) GenerateAPIKeys(ctx context.Context, site, email, fullName, password string) (*APIKeyPair, error) {
	kwargs, _ := json.Marshal(map[string]string{
		"email":     email,
		"full_name": fullName,
		"password":  password,
	})
	stdout, stderr, err := s.bench(ctx, 2*time.Minute,
		"--site", site,
		"execute", "nexus_core.api.bootstrap_admin",
		"--kwargs", shellQuote(string(kwargs)),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap_admin on %s failed: %w: %s", site, err, firstLine(stderr))
	}

	var pair APIKeyPair
	if err := parseLastJSONLine(stdout, &pair); err != nil {
		return nil, fmt.Errorf("bootstrap_admin on %s returned no credentials: %w", site, err)
	}
	if pair.APIKey == "" || pair.APISecret == "" {
		return nil, fmt.Errorf("bootstrap_admin on %s returned an incomplete credential pair", site)
	}
	return &pair, nil
}

// DropSite removes a site and its database. A missing site is reported as
// ErrSiteNotFound rather than a hard failure.
func (s *BenchService) DropSite(ctx context.Context, site string) error {
	stdout, stderr, err := s.bench(ctx, time.Minute,
		"drop-site", site,
		"--db-root-password", s.cfg.DBRootPassword,
		"--force",
	)
	if err != nil {
		combined := strings.ToLower(stdout + stderr)
		if strings.Contains(combined, "does not exist") || strings.Contains(combined, "no such site") {
			return ErrSiteNotFound
		}
		return fmt.Errorf("drop-site %s failed: %w: %s", site, err, firstLine(stderr))
	}
	return nil
}

// ClearCache recycles a site's caches without touching directory state.
func (s *BenchService) ClearCache(ctx context.Context, site string) error {
	_, stderr, err := s.bench(ctx, 30*time.Second, "--site", site, "clear-cache")
	if err != nil {
		return fmt.Errorf("clear-cache %s failed: %w: %s", site, err, firstLine(stderr))
	}
	return nil
}

// SiteExists checks for the site directory inside the bench.
func (s *BenchService) SiteExists(ctx context.Context, site string) (bool, error) {
	_, _, err := s.exec(ctx, 10*time.Second, "ls", s.cfg.BenchPath+"/sites/"+site)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListApps returns the applications installed on a site.
func (s *BenchService) ListApps(ctx context.Context, site string) ([]string, error) {
	stdout, stderr, err := s.bench(ctx, 30*time.Second, "--site", site, "list-apps")
	if err != nil {
		return nil, fmt.Errorf("list-apps %s failed: %w: %s", site, err, firstLine(stderr))
	}

	var apps []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			apps = append(apps, line)
		}
	}
	return apps, nil
}

// parseLastJSONLine extracts the trailing JSON object from command output
// that may be preceded by warnings and progress noise.
func parseLastJSONLine(output string, v any) error {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}") {
			if err := json.Unmarshal([]byte(line), v); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no JSON object found in output")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
