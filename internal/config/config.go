package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	RootDomain       string `mapstructure:"ROOT_DOMAIN"`
	MasterSite       string `mapstructure:"MASTER_SITE"`
	ERPNextURL       string `mapstructure:"ERPNEXT_URL"`
	MasterAPIKey     string `mapstructure:"MASTER_API_KEY"`
	MasterAPISecret  string `mapstructure:"MASTER_API_SECRET"`
	DatabasePath     string `mapstructure:"DB_PATH"`
	ListenAddr       string `mapstructure:"LISTEN_ADDR"`
	BackendContainer string `mapstructure:"BACKEND_CONTAINER"`
	BenchPath        string `mapstructure:"BENCH_PATH"`
	DBRootPassword   string `mapstructure:"DB_ROOT_PASSWORD"`
	DefaultApps      string `mapstructure:"DEFAULT_APPS"`
	Environment      string `mapstructure:"ENVIRONMENT"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("ROOT_DOMAIN", "avariq.in")
	viper.SetDefault("MASTER_SITE", "erp.localhost")
	viper.SetDefault("ERPNEXT_URL", "http://127.0.0.1:8080")
	viper.SetDefault("DB_PATH", "nexusgate.db")
	viper.SetDefault("LISTEN_ADDR", ":3000")
	viper.SetDefault("BACKEND_CONTAINER", "frappe_docker-backend-1")
	viper.SetDefault("BENCH_PATH", "/home/frappe/frappe-bench")
	viper.SetDefault("DEFAULT_APPS", "nexus_core")
	viper.SetDefault("ENVIRONMENT", "development")

	viper.SetEnvPrefix("NEXUS")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Support fallback loading from a file for secrets if env is not set
	viper.SetConfigFile(".env")
	// Ignore err if .env doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SiteName returns the internal site identifier used by the bench tooling,
// e.g. "acme.avariq.in" in production or "acme.localhost" locally.
func (c *Config) SiteName(subdomain string) string {
	if c.IsProduction() {
		return subdomain + "." + c.RootDomain
	}
	return subdomain + ".localhost"
}

// SiteURL returns the externally reachable address of a tenant site.
func (c *Config) SiteURL(subdomain string) string {
	if c.IsProduction() {
		return "https://" + subdomain + "." + c.RootDomain
	}
	return "http://" + subdomain + ".localhost:8080"
}

// DefaultAppList splits the comma separated DEFAULT_APPS setting.
func (c *Config) DefaultAppList() []string {
	var apps []string
	for _, app := range strings.Split(c.DefaultApps, ",") {
		app = strings.TrimSpace(app)
		if app != "" {
			apps = append(apps, app)
		}
	}
	return apps
}
