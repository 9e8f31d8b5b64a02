// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Values come from the
// config file, METAXG_* environment variables and CLI flags, in that order
// of increasing precedence. A .env file in the working directory is loaded
// into the environment first, matching how operators deploy this tool.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Portal     PortalConfig     `mapstructure:"portal" yaml:"portal"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Photos     PhotosConfig     `mapstructure:"photos" yaml:"photos"`
	SharePoint SharePointConfig `mapstructure:"sharepoint" yaml:"sharepoint"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
	Email      EmailConfig      `mapstructure:"email" yaml:"email"`
	Input      InputConfig      `mapstructure:"input" yaml:"input"`
	Updater    UpdaterConfig    `mapstructure:"updater" yaml:"updater"`

	// Run gets its marching orders from CLI flags, not the config file.
	Run RunConfig `mapstructure:"-" yaml:"-"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the Chrome instance driving the portal.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	TypeDelay         time.Duration `mapstructure:"type_delay" yaml:"type_delay"`
}

// PortalConfig identifies the MetaX portal and the credentials used to log in.
// Login and Password only ever come from the environment.
type PortalConfig struct {
	LoginURL      string        `mapstructure:"login_url" yaml:"login_url"`
	ListURL       string        `mapstructure:"list_url" yaml:"list_url"`
	Login         string        `mapstructure:"login" yaml:"-"`
	Password      string        `mapstructure:"password" yaml:"-"`
	ContractValue string        `mapstructure:"contract_value" yaml:"contract_value"`
	CaptchaWait   time.Duration `mapstructure:"captcha_wait" yaml:"captcha_wait"`
	SaveTimeout   time.Duration `mapstructure:"save_timeout" yaml:"save_timeout"`
	SaveReclick   time.Duration `mapstructure:"save_reclick" yaml:"save_reclick"`
	VerifyPages   int           `mapstructure:"verify_pages" yaml:"verify_pages"`
}

// DatabaseConfig holds the HR database connection details.
type DatabaseConfig struct {
	URL        string `mapstructure:"url" yaml:"-"`
	CostCenter int    `mapstructure:"cost_center" yaml:"cost_center"`
	// ExcludedNames lists employees already handled outside the automation.
	ExcludedNames []string `mapstructure:"excluded_names" yaml:"excluded_names"`
}

// PhotosConfig controls the local photo folder and recompression bounds.
type PhotosConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	MaxSizeKB int    `mapstructure:"max_size_kb" yaml:"max_size_kb"`
}

// SharePointConfig points at the photo library shared by the field teams.
type SharePointConfig struct {
	SiteURL      string `mapstructure:"site_url" yaml:"site_url"`
	TenantID     string `mapstructure:"tenant_id" yaml:"tenant_id"`
	ClientID     string `mapstructure:"client_id" yaml:"-"`
	ClientSecret string `mapstructure:"client_secret" yaml:"-"`
	BaseFolder   string `mapstructure:"base_folder" yaml:"base_folder"`
	Concurrency  int    `mapstructure:"concurrency" yaml:"concurrency"`
}

// OutputConfig configures the artifact sink (local plus mirrored public dir).
type OutputConfig struct {
	LocalRoot     string `mapstructure:"local_root" yaml:"local_root"`
	PublicBaseDir string `mapstructure:"public_base_dir" yaml:"public_base_dir"`
	ObjectName    string `mapstructure:"object_name" yaml:"object_name"`
}

// EmailConfig configures the end-of-run summary notification.
type EmailConfig struct {
	SMTPHost string   `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username string   `mapstructure:"username" yaml:"-"`
	Password string   `mapstructure:"password" yaml:"-"`
	From     string   `mapstructure:"from" yaml:"from"`
	To       []string `mapstructure:"to" yaml:"to"`
}

// InputConfig configures the optional manual name-list queue.
type InputConfig struct {
	QueueDir     string        `mapstructure:"queue_dir" yaml:"queue_dir"`
	LockStaleAge time.Duration `mapstructure:"lock_stale_age" yaml:"lock_stale_age"`
}

// UpdaterConfig configures the self-update launcher.
type UpdaterConfig struct {
	InstallDir        string        `mapstructure:"install_dir" yaml:"install_dir"`
	NetworkReleaseDir string        `mapstructure:"network_release_dir" yaml:"network_release_dir"`
	GitHubRepo        string        `mapstructure:"github_repo" yaml:"github_repo"`
	ExeName           string        `mapstructure:"exe_name" yaml:"exe_name"`
	AllowPrerelease   bool          `mapstructure:"allow_prerelease" yaml:"allow_prerelease"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RunConfig holds settings populated from CLI flags for a specific run.
type RunConfig struct {
	InputFile       string
	DryRun          bool
	NoEmail         bool
	RetroactiveDays int
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "metaxg")
	v.SetDefault("logger.log_file", "metaxg.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	// The login flow needs a visible window for the human CAPTCHA step.
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", true)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "60s")
	v.SetDefault("browser.type_delay", "50ms")

	// -- Portal --
	v.SetDefault("portal.login_url", "https://portal.metax.ind.br/SegLogin/")
	v.SetDefault("portal.list_url", "https://portal.metax.ind.br/CredenciamentoLista/Index")
	v.SetDefault("portal.contract_value", "6578")
	v.SetDefault("portal.captcha_wait", "10m")
	v.SetDefault("portal.save_timeout", "90s")
	v.SetDefault("portal.save_reclick", "20s")
	v.SetDefault("portal.verify_pages", 3)

	// -- Database --
	v.SetDefault("database.cost_center", 125)

	// -- Photos --
	v.SetDefault("photos.dir", "fotos_funcionarios")
	v.SetDefault("photos.max_size_kb", 40)

	// -- SharePoint --
	v.SetDefault("sharepoint.concurrency", 4)

	// -- Output --
	v.SetDefault("output.local_root", ".")
	v.SetDefault("output.object_name", "MetaX")

	// -- Email --
	v.SetDefault("email.smtp_port", 587)

	// -- Input --
	v.SetDefault("input.lock_stale_age", "30m")

	// -- Updater --
	v.SetDefault("updater.exe_name", "metaxg.exe")
	v.SetDefault("updater.timeout", "30s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Operators keep credentials in a .env next to the binary. Absence is fine.
	_ = godotenv.Load()

	bindSecretEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// bindSecretEnv binds the credential fields to their legacy environment
// variable names so existing .env files keep working.
func bindSecretEnv(v *viper.Viper) {
	v.BindEnv("portal.login", "METAX_LOGIN")
	v.BindEnv("portal.password", "METAX_PASSWORD")
	v.BindEnv("portal.login_url", "METAX_URL_LOGIN")
	v.BindEnv("database.url", "METAXG_DB_URL", "DB_URL")
	v.BindEnv("sharepoint.site_url", "SHAREPOINT_SITE_URL")
	v.BindEnv("sharepoint.tenant_id", "SHAREPOINT_TENANT_ID")
	v.BindEnv("sharepoint.client_id", "SHAREPOINT_CLIENT_ID")
	v.BindEnv("sharepoint.client_secret", "SHAREPOINT_CLIENT_SECRET")
	v.BindEnv("photos.dir", "PASTA_FOTOS")
	v.BindEnv("email.username", "METAXG_SMTP_USER")
	v.BindEnv("email.password", "METAXG_SMTP_PASSWORD")
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Photos.Dir, &c.Output.LocalRoot, &c.Input.QueueDir, &c.Updater.InstallDir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding path %q: %w", *p, err)
		}
		*p = filepath.Clean(expanded)
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Portal.LoginURL == "" {
		return fmt.Errorf("portal.login_url is a required configuration field")
	}
	if c.Portal.ContractValue == "" {
		return fmt.Errorf("portal.contract_value is a required configuration field")
	}
	if c.Portal.VerifyPages <= 0 {
		return fmt.Errorf("portal.verify_pages must be a positive integer")
	}
	if c.Photos.MaxSizeKB <= 0 {
		return fmt.Errorf("photos.max_size_kb must be a positive integer")
	}
	if c.SharePoint.Concurrency <= 0 {
		return fmt.Errorf("sharepoint.concurrency must be a positive integer")
	}
	if c.Run.RetroactiveDays < 0 {
		return fmt.Errorf("retroactive days cannot be negative")
	}
	return nil
}

// RequireCredentials checks the fields a live portal run cannot do without.
// Kept out of Validate so offline commands (version, launch) stay usable.
func (c *Config) RequireCredentials() error {
	if c.Portal.Login == "" || c.Portal.Password == "" {
		return fmt.Errorf("METAX_LOGIN and METAX_PASSWORD must be set")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (set METAXG_DB_URL)")
	}
	return nil
}

// Hostname is a convenience used by the run manifest.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
