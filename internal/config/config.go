package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration errors. They are fatal and never retried.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all catalogsync configuration.
type Config struct {
	// Where the spreadsheet comes from
	Source SourceConfig `yaml:"source"`

	// Spreadsheet column labels
	Columns ColumnsConfig `yaml:"columns"`

	// Business rules for the decision engine
	Rules RulesConfig `yaml:"rules"`

	// Merchant panel endpoints
	Panel PanelConfig `yaml:"panel"`

	// Chrome launch and session material
	Browser BrowserConfig `yaml:"browser"`

	// Bounded waits
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// Diagnostic artifacts
	Evidence EvidenceConfig `yaml:"evidence"`

	// Spreadsheet name -> panel display name overrides
	Names NamesConfig `yaml:"names"`

	// Run metrics export
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ColumnsConfig maps spreadsheet columns to canonical fields.
type ColumnsConfig struct {
	Name     string `yaml:"name"`
	Quantity string `yaml:"quantity"`
	Status   string `yaml:"status"`
}

// RulesConfig configures the decision engine.
type RulesConfig struct {
	StopSellAtZero bool `yaml:"stop_sell_at_zero"`
}

// PanelConfig configures the merchant web panel.
type PanelConfig struct {
	LoginURL       string   `yaml:"login_url"`
	CatalogURL     string   `yaml:"catalog_url"`
	FallbackURLs   []string `yaml:"fallback_urls"`
	CatalogPattern string   `yaml:"catalog_pattern"` // regexp the landed URL must match
}

// CatalogCandidates returns the primary catalog URL followed by fallbacks,
// without blanks or duplicates.
func (p PanelConfig) CatalogCandidates() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, 1+len(p.FallbackURLs))
	for _, u := range append([]string{p.CatalogURL}, p.FallbackURLs...) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// TimeoutsConfig holds duration strings ("45s", "2m").
type TimeoutsConfig struct {
	Navigation string `yaml:"navigation"` // per catalog URL attempt
	Action     string `yaml:"action"`     // per element wait / click / type
	Item       string `yaml:"item"`       // whole apply of one item
	Pace       string `yaml:"pace"`       // minimum gap between UI interactions
}

// EvidenceConfig configures where diagnostics are written.
type EvidenceConfig struct {
	Dir     string `yaml:"dir"`
	Journal bool   `yaml:"journal"` // sqlite journal of evidence records
}

// NamesConfig configures the optional name map.
type NamesConfig struct {
	File     string `yaml:"file"`
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
}

// MetricsConfig configures run metric export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node_exporter textfile collector path
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:     SourceDrive,
			AuthType: AuthServiceAccount,
		},
		Columns: ColumnsConfig{
			Name:     "Nome",
			Quantity: "Estoque",
			Status:   "Status Venda",
		},
		Rules: RulesConfig{
			StopSellAtZero: true,
		},
		Panel: PanelConfig{
			LoginURL:       "https://portal.ifood.com.br/login",
			CatalogURL:     "https://portal.ifood.com.br/catalog",
			FallbackURLs:   []string{"https://portal.ifood.com.br/menu"},
			CatalogPattern: `(?i)/(catalog|menu|cardapio)`,
		},
		Browser: BrowserConfig{
			Headless:       false,
			ViewportWidth:  1366,
			ViewportHeight: 900,
			SessionFile:    filepath.Join(".catalogsync", "session.json"),
		},
		Timeouts: TimeoutsConfig{
			Navigation: "45s",
			Action:     "8s",
			Item:       "60s",
			Pace:       "400ms",
		},
		Evidence: EvidenceConfig{
			Dir:     "./evidence",
			Journal: true,
		},
		Names: NamesConfig{
			File:     "./map.json",
			RedisKey: "catalogsync:names",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadDotEnv loads .env style files into the process environment. Variables
// already set are kept. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from a YAML file, then applies env overrides.
// A missing file yields defaults plus env overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// ErrConfigExists is returned by Save when the file exists and overwrite is
// not set.
var ErrConfigExists = errors.New("config file already exists")

const starterHeader = "# catalogsync configuration. Environment variables (.env) override these values.\n"

// Save writes the configuration as YAML. Session and credential paths end up
// in the file, so it is created owner-only.
func (c *Config) Save(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if _, err := f.Write(append([]byte(starterHeader), data...)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	return f.Close()
}

// applyEnvOverrides applies environment variable overrides. Names follow the
// .env files operators already use for this tool.
func (c *Config) applyEnvOverrides() {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
			}
		}
	}
	// Flags are on only for "true"; any other value turns them off.
	setBool := func(dst *bool, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = strings.EqualFold(v, "true")
		}
	}

	// Source
	setString(&c.Source.Kind, "SOURCE_KIND")
	setString(&c.Source.FolderID, "GDRIVE_FOLDER_ID")
	setString(&c.Source.AuthType, "GOOGLE_AUTH_TYPE")
	setString(&c.Source.ServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
	setString(&c.Source.OAuthTokenJSON, "GOOGLE_OAUTH_TOKEN_JSON")
	setString(&c.Source.Bucket, "SOURCE_BUCKET")
	setString(&c.Source.Prefix, "SOURCE_PREFIX")
	setString(&c.Source.Region, "AWS_REGION")
	setString(&c.Source.Endpoint, "SOURCE_ENDPOINT")
	setString(&c.Source.LocalDir, "SOURCE_DIR")

	// Columns
	setString(&c.Columns.Name, "COL_PRODUCT")
	setString(&c.Columns.Quantity, "COL_QTY")
	setString(&c.Columns.Status, "COL_STATUS")

	// Rules
	setBool(&c.Rules.StopSellAtZero, "STOP_SELL_AT_ZERO")

	// Panel
	setString(&c.Panel.LoginURL, "IFOOD_LOGIN_URL")
	setString(&c.Panel.CatalogURL, "IFOOD_CATALOG_URL")

	// Browser
	setString(&c.Browser.Strategy, "BROWSER_STRATEGY")
	setString(&c.Browser.UserDataDir, "CHROME_USER_DATA_DIR")
	setString(&c.Browser.Profile, "CHROME_PROFILE")
	setString(&c.Browser.Executable, "CHROME_EXE")
	setString(&c.Browser.SessionFile, "SESSION_FILE")
	setBool(&c.Browser.Headless, "HEADLESS")

	// Outputs
	setString(&c.Evidence.Dir, "EVIDENCE_DIR")
	setString(&c.Names.File, "MAP_FILE")
	setString(&c.Names.RedisURL, "NAME_MAP_REDIS_URL")
	setString(&c.Names.RedisKey, "NAME_MAP_REDIS_KEY")
	setString(&c.Metrics.Textfile, "METRICS_TEXTFILE")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetNavigationTimeout returns the per-attempt navigation timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Timeouts.Navigation, 45*time.Second)
}

// GetActionTimeout returns the per-element wait timeout.
func (c *Config) GetActionTimeout() time.Duration {
	return parseDuration(c.Timeouts.Action, 8*time.Second)
}

// GetItemTimeout returns the timeout for applying one item.
func (c *Config) GetItemTimeout() time.Duration {
	return parseDuration(c.Timeouts.Item, 60*time.Second)
}

// GetPace returns the minimum gap between UI interactions.
func (c *Config) GetPace() time.Duration {
	return parseDuration(c.Timeouts.Pace, 400*time.Millisecond)
}

// Validate checks everything needed by every mode: columns, panel URLs and
// the catalog pattern.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Columns.Name) == "" {
		return fmt.Errorf("%w: columns.name is empty", ErrInvalid)
	}
	if strings.TrimSpace(c.Columns.Quantity) == "" {
		return fmt.Errorf("%w: columns.quantity is empty", ErrInvalid)
	}
	if strings.TrimSpace(c.Columns.Status) == "" {
		return fmt.Errorf("%w: columns.status is empty", ErrInvalid)
	}
	if len(c.Panel.CatalogCandidates()) == 0 {
		return fmt.Errorf("%w: panel.catalog_url is empty", ErrInvalid)
	}
	if c.Panel.CatalogPattern != "" {
		if _, err := regexp.Compile(c.Panel.CatalogPattern); err != nil {
			return fmt.Errorf("%w: panel.catalog_pattern: %v", ErrInvalid, err)
		}
	}
	return c.Logging.Validate()
}
