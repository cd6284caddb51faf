package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all intercept configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Identity of this tool as a receiver; its own entries are excluded
	// from resolution counts.
	Identity IdentityConfig `yaml:"identity"`

	// Component catalog used for resolution
	Catalog CatalogConfig `yaml:"catalog"`

	// Inbound envelopes and outbound replies
	Inbox InboxConfig `yaml:"inbox"`

	// Resend target
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Persistent history
	Journal JournalConfig `yaml:"journal"`

	// Console appearance
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// IdentityConfig names the host package.
type IdentityConfig struct {
	SelfPackage string `yaml:"self_package"`
	SelfLabel   string `yaml:"self_label"`
}

// CatalogConfig configures the YAML component catalog.
type CatalogConfig struct {
	Dir string `yaml:"dir"`
}

// InboxConfig configures the envelope directories.
type InboxConfig struct {
	Dir      string `yaml:"dir"`
	Outbox   string `yaml:"outbox"`
	Debounce string `yaml:"debounce"`
}

// DispatchConfig configures how edited intents are sent.
type DispatchConfig struct {
	Mode    string `yaml:"mode"` // adb, outbox
	ADBPath string `yaml:"adb_path"`
	Serial  string `yaml:"serial"`
	Timeout string `yaml:"timeout"`
}

// JournalConfig configures the sqlite journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// UIConfig configures the console.
type UIConfig struct {
	Theme string `yaml:"theme"` // auto, dark, light
}

// Dispatch modes.
const (
	DispatchADB    = "adb"
	DispatchOutbox = "outbox"
)

// ValidDispatchModes lists all supported dispatch modes.
var ValidDispatchModes = []string{DispatchADB, DispatchOutbox}

// ValidThemes lists all supported UI themes.
var ValidThemes = []string{"auto", "dark", "light"}

// DefaultDir is the per-user state directory, ~/.intercept.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".intercept"
	}
	return filepath.Join(home, ".intercept")
}

// DefaultConfigPath is where Load looks when no --config is given.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return defaultConfigIn(DefaultDir())
}

func defaultConfigIn(dir string) *Config {
	return &Config{
		Name:    "intercept",
		Version: "1.0.0",

		Identity: IdentityConfig{
			SelfPackage: "uk.co.ashtonbrsc.android.intentintercept",
			SelfLabel:   "Intent Intercept",
		},

		Catalog: CatalogConfig{
			Dir: filepath.Join(dir, "catalog"),
		},

		Inbox: InboxConfig{
			Dir:      filepath.Join(dir, "inbox"),
			Outbox:   filepath.Join(dir, "outbox"),
			Debounce: "200ms",
		},

		Dispatch: DispatchConfig{
			Mode:    DispatchADB,
			ADBPath: "adb",
			Timeout: "15s",
		},

		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "journal.db"),
		},

		UI: UIConfig{
			Theme: "auto",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    filepath.Join(dir, "logs"),
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if pkg := os.Getenv("INTERCEPT_SELF_PACKAGE"); pkg != "" {
		c.Identity.SelfPackage = pkg
	}

	// Same variable adb itself honours
	if serial := os.Getenv("ANDROID_SERIAL"); serial != "" {
		c.Dispatch.Serial = serial
	}
	if adb := os.Getenv("INTERCEPT_ADB"); adb != "" {
		c.Dispatch.ADBPath = adb
	}

	if path := os.Getenv("INTERCEPT_JOURNAL"); path != "" {
		c.Journal.Path = path
	}

	switch strings.ToLower(os.Getenv("INTERCEPT_DARK_MODE")) {
	case "1", "true", "yes":
		c.UI.Theme = "dark"
	case "0", "false", "no":
		c.UI.Theme = "light"
	}
}

// GetDispatchTimeout returns the dispatch timeout as a duration.
func (c *Config) GetDispatchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Dispatch.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// GetInboxDebounce returns the inbox debounce window as a duration.
func (c *Config) GetInboxDebounce() time.Duration {
	d, err := time.ParseDuration(c.Inbox.Debounce)
	if err != nil || d < 0 {
		return 200 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Identity.SelfPackage == "" {
		return fmt.Errorf("identity.self_package not configured (set INTERCEPT_SELF_PACKAGE)")
	}
	if !contains(ValidDispatchModes, c.Dispatch.Mode) {
		return fmt.Errorf("invalid dispatch mode: %s (valid: %v)", c.Dispatch.Mode, ValidDispatchModes)
	}
	if c.Dispatch.Mode == DispatchADB && c.Dispatch.ADBPath == "" {
		return fmt.Errorf("dispatch.adb_path is empty")
	}
	if c.Dispatch.Mode == DispatchOutbox && c.Inbox.Outbox == "" {
		return fmt.Errorf("inbox.outbox is empty")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is empty")
	}
	if !contains(ValidThemes, c.UI.Theme) {
		return fmt.Errorf("invalid ui theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
