package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RuleCfg describes what counts as a stale artifact.
type RuleCfg struct {
	DirNames   []string `yaml:"dir_names" json:"dir_names"`   // Directory names removed recursively (e.g., "__pycache__")
	Extensions []string `yaml:"extensions" json:"extensions"` // File extensions removed (e.g., ".pyc")
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	Dir          string `yaml:"dir" json:"dir"`
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"`
}

type Config struct {
	Roots           []string       `yaml:"roots" json:"roots"`
	Rule            RuleCfg        `yaml:"rule" json:"rule"`
	IntervalMinutes int            `yaml:"interval_minutes" json:"interval_minutes"`
	DryRun          bool           `yaml:"dry_run" json:"dry_run"`
	FailOnError     bool           `yaml:"fail_on_error" json:"fail_on_error"`     // Exit non-zero when any removal failed
	PauseOnExit     bool           `yaml:"pause_on_exit" json:"pause_on_exit"`     // Wait for Enter before exiting (interactive use)
	Prometheus      PrometheusCfg  `yaml:"prometheus" json:"prometheus"`
	Logging         LoggingCfg     `yaml:"logging" json:"logging"`
	ResourceLimits  ResourceLimits `yaml:"resource_limits" json:"resource_limits"`
	NFSTimeout      int            `yaml:"nfs_timeout_seconds" json:"nfs_timeout_seconds"` // Timeout for stat on network mounts
	DatabasePath    string         `yaml:"database_path" json:"database_path"`             // SQLite removal history; empty disables
	ProtectedPaths  []string       `yaml:"protected_paths" json:"protected_paths"`         // Extra paths the validator must never delete
}

var (
	errNoRoots      = errors.New("configuration must specify at least one root")
	errInvalidPath  = errors.New("root must be a non-empty path")
	errEmptyRule    = errors.New("rule must specify dir_names or extensions")
	errBadExtension = errors.New("extension must not be empty")
	errBadDirName   = errors.New("dir_name must not contain a path separator")
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Default returns a config equivalent to running the tool with no arguments:
// sweep the working directory for the conventional Python cache artifacts.
func Default() *Config {
	cfg := &Config{
		Roots: []string{"."},
		Rule: RuleCfg{
			DirNames:   []string{"__pycache__"},
			Extensions: []string{".pyc"},
		},
	}
	// Roots are made absolute during validation.
	return cfg
}

func (c *Config) ValidateAndDefault() error {
	if len(c.Roots) == 0 {
		return errNoRoots
	}

	if len(c.Rule.DirNames) == 0 && len(c.Rule.Extensions) == 0 {
		return errEmptyRule
	}
	for i, name := range c.Rule.DirNames {
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsRune(name, os.PathSeparator) {
			return fmt.Errorf("%w: %q", errBadDirName, c.Rule.DirNames[i])
		}
		c.Rule.DirNames[i] = name
	}
	for i, ext := range c.Rule.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" || ext == "." {
			return errBadExtension
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Rule.Extensions[i] = ext
	}

	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 15
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9290
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}

	if c.NFSTimeout <= 0 {
		c.NFSTimeout = 5
	}

	// ResourceLimits.MaxCPUPercent <= 0 means no throttling.
	// DatabasePath empty means history recording is disabled; no default
	// so a plain one-shot run never writes outside the target tree.

	cleaned := make([]string, 0, len(c.Roots))
	for _, p := range c.Roots {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return err
		}
		cleaned = append(cleaned, cp)
	}
	c.Roots = cleaned

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errInvalidPath
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return filepath.Clean(abs), nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
