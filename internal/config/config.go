package config

// Package config loads the daemon configuration: which trees to expire, the
// space target, how often to run, and where state and logs live.
// Values come from a JSON file with FSX_* environment overrides.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fs-expire/internal/expire"
	"fs-expire/internal/policy"
	"fs-expire/internal/units"

	"github.com/spf13/viper"
)

const (
	DefaultMode             = "keep"
	DefaultSize             = "10GB"
	DefaultPolicy           = "lru"
	DefaultInterval         = "10m"
	DefaultDebounceDuration = "5s"
	DefaultLogMaxSize       = "10MB"
	DefaultLogMaxBackups    = 5
)

// JournalConfig enables journal rotation after each scheduled run.
// Rotation is skipped while Prefix is empty.
type JournalConfig struct {
	Prefix string `json:"prefix" mapstructure:"prefix"`
	Root   string `json:"root" mapstructure:"root"`
	Skip   int    `json:"skip" mapstructure:"skip"`
	Keep   int    `json:"keep" mapstructure:"keep"`
}

type Config struct {
	Targets          []string      `json:"targets" mapstructure:"targets"`
	Mode             string        `json:"mode" mapstructure:"mode"` // delete, ensure-free or keep
	Size             string        `json:"size" mapstructure:"size"`
	Policy           string        `json:"policy" mapstructure:"policy"`
	DryRun           bool          `json:"dry_run" mapstructure:"dry_run"`
	Interval         string        `json:"interval" mapstructure:"interval"`
	DebounceDuration string        `json:"debounce_duration" mapstructure:"debounce_duration"`
	Watch            bool          `json:"watch" mapstructure:"watch"`
	LogPath          string        `json:"log_path" mapstructure:"log_path"`
	LogMaxSize       string        `json:"log_max_size" mapstructure:"log_max_size"`
	LogMaxBackups    int           `json:"log_max_backups" mapstructure:"log_max_backups"`
	DBPath           string        `json:"db_path" mapstructure:"db_path"`
	Journal          JournalConfig `json:"journal" mapstructure:"journal"`
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("targets", []string{})
	v.SetDefault("mode", DefaultMode)
	v.SetDefault("size", DefaultSize)
	v.SetDefault("policy", DefaultPolicy)
	v.SetDefault("dry_run", false)
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("debounce_duration", DefaultDebounceDuration)
	v.SetDefault("watch", true)
	v.SetDefault("log_path", filepath.Join(dir, "fsx.log"))
	v.SetDefault("log_max_size", DefaultLogMaxSize)
	v.SetDefault("log_max_backups", DefaultLogMaxBackups)
	v.SetDefault("db_path", filepath.Join(dir, "fsx.db"))
	v.SetDefault("journal.prefix", "")
	v.SetDefault("journal.root", "")
	v.SetDefault("journal.skip", 1)
	v.SetDefault("journal.keep", -1)
}

// Load reads the config at path. A missing file yields the defaults.
// Relative log and database paths are resolved against the config's directory.
func Load(path string) (*Config, error) {
	dir := filepath.Dir(path)

	v := viper.New()
	setDefaults(v, dir)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("FSX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if cfg.LogPath != "" && !filepath.IsAbs(cfg.LogPath) {
		cfg.LogPath = filepath.Join(dir, cfg.LogPath)
	}
	if !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(dir, cfg.DBPath)
	}

	return cfg, nil
}

// Save writes cfg as indented JSON.
func Save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}

// Constraint parses Mode and Size.
func (c *Config) Constraint() (expire.Constraint, error) {
	n, err := units.Parse(c.Size)
	if err != nil {
		return expire.Constraint{}, err
	}
	switch c.Mode {
	case "delete":
		return expire.DeleteBytes(n), nil
	case "ensure-free":
		return expire.EnsureFreeBytes(n), nil
	case "keep":
		return expire.KeepAtMostBytes(n), nil
	default:
		return expire.Constraint{}, fmt.Errorf("unknown mode %q (want delete, ensure-free or keep)", c.Mode)
	}
}

// EvictionPolicy parses Policy.
func (c *Config) EvictionPolicy() (policy.Policy, error) {
	return policy.Parse(c.Policy)
}

// IntervalDuration parses Interval.
func (c *Config) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	return d, nil
}

// Debounce parses DebounceDuration.
func (c *Config) Debounce() (time.Duration, error) {
	d, err := time.ParseDuration(c.DebounceDuration)
	if err != nil {
		return 0, fmt.Errorf("invalid debounce duration: %w", err)
	}
	return d, nil
}

// LogMaxBytes parses LogMaxSize.
func (c *Config) LogMaxBytes() (int64, error) {
	return units.Parse(c.LogMaxSize)
}

// Validate checks every field that needs parsing, so the daemon fails at
// start rather than at its first tick.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return errors.New("no targets configured")
	}
	if _, err := c.Constraint(); err != nil {
		return err
	}
	if _, err := c.EvictionPolicy(); err != nil {
		return err
	}
	if _, err := c.IntervalDuration(); err != nil {
		return err
	}
	if _, err := c.Debounce(); err != nil {
		return err
	}
	if _, err := c.LogMaxBytes(); err != nil {
		return err
	}
	return nil
}
