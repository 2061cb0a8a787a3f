// Package config loads native host configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (PIGEON_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. $PIGEON_CONFIG
//  2. $XDG_CONFIG_HOME/pigeon/config.yaml
//  3. ~/.config/pigeon/config.yaml
//
// Nothing here selects the delivery target; the request always names it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "pigeon"

// Config holds all native host configuration.
type Config struct {
	// tmux
	TmuxPath       string `yaml:"tmux_path"`       // empty: probe well-known locations, then PATH
	CommandTimeout string `yaml:"command_timeout"` // Go duration string, e.g. "5s"
	SubmitDelay    string `yaml:"submit_delay"`    // pause between typed text and Enter

	// Logging
	LogLevel      string `yaml:"log_level"` // debug, info, warn, error
	LogFile       string `yaml:"log_file"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`

	// DebugDump writes each request's debug_html payload to the state dir.
	DebugDump bool `yaml:"debug_dump"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// Parsed durations (not from YAML, set after loading)
	CommandTimeoutDuration time.Duration `yaml:"-"`
	SubmitDelayDuration    time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		CommandTimeout: "5s",
		SubmitDelay:    "300ms",
		LogLevel:       "info",
		LogMaxSizeMB:   5,
		LogMaxBackups:  3,
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	path, data, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	mergeEnv(cfg)

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) finalize() error {
	var err error
	cfg.CommandTimeoutDuration, err = parseDuration(cfg.CommandTimeout, 5*time.Second)
	if err != nil {
		return fmt.Errorf("invalid command_timeout %q: %w", cfg.CommandTimeout, err)
	}
	if cfg.CommandTimeoutDuration <= 0 {
		return fmt.Errorf("invalid command_timeout %q: must be positive", cfg.CommandTimeout)
	}
	cfg.SubmitDelayDuration, err = parseDuration(cfg.SubmitDelay, 300*time.Millisecond)
	if err != nil {
		return fmt.Errorf("invalid submit_delay %q: %w", cfg.SubmitDelay, err)
	}
	if cfg.SubmitDelayDuration < 0 {
		return fmt.Errorf("invalid submit_delay %q: must not be negative", cfg.SubmitDelay)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	default:
		return fmt.Errorf("invalid log_level %q (supported: debug, info, warn, error)", cfg.LogLevel)
	}
	return nil
}

// Dir returns the pigeon config directory.
func Dir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// StateDir returns where logs and diagnostic dumps are written.
func StateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", appName), nil
}

// findConfigFile returns the first config file found. No file at all is
// not an error and yields an empty path; an explicit $PIGEON_CONFIG that
// cannot be read is.
func findConfigFile() (string, []byte, error) {
	if explicit := os.Getenv("PIGEON_CONFIG"); explicit != "" {
		data, err := os.ReadFile(explicit)
		if err != nil {
			return "", nil, fmt.Errorf("reading config file %s: %w", explicit, err)
		}
		return explicit, data, nil
	}

	dir, err := Dir()
	if err != nil {
		return "", nil, nil
	}
	path := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return path, data, nil
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.TmuxPath != "" {
		cfg.TmuxPath = file.TmuxPath
	}
	if file.CommandTimeout != "" {
		cfg.CommandTimeout = file.CommandTimeout
	}
	if file.SubmitDelay != "" {
		cfg.SubmitDelay = file.SubmitDelay
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogFile != "" {
		cfg.LogFile = file.LogFile
	}
	if file.LogMaxSizeMB > 0 {
		cfg.LogMaxSizeMB = file.LogMaxSizeMB
	}
	if file.LogMaxBackups > 0 {
		cfg.LogMaxBackups = file.LogMaxBackups
	}
	if file.DebugDump {
		cfg.DebugDump = file.DebugDump
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("PIGEON_TMUX_PATH"); v != "" {
		cfg.TmuxPath = v
	}
	if v := os.Getenv("PIGEON_COMMAND_TIMEOUT"); v != "" {
		cfg.CommandTimeout = v
	}
	if v := os.Getenv("PIGEON_SUBMIT_DELAY"); v != "" {
		cfg.SubmitDelay = v
	}
	if v := os.Getenv("PIGEON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PIGEON_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("PIGEON_DEBUG_DUMP"); v == "true" || v == "1" {
		cfg.DebugDump = true
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
}

// parseDuration parses a duration string. Empty string returns the fallback.
func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// LegacyOverride reports a tmux_target= line in the old flat config file
// (~/.config/pigeon/config). The host never honors it; doctor surfaces it
// so the user can remove it.
func LegacyOverride() (path, value string, found bool) {
	dir, err := Dir()
	if err != nil {
		return "", "", false
	}
	path = filepath.Join(dir, "config")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "tmux_target="); ok {
			if v = strings.TrimSpace(v); v != "" {
				return path, v, true
			}
		}
	}
	return "", "", false
}
