// Package config provides configuration management for capgenie.
// Values come from built-in defaults, an optional YAML file and CAPGENIE_*
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultPort          = 8788
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".capgenie"
	DefaultVideoWidth    = 1280
	DefaultVideoHeight   = 720
	DefaultProbeTimeout  = 10 * time.Second
	DefaultWatchDebounce = 300 * time.Millisecond

	// EnvPrefix is prepended to every key to form its environment variable.
	EnvPrefix = "CAPGENIE"

	// EnvConfigFile names a config file when --config is not given.
	EnvConfigFile = "CAPGENIE_CONFIG"

	// Journal database filename
	DBFilename = "capgenie.db"
)

// Keys
const (
	KeyLogLevel         = "log_level"
	KeyLogFile          = "log_file"
	KeyDataDir          = "data_dir"
	KeyPort             = "port"
	KeyAPIToken         = "api_token"
	KeyTemplateManifest = "template_manifest"
	KeyTemplateDir      = "template_dir"
	KeyVideoWidth       = "video_width"
	KeyVideoHeight      = "video_height"
	KeyProbeMedia       = "probe_media"
	KeyFFprobePath      = "ffprobe_path"
	KeyProbeTimeout     = "probe_timeout"
	KeyJournalEnabled   = "journal_enabled"
	KeyWatchDebounce    = "watch_debounce"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFile() string
	DataDir() string
	DBPath() string
	APIToken() string
	TemplateManifest() string
	TemplateDir() string
	VideoWidth() int
	VideoHeight() int
	ProbeMedia() bool
	FFprobePath() string
	ProbeTimeout() time.Duration
	JournalEnabled() bool
	WatchDebounce() time.Duration
}

// ViperConfig is the Config backed by a viper instance.
type ViperConfig struct {
	v    *viper.Viper
	file string
}

// New loads configuration. path names a YAML config file; when empty,
// $CAPGENIE_CONFIG is used if set, otherwise only defaults and environment
// variables apply.
func New(path string) (*ViperConfig, error) {
	v := viper.New()
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyDataDir, defaultDataDir())
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyAPIToken, "")
	v.SetDefault(KeyTemplateManifest, "")
	v.SetDefault(KeyTemplateDir, "")
	v.SetDefault(KeyVideoWidth, DefaultVideoWidth)
	v.SetDefault(KeyVideoHeight, DefaultVideoHeight)
	v.SetDefault(KeyProbeMedia, false)
	v.SetDefault(KeyFFprobePath, "")
	v.SetDefault(KeyProbeTimeout, DefaultProbeTimeout)
	v.SetDefault(KeyJournalEnabled, true)
	v.SetDefault(KeyWatchDebounce, DefaultWatchDebounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &ViperConfig{v: v, file: path}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ViperConfig) validate() error {
	var errs []error
	if p := c.Port(); p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid %s: port must be between 1 and 65535", KeyPort))
	}
	if c.VideoWidth() <= 0 || c.VideoHeight() <= 0 {
		errs = append(errs, fmt.Errorf("invalid %s/%s: dimensions must be positive", KeyVideoWidth, KeyVideoHeight))
	}
	switch strings.ToLower(c.LogLevel()) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid %s %q", KeyLogLevel, c.LogLevel()))
	}
	if c.ProbeTimeout() <= 0 {
		errs = append(errs, fmt.Errorf("invalid %s: must be positive", KeyProbeTimeout))
	}
	if c.TemplateManifest() != "" && c.TemplateDir() != "" {
		errs = append(errs, fmt.Errorf("%s and %s are mutually exclusive", KeyTemplateManifest, KeyTemplateDir))
	}
	return errors.Join(errs...)
}

// Set overrides a key, typically from a command-line flag.
func (c *ViperConfig) Set(key string, value any) {
	c.v.Set(key, value)
}

// File returns the config file in use, if any.
func (c *ViperConfig) File() string {
	return c.file
}

func (c *ViperConfig) Port() int {
	return c.v.GetInt(KeyPort)
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *ViperConfig) LogLevel() string {
	return c.v.GetString(KeyLogLevel)
}

// LogFile returns the rotating log file path; empty logs to stdout only.
func (c *ViperConfig) LogFile() string {
	return c.v.GetString(KeyLogFile)
}

// DataDir returns the data directory path
func (c *ViperConfig) DataDir() string {
	return c.v.GetString(KeyDataDir)
}

// DBPath returns the full path to the journal database
func (c *ViperConfig) DBPath() string {
	return filepath.Join(c.DataDir(), DBFilename)
}

func (c *ViperConfig) APIToken() string {
	return c.v.GetString(KeyAPIToken)
}

func (c *ViperConfig) TemplateManifest() string {
	return c.v.GetString(KeyTemplateManifest)
}

func (c *ViperConfig) TemplateDir() string {
	return c.v.GetString(KeyTemplateDir)
}

func (c *ViperConfig) VideoWidth() int {
	return c.v.GetInt(KeyVideoWidth)
}

func (c *ViperConfig) VideoHeight() int {
	return c.v.GetInt(KeyVideoHeight)
}

func (c *ViperConfig) ProbeMedia() bool {
	return c.v.GetBool(KeyProbeMedia)
}

func (c *ViperConfig) FFprobePath() string {
	return c.v.GetString(KeyFFprobePath)
}

func (c *ViperConfig) ProbeTimeout() time.Duration {
	return c.v.GetDuration(KeyProbeTimeout)
}

func (c *ViperConfig) JournalEnabled() bool {
	return c.v.GetBool(KeyJournalEnabled)
}

func (c *ViperConfig) WatchDebounce() time.Duration {
	return c.v.GetDuration(KeyWatchDebounce)
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
