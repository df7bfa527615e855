package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds client settings shared by all pgxn-client commands.
type Config struct {
	// MirrorURL is the root URL of the PGXN mirror serving the API index.
	MirrorURL string `yaml:"mirror_url"`
	// ReleaseURL is the URL where pgxn-client release manifests and
	// binaries are hosted. Empty disables the selfupdate command.
	ReleaseURL string `yaml:"release_url"`
	// MakeProgram is the make executable used to build distributions.
	MakeProgram string `yaml:"make_program"`
	// SudoProgram is the executable prepended to privileged make invocations.
	SudoProgram string `yaml:"sudo_program"`
	// PgConfig is the pg_config executable used to locate the server installation.
	PgConfig string `yaml:"pg_config"`
	// CacheDir is the directory for cached mirror metadata.
	// Empty means a pgxn-client directory under the user cache dir.
	CacheDir string `yaml:"cache_dir"`
	// Timeout is the duration for HTTP requests against the mirror.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for client settings.
	DefaultConfigFilename = "pgxn-client-settings.yaml"

	// DefaultMirrorURL is the canonical PGXN API mirror.
	DefaultMirrorURL = "https://api.pgxn.org/"

	// DefaultTimeout is the default duration for HTTP requests.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errMirrorRequired is returned when the mirror URL is missing.
	errMirrorRequired = errors.New("mirror URL must be provided")
)

// Default returns settings pointing at the canonical mirror with stock tool names.
func Default() *Config {
	return &Config{
		MirrorURL:   DefaultMirrorURL,
		MakeProgram: "make",
		SudoProgram: "sudo",
		PgConfig:    "pg_config",
		Timeout:     DefaultTimeout,
	}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault reads configuration from the provided path. When path is
// empty and the default settings file does not exist, built-in defaults
// are returned instead of an error. An explicit path must exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && path == "" && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for optional ones.
func Validate(settings *Config) error {
	if settings.MirrorURL == "" {
		return errMirrorRequired
	}

	if _, err := url.ParseRequestURI(settings.MirrorURL); err != nil {
		return fmt.Errorf("invalid mirror URL: %w", err)
	}

	// Fill tool defaults if not specified
	if settings.MakeProgram == "" {
		settings.MakeProgram = "make"
	}

	if settings.SudoProgram == "" {
		settings.SudoProgram = "sudo"
	}

	if settings.PgConfig == "" {
		settings.PgConfig = "pg_config"
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.ReleaseURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.ReleaseURL); err != nil {
		return fmt.Errorf("invalid release URL: %w", err)
	}

	return nil
}
