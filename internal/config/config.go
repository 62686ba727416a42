// Package config provides configuration loading and management for the traversal server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/treewalk-labs/git-traverser/internal/workspace"
)

// EnvPrefix is the prefix for environment variables read by the server
const EnvPrefix = "GIT_TRAVERSER"

const (
	// DefaultAddress is the listen address used when none is configured
	DefaultAddress = ":8080"

	// DefaultWorkspaceRoot is the directory working copies are cloned into
	DefaultWorkspaceRoot = "/data/repos"

	// DefaultCloneDepth is the history depth fetched for each working copy
	DefaultCloneDepth = 1

	// apiKeyEnvVar is the fallback environment variable for the API key
	apiKeyEnvVar = "GIT_TRAVERSER_API_KEY" //nolint:gosec // variable name, not a credential
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Address is the listen address of the HTTP server, e.g. ":8080"
	Address string `yaml:"address,omitempty"`

	Auth      *AuthConfig      `yaml:"auth,omitempty"`
	Workspace *WorkspaceConfig `yaml:"workspace,omitempty"`
	Patterns  *PatternsConfig  `yaml:"patterns,omitempty"`
}

// AuthConfig defines bearer token authentication settings
type AuthConfig struct {
	// APIKeyFile is the path to a file containing the API key.
	// This is the recommended approach for production deployments.
	// The file should contain only the key with optional trailing whitespace.
	APIKeyFile string `yaml:"apiKeyFile,omitempty"`
}

// WorkspaceConfig defines where and how working copies are kept
type WorkspaceConfig struct {
	// Root is the directory working copies are cloned into
	Root string `yaml:"root,omitempty"`

	// CachePolicy controls what happens to a working copy after a request:
	// "none" deletes it, "retain" keeps it indefinitely, "retain-with-ttl"
	// keeps it until TTL elapses since the last clone
	CachePolicy string `yaml:"cachePolicy,omitempty"`

	// TTL is the retention duration for the retain-with-ttl policy (e.g. "24h")
	TTL string `yaml:"ttl,omitempty"`

	// CloneDepth is the history depth fetched per clone; 0 means full history
	CloneDepth int `yaml:"cloneDepth,omitempty"`
}

// PatternsConfig overrides the built-in traversal pattern lists
type PatternsConfig struct {
	// Ignore replaces the default ignore pattern list when set
	Ignore []string `yaml:"ignore,omitempty"`

	// Important replaces the default important pattern list when set
	Important []string `yaml:"important,omitempty"`
}

// GetAPIKey returns the API key using the following priority:
// 1. Read from APIKeyFile if specified
// 2. Read from GIT_TRAVERSER_API_KEY environment variable
//
// The key from file will have leading/trailing whitespace trimmed.
func (a *AuthConfig) GetAPIKey() (string, error) {
	if a != nil && a.APIKeyFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(a.APIKeyFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read API key from file %s: %w", a.APIKeyFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envKey := os.Getenv(apiKeyEnvVar); envKey != "" {
		return envKey, nil
	}

	return "", fmt.Errorf(
		"no API key configured: set auth.apiKeyFile or the %s environment variable", apiKeyEnvVar,
	)
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults fills in defaults for everything the file left unset
func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Workspace == nil {
		c.Workspace = &WorkspaceConfig{}
	}
	if c.Workspace.Root == "" {
		c.Workspace.Root = DefaultWorkspaceRoot
	}
	if c.Workspace.CachePolicy == "" {
		c.Workspace.CachePolicy = string(workspace.CachePolicyRetain)
	}
	if c.Workspace.CloneDepth == 0 {
		c.Workspace.CloneDepth = DefaultCloneDepth
	}
}

// GetTTL returns the parsed retention duration, zero when unset
func (w *WorkspaceConfig) GetTTL() time.Duration {
	if w == nil || w.TTL == "" {
		return 0
	}
	d, err := time.ParseDuration(w.TTL)
	if err != nil {
		return 0
	}
	return d
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateWorkspaceConfig(c.Workspace); err != nil {
		return err
	}

	return validatePatternsConfig(c.Patterns)
}

// validateWorkspaceConfig validates the workspace section
func validateWorkspaceConfig(w *WorkspaceConfig) error {
	switch workspace.CachePolicy(w.CachePolicy) {
	case workspace.CachePolicyNone, workspace.CachePolicyRetain:
	case workspace.CachePolicyRetainTTL:
		if w.TTL == "" {
			return fmt.Errorf("workspace: ttl is required for the %s cache policy", w.CachePolicy)
		}
		if _, err := time.ParseDuration(w.TTL); err != nil {
			return fmt.Errorf("workspace: ttl must be a valid duration (e.g., '30m', '24h'): %w", err)
		}
	default:
		return fmt.Errorf("workspace: unknown cache policy %q", w.CachePolicy)
	}

	if w.CloneDepth < 0 {
		return fmt.Errorf("workspace: cloneDepth cannot be negative")
	}

	return nil
}

// validatePatternsConfig validates the pattern override lists
func validatePatternsConfig(p *PatternsConfig) error {
	if p == nil {
		return nil
	}

	for _, pattern := range p.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("patterns: invalid ignore pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range p.Important {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("patterns: invalid important pattern %q: %w", pattern, err)
		}
	}

	return nil
}
