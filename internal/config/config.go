// Package config loads the store configuration: which relational engine to
// connect to and which content tree to index.
//
// The file format follows the extension: .json, .yaml and .yml are read with
// yaml.v3 (JSON is valid YAML), .hcl with hclsimple. Environment variables
// override file values:
//
//	LECTERN_SERVER    connection descriptor (sqlite:path or postgres://...)
//	LECTERN_USERNAME  database user (postgres only)
//	LECTERN_PASSWORD  database password (postgres only)
//	LECTERN_BASEDIR   content root
//	LECTERN_LANGUAGE  default language tag
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/lectern/api"
)

const DefaultLanguage = "en"

type Config struct {
	Server   string `yaml:"server" hcl:"server,optional"`
	Username string `yaml:"username" hcl:"username,optional"`
	Password string `yaml:"password" hcl:"password,optional"`
	BaseDir  string `yaml:"basedir" hcl:"basedir,optional"`
	// BasePath is the key used by older configuration files.
	BasePath string `yaml:"basepath" hcl:"basepath,optional"`
	Language string `yaml:"language" hcl:"language,optional"`
	// DefaultCaching is accepted for compatibility and has no effect.
	DefaultCaching bool `yaml:"defaultCaching" hcl:"defaultCaching,optional"`
	// SnakeCaching is the default_caching spelling, folded into DefaultCaching.
	SnakeCaching bool `yaml:"default_caching" hcl:"default_caching,optional"`

	// Source is the file the configuration was read from, if any.
	Source string `yaml:"-"`
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result. All failures are *api.ConfigError.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, &api.ConfigError{Path: path, Err: err}
		}
		cfg.Source = path
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &api.ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		return hclsimple.DecodeFile(path, nil, cfg)
	case ".json", ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", ext, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
}

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		"LECTERN_SERVER":   &c.Server,
		"LECTERN_USERNAME": &c.Username,
		"LECTERN_PASSWORD": &c.Password,
		"LECTERN_BASEDIR":  &c.BaseDir,
		"LECTERN_LANGUAGE": &c.Language,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = c.BasePath
	}
	c.DefaultCaching = c.DefaultCaching || c.SnakeCaching
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	// Relative content roots are relative to the config file.
	if c.BaseDir != "" && !filepath.IsAbs(c.BaseDir) && c.Source != "" {
		c.BaseDir = filepath.Join(filepath.Dir(c.Source), c.BaseDir)
	}
}

// Validate reports the first missing required value.
func (c *Config) Validate() error {
	if c.Server == "" {
		return errors.New("server is required")
	}
	if c.BaseDir == "" {
		return errors.New("basedir is required")
	}
	return nil
}

// DSN returns the connection descriptor with credentials merged into
// postgres URLs that do not carry their own.
func (c *Config) DSN() string {
	if c.Username == "" || !isPostgres(c.Server) {
		return c.Server
	}
	u, err := url.Parse(c.Server)
	if err != nil || u.User != nil {
		return c.Server
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	} else {
		u.User = url.User(c.Username)
	}
	return u.String()
}

func isPostgres(server string) bool {
	return strings.HasPrefix(server, "postgres://") || strings.HasPrefix(server, "postgresql://")
}
