package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "jobsite.yml"

// Config is the top-level jobsite.yml.
type Config struct {
	Version   string          `yaml:"version"`
	Database  DatabaseConfig  `yaml:"database"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Blob      BlobConfig      `yaml:"blob"`
	Events    EventsConfig    `yaml:"events"`
	Log       LogConfig       `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SnapshotsConfig struct {
	Dir  string `yaml:"dir"`
	Auto bool   `yaml:"auto"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

type AuthConfig struct {
	// Secret signs bearer tokens and blob URLs. Empty means an ephemeral
	// secret is generated at startup.
	Secret   string        `yaml:"secret,omitempty"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type BlobConfig struct {
	Root   string        `yaml:"root"`
	URLTTL time.Duration `yaml:"url_ttl"`
}

// EventsConfig enables the redis change feed when RedisAddr is set.
type EventsConfig struct {
	RedisAddr string `yaml:"redis_addr,omitempty"`
	Instance  string `yaml:"instance"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Version:   "1",
		Database:  DatabaseConfig{Path: ".jobsite/jobsite.db"},
		Snapshots: SnapshotsConfig{Dir: ".jobsite/snapshots", Auto: true},
		Server:    ServerConfig{Addr: ":8080", AllowedOrigins: []string{"*"}},
		Auth:      AuthConfig{TokenTTL: 12 * time.Hour},
		Blob:      BlobConfig{Root: ".jobsite/blobs", URLTTL: time.Hour},
		Events:    EventsConfig{Instance: "default"},
		Log:       LogConfig{File: "logs/jobsite.log", Level: "info"},
	}
}

func (c *Config) Validate() error {
	if c.Version != "1" {
		return fmt.Errorf("unsupported config version %q (expected \"1\")", c.Version)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.Secret != "" && len(c.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 characters")
	}
	if c.Blob.Root == "" {
		return fmt.Errorf("blob.root is required")
	}
	if c.Blob.URLTTL <= 0 {
		return fmt.Errorf("blob.url_ttl must be positive, got %s", c.Blob.URLTTL)
	}
	if c.Events.Instance == "" || strings.ContainsAny(c.Events.Instance, ": ") {
		return fmt.Errorf("events.instance must be a non-empty name without ':' or spaces")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Load reads path on top of the defaults, applies JOBSITE_* environment
// overrides (including those in a local .env file) and validates the result.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"JOBSITE_DB_PATH":      &c.Database.Path,
		"JOBSITE_SNAPSHOT_DIR": &c.Snapshots.Dir,
		"JOBSITE_ADDR":         &c.Server.Addr,
		"JOBSITE_SECRET":       &c.Auth.Secret,
		"JOBSITE_BLOB_ROOT":    &c.Blob.Root,
		"JOBSITE_REDIS_ADDR":   &c.Events.RedisAddr,
		"JOBSITE_INSTANCE":     &c.Events.Instance,
		"JOBSITE_LOG_FILE":     &c.Log.File,
		"JOBSITE_LOG_LEVEL":    &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"JOBSITE_TOKEN_TTL": &c.Auth.TokenTTL,
		"JOBSITE_URL_TTL":   &c.Blob.URLTTL,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := os.LookupEnv("JOBSITE_ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

// Write stores the configuration as YAML, used by `jobsite init`.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
