package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const (
	DefaultListen      = "localhost:8000"
	DefaultCacheTTL    = 72 * time.Hour
	DefaultLockTimeout = 30 * time.Second

	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Environment variables applied on top of the file.
const (
	EnvMediaCloudAPIKey = "MC_API_KEY"
	EnvTwitterBearer    = "TWITTER_API_BEARER_TOKEN"
	EnvRedisURL         = "CACHE_REDIS_URL"
	EnvListen           = "GLIMPSE_LISTEN"
)

type Config struct {
	Server      ServerConfig `toml:"server"`
	Cache       CacheConfig  `toml:"cache"`
	Credentials Credentials  `toml:"credentials"`
	Endpoints   Endpoints    `toml:"endpoints"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

type CacheConfig struct {
	// Backend is one of redis, sqlite, memory or none.
	Backend     string   `toml:"backend"`
	RedisURL    string   `toml:"redis_url,omitempty"`
	SQLitePath  string   `toml:"sqlite_path,omitempty"`
	TTL         Duration `toml:"ttl"`
	LockTimeout Duration `toml:"lock_timeout"`
}

type Credentials struct {
	MediaCloudAPIKey   string `toml:"mediacloud_api_key,omitempty"`
	TwitterBearerToken string `toml:"twitter_bearer_token,omitempty"`
}

// Endpoints override the base URL of a backend. Empty values keep the
// provider default.
type Endpoints struct {
	MediaCloud       string `toml:"mediacloud,omitempty"`
	Wayback          string `toml:"wayback,omitempty"`
	Twitter          string `toml:"twitter,omitempty"`
	TwitterPushshift string `toml:"twitter_pushshift,omitempty"`
	RedditPushshift  string `toml:"reddit_pushshift,omitempty"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheSQLite
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL = Duration{DefaultCacheTTL}
	}
	if c.Cache.LockTimeout.Duration == 0 {
		c.Cache.LockTimeout = Duration{DefaultLockTimeout}
	}
}

// LoadConfig reads configPath, or returns the defaults when it does not
// exist, then applies the environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}

	config.ApplyEnv(os.Getenv)
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadEnv loads a .env file into the process environment. A missing file
// is not an error; variables already set are kept.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file values with the non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvMediaCloudAPIKey); v != "" {
		c.Credentials.MediaCloudAPIKey = v
	}
	if v := getenv(EnvTwitterBearer); v != "" {
		c.Credentials.TwitterBearerToken = v
	}
	if v := getenv(EnvRedisURL); v != "" {
		c.Cache.RedisURL = v
		if c.Cache.Backend == "" {
			c.Cache.Backend = CacheRedis
		}
	}
	if v := getenv(EnvListen); v != "" {
		c.Server.Listen = v
	}
}

func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache backend redis needs redis_url or %s", EnvRedisURL)
		}
	case CacheSQLite, CacheMemory, CacheNone:
	default:
		return fmt.Errorf("unknown cache backend %q: must be one of redis, sqlite, memory, none", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 || c.Cache.LockTimeout.Duration < 0 {
		return fmt.Errorf("cache durations must not be negative")
	}
	return nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0600)
}

// SaveTemplateConfig writes the commented template with the default
// sqlite cache path filled in.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0600)
}

func (c *Config) generateConfigTemplate() (string, error) {
	cachePath := c.Cache.SQLitePath
	if cachePath == "" {
		var err error
		cachePath, err = GetDefaultCachePath()
		if err != nil {
			return "", fmt.Errorf("getting default cache path: %w", err)
		}
	}

	template := strings.Replace(configTemplate, "/home/user/.local/share/glimpse/cache.db", cachePath, 1)
	return template, nil
}

// GetDefaultStorageDir returns the default data directory
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	glimpseDir := filepath.Join(dataDir, "glimpse")

	if err := os.MkdirAll(glimpseDir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", glimpseDir, err)
	}

	return glimpseDir, nil
}

// GetDefaultCachePath returns the default sqlite cache path in the user's data directory
func GetDefaultCachePath() (string, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(storageDir, "cache.db"), nil
}

// GetConfigDir returns the configuration directory for glimpse
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	glimpseConfigDir := filepath.Join(configDir, "glimpse")

	if err := os.MkdirAll(glimpseConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", glimpseConfigDir, err)
	}

	return glimpseConfigDir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
