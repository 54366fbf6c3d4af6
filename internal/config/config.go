// Package config loads process configuration for the server and CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig   `yaml:"server"`
	Media        MediaConfig    `yaml:"media"`
	Oracle       OracleConfig   `yaml:"oracle"`
	Cache        CacheConfig    `yaml:"cache"`
	Database     DatabaseConfig `yaml:"database"`
	Log          LogConfig      `yaml:"log"`
	Instructions []string       `yaml:"instructions"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type MediaConfig struct {
	Dir          string `yaml:"dir"`
	URLPrefix    string `yaml:"url_prefix"`
	UploadExt    string `yaml:"upload_ext"`
	MergedFormat string `yaml:"merged_format"`
	SampleRate   int    `yaml:"sample_rate"`
	Channels     int    `yaml:"channels"`
}

// OracleConfig selects the matcher. Provider is one of openai, gemini or local.
type OracleConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CacheConfig enables the Redis verdict cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path (if non-empty), expands ${VAR} references, applies
// environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(&c.Server.Port, "ECHO_PORT")
	setString(&c.Media.Dir, "ECHO_MEDIA_DIR")
	setString(&c.Oracle.Provider, "ECHO_ORACLE_PROVIDER")
	setString(&c.Oracle.Model, "ECHO_ORACLE_MODEL")
	setString(&c.Oracle.BaseURL, "ECHO_ORACLE_BASE_URL")
	setString(&c.Cache.RedisAddr, "ECHO_REDIS_ADDR")
	setString(&c.Cache.Password, "ECHO_REDIS_PASSWORD")
	setString(&c.Database.Path, "ECHO_DB_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")

	if origins := os.Getenv("ECHO_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}

	if v := os.Getenv("ECHO_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ECHO_REDIS_DB %q: %w", v, err)
		}
		c.Cache.DB = db
	}

	// Provider keys only fill in when the file left api_key empty.
	if c.Oracle.APIKey == "" {
		switch strings.ToLower(c.Oracle.Provider) {
		case "gemini":
			setString(&c.Oracle.APIKey, "GEMINI_API_KEY")
		case "", "openai":
			setString(&c.Oracle.APIKey, "OPENAI_API_KEY")
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Media.Dir == "" {
		c.Media.Dir = "media"
	}
	if c.Media.URLPrefix == "" {
		c.Media.URLPrefix = "/media/"
	}
	if c.Media.UploadExt == "" {
		c.Media.UploadExt = ".webm"
	}
	if c.Media.MergedFormat == "" {
		c.Media.MergedFormat = "mp3"
	}
	if c.Media.SampleRate == 0 {
		c.Media.SampleRate = 48000
	}
	if c.Media.Channels == 0 {
		c.Media.Channels = 1
	}
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = "openai"
	}
	c.Oracle.Provider = strings.ToLower(c.Oracle.Provider)
	if c.Oracle.Timeout == 0 {
		c.Oracle.Timeout = 30 * time.Second
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 10 * time.Minute
	}
	if c.Database.Path == "" {
		c.Database.Path = "echocommand.sqlite3"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case "openai", "gemini", "local":
	default:
		return fmt.Errorf("unknown oracle provider %q (want openai, gemini or local)", c.Oracle.Provider)
	}
	switch c.Media.MergedFormat {
	case "mp3", "wav", "ogg":
	default:
		return fmt.Errorf("unsupported merged format %q", c.Media.MergedFormat)
	}
	if strings.Trim(c.Media.URLPrefix, "/") == "" {
		return fmt.Errorf("url_prefix must name a path below the site root, got %q", c.Media.URLPrefix)
	}
	if !strings.HasPrefix(c.Media.UploadExt, ".") {
		return fmt.Errorf("upload_ext must start with a dot, got %q", c.Media.UploadExt)
	}
	if c.Media.SampleRate < 0 || c.Media.Channels < 0 {
		return fmt.Errorf("invalid audio format %d Hz / %d channels", c.Media.SampleRate, c.Media.Channels)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
