// Package config loads arbor settings from defaults, an optional
// .arbor.yaml, ARBOR_* environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file searched for in the project directory.
const FileName = ".arbor.yaml"

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

// Config is the effective arbor configuration.
type Config struct {
	Output      string        `mapstructure:"output" yaml:"output"`
	Workers     int           `mapstructure:"workers" yaml:"workers"` // 0 means one per CPU
	Languages   []string      `mapstructure:"languages" yaml:"languages"`
	Include     []string      `mapstructure:"include" yaml:"include"`
	Exclude     []string      `mapstructure:"exclude" yaml:"exclude"`
	MaxFileSize int64         `mapstructure:"max_file_size" yaml:"max_file_size"`
	Progress    bool          `mapstructure:"progress" yaml:"progress"`
	Cache       CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Resolve     ResolveConfig `mapstructure:"resolve" yaml:"resolve"`
	Queries     QueriesConfig `mapstructure:"queries" yaml:"queries"`
	Log         LogConfig     `mapstructure:"log" yaml:"log"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // relative paths are under the project root
}

type ResolveConfig struct {
	// TieBreakScript is a .risor file, or builtin:<name> for a bundled
	// policy. Empty selects the compiled nearest-path policy.
	TieBreakScript string `mapstructure:"tie_break_script" yaml:"tie_break_script"`
}

type QueriesConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"` // overrides the embedded query programs
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output:      "dump.lsif",
		MaxFileSize: 1 << 20,
		Progress:    true,
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(".arbor", "cache.db"),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load builds the configuration for a project directory. An explicit path
// must exist; otherwise dir/.arbor.yaml is used when present. Environment
// variables, including those read from dir/.env.local and dir/.env,
// override file values.
func Load(dir, path string) (*Config, error) {
	loadEnvFiles(dir)

	cfg := Default()
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("ARBOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("output", cfg.Output)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("languages", cfg.Languages)
	v.SetDefault("include", cfg.Include)
	v.SetDefault("exclude", cfg.Exclude)
	v.SetDefault("max_file_size", cfg.MaxFileSize)
	v.SetDefault("progress", cfg.Progress)
	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("resolve.tie_break_script", cfg.Resolve.TieBreakScript)
	v.SetDefault("queries.dir", cfg.Queries.Dir)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

// loadEnvFiles reads .env files without overriding variables already set.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env.local", ".env"} {
		file := filepath.Join(dir, name)
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// Validate checks value ranges. Errors wrap ErrInvalid.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("config: %w: workers must be >= 0, got %d", ErrInvalid, c.Workers)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("config: %w: max_file_size must be positive, got %d", ErrInvalid, c.MaxFileSize)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w: log.level: %v", ErrInvalid, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: %w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("config: %w: cache.path is empty", ErrInvalid)
	}
	return nil
}

// CachePath resolves the cache database path against the project root.
func (c *Config) CachePath(root string) string {
	if filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	return filepath.Join(root, c.Cache.Path)
}

// YAML renders the configuration in the .arbor.yaml format.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return out, nil
}

// Logger builds a logrus logger for the configured level and format.
func (c *Config) Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if lvl, err := logrus.ParseLevel(c.Log.Level); err == nil {
		l.SetLevel(lvl)
	}
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return l
}
