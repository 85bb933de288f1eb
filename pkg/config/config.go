// Package config loads ocaport settings from a YAML file, OCAPORT_* variables
// and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/ocaport/pkg/cache"
)

const (
	configName      = ".ocaport"
	configType      = "yaml"
	envPrefix       = "OCAPORT"
	envKeySeparator = "_"
)

// Sentinel validation errors.
var (
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrEmptyRemote     = errors.New("remote name must not be empty")
	ErrEmptyOrg        = errors.New("upstream organization must not be empty")
	ErrInvalidLRUSize  = errors.New("cache lru size must not be negative")
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Config holds all ocaport settings.
type Config struct {
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Fork      ForkConfig      `mapstructure:"fork"`
	Cache     CacheConfig     `mapstructure:"cache"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Blacklist BlacklistConfig `mapstructure:"blacklist"`
}

// UpstreamConfig names the organization and remote hosting the branches.
type UpstreamConfig struct {
	Org    string `mapstructure:"org"`
	Remote string `mapstructure:"remote"`
}

// ForkConfig names the remote receiving ported branches.
type ForkConfig struct {
	Remote string `mapstructure:"remote"`
}

// CacheConfig controls the user cache.
type CacheConfig struct {
	Directory           string `mapstructure:"directory"`
	LRUSize             int    `mapstructure:"lru_size"`
	Enabled             bool   `mapstructure:"enabled"`
	CompressCommitFiles bool   `mapstructure:"compress_commit_files"`
}

// GitHubConfig controls the hosting API client.
type GitHubConfig struct {
	TokenEnv string `mapstructure:"token_env"`
	APIURL   string `mapstructure:"api_url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// BlacklistConfig holds blacklist settings.
type BlacklistConfig struct {
	EnvFile string `mapstructure:"env_file"`
}

// ForkRemote returns the fork remote, defaulting to the upstream one.
func (c *Config) ForkRemote() string {
	if c.Fork.Remote != "" {
		return c.Fork.Remote
	}

	return c.Upstream.Remote
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise .ocaport.yaml is searched in CWD and $HOME/.config/ocaport.
// Missing config file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(filepath.Join(home, ".config", "ocaport"))
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if strings.TrimSpace(c.Upstream.Remote) == "" {
		return fmt.Errorf("%w: upstream.remote", ErrEmptyRemote)
	}

	if strings.TrimSpace(c.Upstream.Org) == "" {
		return ErrEmptyOrg
	}

	if c.Cache.LRUSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLRUSize, c.Cache.LRUSize)
	}

	return nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("upstream.org", DefaultUpstreamOrg)
	viperCfg.SetDefault("upstream.remote", DefaultUpstreamRemote)
	viperCfg.SetDefault("fork.remote", "")

	viperCfg.SetDefault("cache.enabled", DefaultCacheEnabled)
	viperCfg.SetDefault("cache.directory", cache.DefaultDir())
	viperCfg.SetDefault("cache.compress_commit_files", DefaultCacheCompress)
	viperCfg.SetDefault("cache.lru_size", DefaultCacheLRUSize)

	viperCfg.SetDefault("github.token_env", DefaultGitHubTokenEnv)
	viperCfg.SetDefault("github.api_url", DefaultGitHubAPIURL)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)

	viperCfg.SetDefault("metrics.textfile", "")

	viperCfg.SetDefault("blacklist.env_file", DefaultBlacklistEnvFile)
}
