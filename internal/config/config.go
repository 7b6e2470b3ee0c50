package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sam-app/cli/internal/utils"
)

const (
	configName = ".sam-cli"
	envPrefix  = "SAM"

	defaultServerURL     = "http://localhost:8080/api/auth"
	defaultTimeout       = 30 * time.Second
	defaultRedirectDelay = 2 * time.Second
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Format  FormatConfig  `yaml:"format" mapstructure:"format"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	OAuth   OAuthConfig   `yaml:"oauth" mapstructure:"oauth"`
}

// ServerConfig contains auth gateway connection settings
type ServerConfig struct {
	URL       string  `yaml:"url" mapstructure:"url"`
	Timeout   string  `yaml:"timeout" mapstructure:"timeout"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// StorageConfig contains durable session storage settings
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FormatConfig contains output formatting settings
type FormatConfig struct {
	Default string `yaml:"default" mapstructure:"default"`
	Colors  bool   `yaml:"colors" mapstructure:"colors"`
}

// LogConfig contains diagnostic logging settings
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// OAuthConfig contains OAuth callback settings
type OAuthConfig struct {
	RedirectDelay string `yaml:"redirect_delay" mapstructure:"redirect_delay"`
}

var (
	globalConfig *Config
	globalViper  *viper.Viper
	debug        bool
	outputFormat string
)

// Initialize loads the configuration from file, creating a default file
// when none exists
func Initialize(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not get home directory: %w", err)
		}

		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(configName)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := createDefaultConfig(); err != nil {
				return nil, fmt.Errorf("could not create default config: %w", err)
			}
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("could not read default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := utils.ValidateServerURL(cfg.Server.URL); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	globalConfig = cfg
	globalViper = v
	return cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.url", d.Server.URL)
	v.SetDefault("server.timeout", d.Server.Timeout)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("format.default", d.Format.Default)
	v.SetDefault("format.colors", d.Format.Colors)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("oauth.redirect_delay", d.OAuth.RedirectDelay)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:       defaultServerURL,
			Timeout:   defaultTimeout.String(),
			RateLimit: 5,
		},
		Storage: StorageConfig{
			Path: filepath.Join("~", ".sam", "storage.json"),
		},
		Format: FormatConfig{
			Default: "table",
			Colors:  true,
		},
		Log: LogConfig{
			Level: "warn",
		},
		OAuth: OAuthConfig{
			RedirectDelay: defaultRedirectDelay.String(),
		},
	}
}

// createDefaultConfig creates a default configuration file
func createDefaultConfig() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(home, configName+".yaml"), data, 0600)
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		globalConfig = Default()
	}
	return globalConfig
}

// Set updates a single key and writes the config file
func Set(key, value string) error {
	if globalViper == nil {
		return fmt.Errorf("configuration not initialized")
	}
	if !globalViper.IsSet(key) {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if key == "server.url" {
		if err := utils.ValidateServerURL(value); err != nil {
			return err
		}
	}

	globalViper.Set(key, value)
	if err := globalViper.Unmarshal(globalConfig); err != nil {
		return fmt.Errorf("could not apply %s: %w", key, err)
	}

	return globalViper.WriteConfig()
}

// ServerTimeout returns the HTTP timeout, falling back to the default
func (c *Config) ServerTimeout() time.Duration {
	return parseDuration(c.Server.Timeout, defaultTimeout)
}

// RedirectDelay returns the delay before leaving a completed OAuth callback
func (c *Config) RedirectDelay() time.Duration {
	return parseDuration(c.OAuth.RedirectDelay, defaultRedirectDelay)
}

// StoragePath returns the storage file path with a leading ~ expanded
func (c *Config) StoragePath() (string, error) {
	p := c.Storage.Path
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// SetDebug sets the debug mode
func SetDebug(enabled bool) {
	debug = enabled
}

// IsDebug returns whether debug mode is enabled
func IsDebug() bool {
	return debug
}

// SetOutputFormat sets the output format
func SetOutputFormat(format string) {
	outputFormat = format
}

// GetOutputFormat returns the current output format
func GetOutputFormat() string {
	if outputFormat != "" {
		return outputFormat
	}
	if globalConfig != nil && globalConfig.Format.Default != "" {
		return globalConfig.Format.Default
	}
	return "table"
}

// LogLevel returns the effective log level
func LogLevel() string {
	if debug {
		return "debug"
	}
	return Get().Log.Level
}
