// Package config provides configuration management for gemini-mcp,
// including loading configuration with precedence, environment variable
// overrides, and get/set/list operations for configuration values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/samihalawa/gemini-image-video-mcp/internal/core"
)

const (
	DefaultPort             = 8080
	DefaultImageModel       = "imagen-4.0-generate-001"
	DefaultVideoModel       = "veo-3.0-generate-001"
	DefaultTextModel        = "gemini-2.5-flash"
	DefaultProgressInterval = 25
	DefaultPollInterval     = 10
	DefaultTimeout          = 600
	DefaultRetryAttempts    = 3
)

// BackendKind selects which generation backend the server talks to.
type BackendKind string

const (
	BackendGemini BackendKind = "gemini"
	BackendOpenAI BackendKind = "openai"
	BackendMock   BackendKind = "mock"
)

func ValidBackends() map[BackendKind]struct{} {
	return map[BackendKind]struct{}{
		BackendGemini: {},
		BackendOpenAI: {},
		BackendMock:   {},
	}
}

func IsValidBackend(backend BackendKind) bool {
	_, ok := ValidBackends()[backend]
	return ok
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

func ValidLogLevels() map[LogLevel]struct{} {
	return map[LogLevel]struct{}{
		LogLevelDebug: {},
		LogLevelInfo:  {},
		LogLevelWarn:  {},
		LogLevelError: {},
		LogLevelFatal: {},
	}
}

func IsValidLogLevel(level LogLevel) bool {
	_, ok := ValidLogLevels()[level]
	return ok
}

type LogFormat string

const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

func ValidLogFormats() map[LogFormat]struct{} {
	return map[LogFormat]struct{}{
		LogFormatPretty: {},
		LogFormatJSON:   {},
	}
}

func IsValidLogFormat(format LogFormat) bool {
	_, ok := ValidLogFormats()[format]
	return ok
}

// Config represents the gemini-mcp configuration: which backend serves
// generation requests, the models to use, and the timing knobs for
// progress ticks, long-running polls, and backend retries.
type Config struct {
	Port    int         `yaml:"port,omitempty" mapstructure:"port"`       // the port to listen on in HTTP mode
	Backend BackendKind `yaml:"backend,omitempty" mapstructure:"backend"` // generation backend: "gemini", "openai", or "mock"
	APIKey  string      `yaml:"api_key,omitempty" mapstructure:"api_key"` // backend API key; GEMINI_API_KEY also binds here
	BaseURL string      `yaml:"base_url,omitempty" mapstructure:"base_url"` // override the backend's default endpoint

	ImageModel string `yaml:"image_model,omitempty" mapstructure:"image_model"` // model for image generation
	VideoModel string `yaml:"video_model,omitempty" mapstructure:"video_model"` // model for video generation
	TextModel  string `yaml:"text_model,omitempty" mapstructure:"text_model"`   // model for text generation and analysis

	ProgressInterval int `yaml:"progress_interval,omitempty" mapstructure:"progress_interval"` // seconds between progress ticks
	PollInterval     int `yaml:"poll_interval,omitempty" mapstructure:"poll_interval"`         // seconds between long-running operation polls
	Timeout          int `yaml:"timeout,omitempty" mapstructure:"timeout"`                     // total seconds one backend call may take
	RetryAttempts    int `yaml:"retry_attempts,omitempty" mapstructure:"retry_attempts"`       // attempts for transient backend failures

	LogFormat LogFormat `yaml:"log_format,omitempty" mapstructure:"log_format"` // the log format, "pretty" or "json"
	LogLevel  LogLevel  `yaml:"log_level,omitempty" mapstructure:"log_level"`   // the log level, "debug", "info", "warn", "error", "fatal"
}

// ProgressTickInterval returns the progress tick interval as a duration.
func (cfg *Config) ProgressTickInterval() time.Duration {
	return time.Duration(cfg.ProgressInterval) * time.Second
}

// PollTickInterval returns the long-running poll interval as a duration.
func (cfg *Config) PollTickInterval() time.Duration {
	return time.Duration(cfg.PollInterval) * time.Second
}

// CallTimeout returns the total budget for one backend call as a duration.
func (cfg *Config) CallTimeout() time.Duration {
	return time.Duration(cfg.Timeout) * time.Second
}

// ConfigValue represents a configuration value with its source
type ConfigValue struct {
	Value  any
	Source string // "env", "project", "user", or "default"
}

// GetHomeDir returns the gemini-mcp home directory (~/.gemini-mcp)
func GetHomeDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".gemini-mcp"), nil
}

// GetUserConfigPath returns the path to the user-specific config file (~/.gemini-mcp/config.yaml)
func GetUserConfigPath() (string, error) {
	home, err := GetHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}

// GetProjectConfigPath returns the path to the project-specific config file
// (./gemini-mcp.yaml) relative to the current working directory
func GetProjectConfigPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return filepath.Join(cwd, "gemini-mcp.yaml"), nil
}

// setupViper configures Viper with defaults, config file locations, and environment variables.
// If configPath is provided (non-empty), loads from that specific path instead of using precedence.
func setupViper(configPath string) error {
	viper.Reset()
	setViperDefaults()
	viper.SetEnvPrefix("GEMINI_MCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// The canonical Google env var works alongside the prefixed one.
	if err := viper.BindEnv("api_key", "GEMINI_MCP_API_KEY", "GEMINI_API_KEY"); err != nil {
		return fmt.Errorf("failed to bind api_key environment variables: %w", err)
	}

	// If specific path provided, load only that file
	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	// Otherwise use precedence: user config first, then project config
	userPath, userErr := GetUserConfigPath()
	if userErr == nil {
		if _, userStatErr := os.Stat(userPath); userStatErr == nil {
			viper.SetConfigFile(userPath)
			if userReadErr := viper.ReadInConfig(); userReadErr != nil {
				zap.L().Debug("Failed to read user config file", zap.String("path", userPath), zap.Error(userReadErr))
			}
		}
	}

	projectPath, projectErr := GetProjectConfigPath()
	if projectErr == nil {
		if _, projectStatErr := os.Stat(projectPath); projectStatErr == nil {
			viper.SetConfigFile(projectPath)
			if projectReadErr := viper.MergeInConfig(); projectReadErr != nil {
				zap.L().Debug("Failed to merge project config file", zap.String("path", projectPath), zap.Error(projectReadErr))
			}
		}
	}

	return nil
}

// setViperDefaults sets default values in Viper
func setViperDefaults() {
	viper.SetDefault("port", DefaultPort)
	viper.SetDefault("backend", string(BackendGemini))
	viper.SetDefault("api_key", "")
	viper.SetDefault("base_url", "")

	viper.SetDefault("image_model", DefaultImageModel)
	viper.SetDefault("video_model", DefaultVideoModel)
	viper.SetDefault("text_model", DefaultTextModel)

	viper.SetDefault("progress_interval", DefaultProgressInterval)
	viper.SetDefault("poll_interval", DefaultPollInterval)
	viper.SetDefault("timeout", DefaultTimeout)
	viper.SetDefault("retry_attempts", DefaultRetryAttempts)

	viper.SetDefault("log_format", string(LogFormatJSON))
	viper.SetDefault("log_level", string(LogLevelInfo))
}

// LoadConfig loads configuration with precedence: project config > user config > defaults.
// Environment variables override config file values.
// If configPath is provided, loads from that specific path instead.
func LoadConfig(configPath string) (*Config, error) {
	if err := setupViper(configPath); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewDefaultConfig returns the configuration with every value at its default.
func NewDefaultConfig() *Config {
	return &Config{
		Port:             DefaultPort,
		Backend:          BackendGemini,
		ImageModel:       DefaultImageModel,
		VideoModel:       DefaultVideoModel,
		TextModel:        DefaultTextModel,
		ProgressInterval: DefaultProgressInterval,
		PollInterval:     DefaultPollInterval,
		Timeout:          DefaultTimeout,
		RetryAttempts:    DefaultRetryAttempts,
		LogFormat:        LogFormatJSON,
		LogLevel:         LogLevelInfo,
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", cfg.Port)
	}

	if !IsValidBackend(cfg.Backend) {
		return fmt.Errorf("backend must be one of: %s, got '%s'", core.JoinMapKeys(ValidBackends()), cfg.Backend)
	}

	if cfg.ImageModel == "" || cfg.VideoModel == "" || cfg.TextModel == "" {
		return fmt.Errorf("image_model, video_model and text_model cannot be empty")
	}

	if cfg.ProgressInterval < 1 {
		return fmt.Errorf("progress_interval must be at least 1 second, got %d", cfg.ProgressInterval)
	}
	if cfg.PollInterval < 1 {
		return fmt.Errorf("poll_interval must be at least 1 second, got %d", cfg.PollInterval)
	}
	if cfg.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", cfg.Timeout)
	}
	if cfg.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1, got %d", cfg.RetryAttempts)
	}

	if cfg.LogFormat != "" && !IsValidLogFormat(cfg.LogFormat) {
		return fmt.Errorf("log_format must be one of: %s, got '%s'", core.JoinMapKeys(ValidLogFormats()), cfg.LogFormat)
	}
	if cfg.LogLevel != "" && !IsValidLogLevel(cfg.LogLevel) {
		return fmt.Errorf("log_level must be one of: %s, got '%s'", core.JoinMapKeys(ValidLogLevels()), cfg.LogLevel)
	}

	return nil
}

// getValueSource determines the source of a config value
func getValueSource(key string) string {
	// Check if environment variable is set
	envKey := "GEMINI_MCP_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	if os.Getenv(envKey) != "" {
		return "env"
	}
	if key == "api_key" && os.Getenv("GEMINI_API_KEY") != "" {
		return "env"
	}

	// Check project config
	projectPath, err := GetProjectConfigPath()
	if err == nil {
		if _, projectStatErr := os.Stat(projectPath); projectStatErr == nil {
			if viper.IsSet(key) {
				// Viper doesn't track source, so we check if the project config has the key
				projectViper := viper.New()
				projectViper.SetConfigFile(projectPath)
				if projectReadErr := projectViper.ReadInConfig(); projectReadErr == nil {
					if projectViper.IsSet(key) {
						return "project"
					}
				}
			}
		}
	}

	// Check user config
	userPath, userErr := GetUserConfigPath()
	if userErr == nil {
		if _, userStatErr := os.Stat(userPath); userStatErr == nil {
			userViper := viper.New()
			userViper.SetConfigFile(userPath)
			if userReadErr := userViper.ReadInConfig(); userReadErr == nil {
				if userViper.IsSet(key) {
					return "user"
				}
			}
		}
	}

	return "default"
}

// GetConfigValue retrieves a configuration value by key, checking environment variables first.
// Returns the value and its source ("env", "project", "user", or "default").
func GetConfigValue(key string) (*ConfigValue, error) {
	if err := setupViper(""); err != nil {
		return nil, err
	}

	// Viper handles defaults, so Get will return default if not set
	value := viper.Get(key)
	if value == nil {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}

	source := getValueSource(key)
	return &ConfigValue{Value: value, Source: source}, nil
}

// SetConfigValue sets a configuration value and saves it to the appropriate config file
func SetConfigValue(key, value string) error {
	// Determine which config file to update
	projectPath, projectErr := GetProjectConfigPath()
	var configPath string

	if projectErr == nil {
		if _, projectStatErr := os.Stat(projectPath); projectStatErr == nil {
			configPath = projectPath
		}
	}

	if configPath == "" {
		// Use user config
		userPath, userErr := GetUserConfigPath()
		if userErr != nil {
			return fmt.Errorf("failed to get user config path: %w", userErr)
		}
		// Ensure directory exists
		configDir := filepath.Dir(userPath)
		// #nosec G301 -- config directory permissions 0755 are acceptable for user config directory
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configPath = userPath
	}

	// Load existing config using Viper
	if err := setupViper(configPath); err != nil {
		// A missing file is fine when writing the first value
		if _, statErr := os.Stat(configPath); statErr == nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		viper.Reset()
		setViperDefaults()
	}

	viper.Set(key, value)

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// #nosec G306 -- config file permissions 0644 are acceptable for user config files
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ListConfig returns all configuration keys and values with their sources
func ListConfig() (map[string]*ConfigValue, error) {
	if err := setupViper(""); err != nil {
		return nil, err
	}

	result := make(map[string]*ConfigValue)

	allSettings := viper.AllSettings()
	for key := range allSettings {
		if _, ok := allSettings[key].(map[string]interface{}); ok {
			continue
		}
		configVal, err := GetConfigValue(key)
		if err != nil {
			continue
		}
		result[key] = configVal
	}

	return result, nil
}
