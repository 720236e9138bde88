// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Advisor AdvisorConfig `mapstructure:"advisor" yaml:"advisor"`
	Login   LoginConfig   `mapstructure:"login" yaml:"login"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig tunes the Chromium session driven over CDP.
type BrowserConfig struct {
	Headless     bool     `mapstructure:"headless" yaml:"headless"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
	Args         []string `mapstructure:"args" yaml:"args"`

	// ActionTimeout bounds a single fill/click/type/snapshot primitive.
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`

	// SettleWait is the pause after an action before the page is re-read, so the
	// advisor always reasons about the mutated page, not the pre-action one.
	SettleWait       time.Duration `mapstructure:"settle_wait" yaml:"settle_wait"`
	SubmitSettleWait time.Duration `mapstructure:"submit_settle_wait" yaml:"submit_settle_wait"`
}

// AdvisorProvider identifies a supported completion backend.
type AdvisorProvider string

const (
	ProviderOpenAI AdvisorProvider = "openai"
	ProviderGemini AdvisorProvider = "gemini"
)

// AdvisorConfig configures the AI element-identification service.
type AdvisorConfig struct {
	Provider       AdvisorProvider `mapstructure:"provider" yaml:"provider"`
	Model          string          `mapstructure:"model" yaml:"model"`
	APIKey         string          `mapstructure:"api_key" yaml:"api_key"`
	RequestTimeout time.Duration   `mapstructure:"request_timeout" yaml:"request_timeout"`
	Temperature    float32         `mapstructure:"temperature" yaml:"temperature"`
	MaxMarkupBytes int             `mapstructure:"max_markup_bytes" yaml:"max_markup_bytes"`
}

// LoginConfig carries the target and credentials for a login run.
// Identifier and Secret are only ever sourced from the environment.
type LoginConfig struct {
	URL        string `mapstructure:"url" yaml:"url"`
	Identifier string `mapstructure:"identifier" yaml:"-"`
	Secret     string `mapstructure:"secret" yaml:"-"`
}

// OutputConfig controls where artifacts and screenshots land.
type OutputConfig struct {
	Dir           string `mapstructure:"dir" yaml:"dir"`
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
}

// LoadDotEnv loads a .env file from the working directory if one exists, so
// viper's AutomaticEnv picks the values up. A missing file is not an error.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "loginforge")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.action_timeout", "5s")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.settle_wait", "3s")
	v.SetDefault("browser.submit_settle_wait", "5s")

	// -- Advisor --
	v.SetDefault("advisor.provider", "openai")
	v.SetDefault("advisor.model", "gpt-4o-mini")
	v.SetDefault("advisor.request_timeout", "30s")
	v.SetDefault("advisor.temperature", 0.1)
	v.SetDefault("advisor.max_markup_bytes", 120000)

	// -- Output --
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.screenshot_dir", "output/screenshots")
}

// NewConfigFromViper creates a validated configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("advisor.api_key", "LOGINFORGE_ADVISOR_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("login.identifier", "LOGINFORGE_LOGIN_IDENTIFIER")
	v.BindEnv("login.secret", "LOGINFORGE_LOGIN_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig returns a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	switch c.Advisor.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("advisor.provider must be one of 'openai' or 'gemini', got %q", c.Advisor.Provider)
	}
	if c.Advisor.Model == "" {
		return fmt.Errorf("advisor.model is required")
	}
	if c.Advisor.RequestTimeout <= 0 {
		return fmt.Errorf("advisor.request_timeout must be a positive duration")
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be a positive duration")
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser window dimensions must be positive")
	}
	if c.Advisor.MaxMarkupBytes <= 0 {
		return fmt.Errorf("advisor.max_markup_bytes must be positive")
	}
	return nil
}
