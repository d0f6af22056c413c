// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig controls the HTTP API surface.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	// Session creation is rate limited because each session is a real
	// browser page.
	CreateRatePerSecond float64 `mapstructure:"create_rate_per_second" yaml:"create_rate_per_second"`
	CreateBurst         int     `mapstructure:"create_burst" yaml:"create_burst"`
}

// BrowserConfig controls the browser process launched by the driver.
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	Args           []string      `mapstructure:"args" yaml:"args"`
	InstallTimeout time.Duration `mapstructure:"install_timeout" yaml:"install_timeout"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// SessionConfig is the session lifecycle and action timing policy.
type SessionConfig struct {
	// IdleThreshold is how long a session may go without a lookup or action
	// before the reaper closes it.
	IdleThreshold time.Duration `mapstructure:"idle_threshold" yaml:"idle_threshold"`
	// ReapInterval is the sweep period of the idle reaper.
	ReapInterval      time.Duration `mapstructure:"reap_interval" yaml:"reap_interval"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ActionTimeout bounds element resolution plus interaction for
	// click/type/select.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// ReadTimeout bounds the text read of verify-text.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	// DefaultWait is used by wait actions that carry no value.
	DefaultWait       time.Duration `mapstructure:"default_wait" yaml:"default_wait"`
	CaptureScreenshot bool          `mapstructure:"capture_screenshot" yaml:"capture_screenshot"`
	// EventLogSize bounds the per-session diagnostic event ring.
	EventLogSize int `mapstructure:"event_log_size" yaml:"event_log_size"`
}

// DatabaseConfig holds the saved-test storage connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// AuthConfig controls the bearer-token middleware.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Secret  string `mapstructure:"secret" yaml:"secret"`
	Issuer  string `mapstructure:"issuer" yaml:"issuer"`
}

// LLMConfig configures the natural-language step generator.
type LLMConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "testforge")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.listen_addr", ":8443")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.create_rate_per_second", 1.0)
	v.SetDefault("server.create_burst", 5)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.install_timeout", "5m")
	v.SetDefault("browser.launch_timeout", "60s")

	// -- Session --
	v.SetDefault("session.idle_threshold", "30m")
	v.SetDefault("session.reap_interval", "5m")
	v.SetDefault("session.navigation_timeout", "30s")
	v.SetDefault("session.action_timeout", "10s")
	v.SetDefault("session.read_timeout", "5s")
	v.SetDefault("session.default_wait", "1s")
	v.SetDefault("session.capture_screenshot", true)
	v.SetDefault("session.event_log_size", 500)

	// -- Auth --
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.issuer", "testforge")

	// -- LLM --
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("database.url", "TESTFORGE_DATABASE_URL")
	v.BindEnv("auth.secret", "TESTFORGE_AUTH_SECRET")
	v.BindEnv("llm.api_key", "TESTFORGE_LLM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Session.IdleThreshold <= 0 {
		return fmt.Errorf("session.idle_threshold must be a positive duration")
	}
	if c.Session.ReapInterval <= 0 {
		return fmt.Errorf("session.reap_interval must be a positive duration")
	}
	if c.Session.ActionTimeout <= 0 || c.Session.NavigationTimeout <= 0 {
		return fmt.Errorf("session action and navigation timeouts must be positive durations")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required but not found. Ensure TESTFORGE_AUTH_SECRET is set")
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required when llm.enabled is true")
	}
	return nil
}
