// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is populated once by
// viper and then threaded explicitly through constructors; the enrollment core
// never reaches for ambient global state.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Enroll   EnrollConfig   `mapstructure:"enroll" yaml:"enroll"`
	TOTP     TOTPConfig     `mapstructure:"totp" yaml:"totp"`
	Bulk     BulkConfig     `mapstructure:"bulk" yaml:"bulk"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	BlockResources  bool     `mapstructure:"block_resources" yaml:"block_resources"`

	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ImplicitWait      time.Duration `mapstructure:"implicit_wait" yaml:"implicit_wait"`
}

// ProviderConfig points the stages at the identity-management surface. The
// defaults target the production surface; tests substitute a local server.
type ProviderConfig struct {
	SignInURL   string `mapstructure:"sign_in_url" yaml:"sign_in_url"`
	AccountBase string `mapstructure:"account_base" yaml:"account_base"`
}

// EnrollConfig tunes the per-account enrollment workflow.
type EnrollConfig struct {
	ActionDelay     time.Duration `mapstructure:"action_delay" yaml:"action_delay"`
	PostLoginSettle time.Duration `mapstructure:"post_login_settle" yaml:"post_login_settle"`
	ModalWait       time.Duration `mapstructure:"modal_wait" yaml:"modal_wait"`
	VerifyTimeout   time.Duration `mapstructure:"verify_timeout" yaml:"verify_timeout"`
	ExtractAttempts int           `mapstructure:"extract_attempts" yaml:"extract_attempts"`
	ChallengeRounds int           `mapstructure:"challenge_rounds" yaml:"challenge_rounds"`
	CredentialLabel string        `mapstructure:"credential_label" yaml:"credential_label"`
}

// TOTPConfig configures the one-time-code service.
type TOTPConfig struct {
	APIURL     string        `mapstructure:"api_url" yaml:"api_url"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// BulkConfig tunes the batch scheduler.
type BulkConfig struct {
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size"`
	BatchDelay   time.Duration `mapstructure:"batch_delay" yaml:"batch_delay"`
	StaggerDelay time.Duration `mapstructure:"stagger_delay" yaml:"stagger_delay"`
	// StartRate caps workflow launches per second across all batches.
	StartRate float64 `mapstructure:"start_rate" yaml:"start_rate"`
}

// OutputConfig controls where result files land.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "enroll-cli")
	v.SetDefault("logger.log_file", "logs/enroll.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.block_resources", true)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	v.SetDefault("browser.navigation_timeout", "20s")
	v.SetDefault("browser.implicit_wait", "8s")

	// -- Provider --
	v.SetDefault("provider.sign_in_url", "https://accounts.google.com/signin")
	v.SetDefault("provider.account_base", "https://myaccount.google.com")

	// -- Enrollment --
	v.SetDefault("enroll.action_delay", "500ms")
	v.SetDefault("enroll.post_login_settle", "2s")
	v.SetDefault("enroll.modal_wait", "3s")
	v.SetDefault("enroll.verify_timeout", "10s")
	v.SetDefault("enroll.extract_attempts", 3)
	v.SetDefault("enroll.challenge_rounds", 3)
	v.SetDefault("enroll.credential_label", "enroll-cli")

	// -- TOTP --
	v.SetDefault("totp.api_url", "https://2fa.live/tok")
	v.SetDefault("totp.api_timeout", "5s")

	// -- Bulk --
	v.SetDefault("bulk.batch_size", 3)
	v.SetDefault("bulk.batch_delay", "5s")
	v.SetDefault("bulk.stagger_delay", "500ms")
	v.SetDefault("bulk.start_rate", 2.0)

	// -- Output --
	v.SetDefault("output.dir", "output")
}

// NewDefaultConfig creates a configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the static defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
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
	if c.Bulk.BatchSize <= 0 {
		return fmt.Errorf("bulk.batch_size must be a positive integer")
	}
	if c.Bulk.StartRate <= 0 {
		return fmt.Errorf("bulk.start_rate must be positive")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.Enroll.ExtractAttempts <= 0 {
		return fmt.Errorf("enroll.extract_attempts must be a positive integer")
	}
	if c.Provider.SignInURL == "" || c.Provider.AccountBase == "" {
		return fmt.Errorf("provider.sign_in_url and provider.account_base are required")
	}
	return nil
}
