package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Logging        LoggingConfig
	Auth           AuthConfig
	Wechat         WechatConfig
	CircuitBreaker CircuitBreakerConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	// APIToken is the shared secret callers must present on every request.
	APIToken string `mapstructure:"api_token"`
}

// WechatConfig holds fallback provider settings; any of the message-level
// fields may be overridden per request.
type WechatConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	AppID          string        `mapstructure:"appid"`
	AppSecret      string        `mapstructure:"secret"`
	UserID         string        `mapstructure:"userid"`
	TemplateID     string        `mapstructure:"template_id"`
	RedirectURL    string        `mapstructure:"redirect_url"`
	TimeoutSeconds time.Duration `mapstructure:"timeout_seconds"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
