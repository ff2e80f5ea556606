package config

import (
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic checks the parts of the configuration that must hold for
// the process to start at all. Provider fallbacks are allowed to be empty
// here because every one of them can arrive as a per-request override; their
// completeness is re-checked per request after merging.
func ValidateStatic(cfg *Config) error {
	var errs []error

	if err := validateServer(cfg.Server); err != nil {
		errs = append(errs, err)
	}

	if err := validateAuth(cfg.Auth); err != nil {
		errs = append(errs, err)
	}

	if err := validateWechat(cfg.Wechat); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateAuth(cfg AuthConfig) error {
	if cfg.APIToken == "" {
		return &ValidationError{
			Field:   "auth.api_token",
			Message: "api token is required",
		}
	}

	return nil
}

func validateWechat(cfg WechatConfig) error {
	if cfg.BaseURL == "" {
		return &ValidationError{
			Field:   "wechat.base_url",
			Message: "provider base url is required",
		}
	}

	if cfg.TimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "wechat.timeout_seconds",
			Message: "timeout must be positive",
		}
	}

	return nil
}
