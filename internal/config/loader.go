package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"wxrelay/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("auth.api_token", "API_TOKEN")

	viper.BindEnv("wechat.base_url", "WX_API_BASE_URL")
	viper.BindEnv("wechat.appid", "WX_APPID")
	viper.BindEnv("wechat.secret", "WX_SECRET")
	viper.BindEnv("wechat.userid", "WX_USERID")
	viper.BindEnv("wechat.template_id", "WX_TEMPLATE_ID")
	viper.BindEnv("wechat.redirect_url", "WX_BASE_URL")
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 15)
	viper.SetDefault("server.write_timeout_seconds", 30)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("wechat.base_url", constants.DefaultWechatBaseURL)
	viper.SetDefault("wechat.timeout_seconds", 10)
}
