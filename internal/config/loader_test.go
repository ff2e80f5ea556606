package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
logging:
  level: debug
auth:
  api_token: s3cret
wechat:
  appid: app
  secret: sec
  userid: U1|U2
  template_id: TPL
  redirect_url: https://example.com/view
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "s3cret", cfg.Auth.APIToken)
	assert.Equal(t, "app", cfg.Wechat.AppID)
	assert.Equal(t, "U1|U2", cfg.Wechat.UserID)
	assert.Equal(t, "https://api.weixin.qq.com", cfg.Wechat.BaseURL)
	assert.Equal(t, time.Duration(10), cfg.Wechat.TimeoutSeconds)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  api_token: s3cret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigMissingAPIToken(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.api_token")
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `
auth:
  api_token: from-file
`)

	t.Setenv("API_TOKEN", "from-env")
	t.Setenv("WX_APPID", "env-app")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.APIToken)
	assert.Equal(t, "env-app", cfg.Wechat.AppID)
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantError bool
	}{
		{
			name:      "valid",
			mutate:    func(cfg *Config) {},
			wantError: false,
		},
		{
			name: "bad port",
			mutate: func(cfg *Config) {
				cfg.Server.Port = 0
			},
			wantError: true,
		},
		{
			name: "missing api token",
			mutate: func(cfg *Config) {
				cfg.Auth.APIToken = ""
			},
			wantError: true,
		},
		{
			name: "missing provider base url",
			mutate: func(cfg *Config) {
				cfg.Wechat.BaseURL = ""
			},
			wantError: true,
		},
		{
			name: "non-positive provider timeout",
			mutate: func(cfg *Config) {
				cfg.Wechat.TimeoutSeconds = 0
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{Port: 8080},
				Auth:   AuthConfig{APIToken: "s3cret"},
				Wechat: WechatConfig{
					BaseURL:        "https://api.weixin.qq.com",
					TimeoutSeconds: 10,
				},
			}
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
