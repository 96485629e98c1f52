package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("INCIDENTHUB_DATABASE__URL", "postgres://u:p@localhost:5432/db")
	t.Setenv("INCIDENTHUB_JWT__SECRET_KEY", "secret")
	t.Setenv("INCIDENTHUB_JWT__ACCESS_TOKEN_DURATION", "2h")
	t.Setenv("INCIDENTHUB_CORS__ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("INCIDENTHUB_DATABASE__AUTO_MIGRATE", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@localhost:5432/db", cfg.Database.URL)
	assert.Equal(t, "secret", cfg.JWT.SecretKey)
	assert.Equal(t, 2*time.Hour, cfg.JWT.AccessTokenDuration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Database.AutoMigrate)

	// untouched defaults survive
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: "8181"
  read_timeout: 3s
database:
  url: postgres://file/db
  max_open_conns: 7
log:
  level: debug
  format: json
jwt:
  secret_key: from-file
bootstrap:
  admin_email: admin@example.com
  admin_password: change-me
`)
	t.Setenv("INCIDENTHUB_JWT__SECRET_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres://file/db", cfg.Database.URL)
	assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "from-env", cfg.JWT.SecretKey)
	assert.Equal(t, "admin@example.com", cfg.Bootstrap.AdminEmail)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost/db"
		cfg.JWT.SecretKey = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no database url", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"no jwt secret", func(c *Config) { c.JWT.SecretKey = "" }, "jwt.secret_key"},
		{"zero token duration", func(c *Config) { c.JWT.AccessTokenDuration = 0 }, "access_token_duration"},
		{"admin without password", func(c *Config) { c.Bootstrap.AdminEmail = "a@example.com" }, "admin_password"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
