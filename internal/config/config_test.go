package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env.envVar, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "a-test-secret-of-some-length")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, []string{"https://*", "http://*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, "qa-todo-api", cfg.Auth.JWTIssuer)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "qa_todo.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "another-secret-value-123")
	t.Setenv("PORT", "8081")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("BLUEPRINT_DB_HOST", "localhost")
	t.Setenv("BLUEPRINT_DB_PORT", "5432")
	t.Setenv("BLUEPRINT_DB_USERNAME", "todo")
	t.Setenv("BLUEPRINT_DB_PASSWORD", "todo")
	t.Setenv("BLUEPRINT_DB_DATABASE", "todo")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "todo", cfg.Database.Name)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing secret",
			env:  map[string]string{},
		},
		{
			name: "short secret",
			env:  map[string]string{"JWT_SECRET": "short"},
		},
		{
			name: "port out of range",
			env:  map[string]string{"JWT_SECRET": "a-test-secret-of-some-length", "PORT": "70000"},
		},
		{
			name: "unknown driver",
			env:  map[string]string{"JWT_SECRET": "a-test-secret-of-some-length", "DB_DRIVER": "mysql"},
		},
		{
			name: "postgres without host",
			env:  map[string]string{"JWT_SECRET": "a-test-secret-of-some-length", "DB_DRIVER": "postgres"},
		},
		{
			name: "bad log level",
			env:  map[string]string{"JWT_SECRET": "a-test-secret-of-some-length", "LOG_LEVEL": "loud"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
