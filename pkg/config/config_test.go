package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		EnvAppEnv:            "production",
		EnvPort:              "8081",
		EnvRedisURL:          "redis://localhost:6379/0",
		EnvCRMBaseURL:        "https://crm.example.com/services/apexrest",
		EnvCRMTimeout:        "3s",
		EnvGCPProjectID:      "project-123",
		EnvPubSubEventsTopic: "order-events",
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		change  map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults and overrides",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "production", cfg.App.Env)
				assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
				assert.Equal(t, 3*time.Second, cfg.CRM.Timeout)
				assert.Equal(t, 10, cfg.Views.PageSize)
				assert.Equal(t, 10*time.Millisecond, cfg.PubSub.BatchDelay)
				assert.True(t, cfg.PubSub.Enabled(cfg.GCP))
			},
		},
		{
			name:   "cors origins split on commas",
			change: map[string]string{"ORDERDESK_CORS_ORIGINS": "https://a.example,https://b.example"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSOrigins)
			},
		},
		{
			name:   "page size override",
			change: map[string]string{EnvViewsPageSize: "25"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 25, cfg.Views.PageSize)
			},
		},
		{name: "missing app env", change: map[string]string{EnvAppEnv: ""}, wantErr: true},
		{name: "non http base url", change: map[string]string{EnvCRMBaseURL: "ftp://crm.local"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range tt.change {
				env[k] = v
			}
			for k, v := range env {
				t.Setenv(k, v)
				if v == "" {
					require.NoError(t, os.Unsetenv(k))
				}
			}

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	assert.True(t, AppConfig{Env: "DEV"}.IsDev())
	assert.False(t, AppConfig{Env: "DEV"}.IsProd())
	assert.True(t, AppConfig{Env: "prod"}.IsProd())
	assert.False(t, AppConfig{Env: "prod"}.IsDev())
}

func TestEnabledSwitches(t *testing.T) {
	assert.False(t, RedisConfig{}.Enabled())
	assert.True(t, RedisConfig{Address: "localhost:6379"}.Enabled())
	assert.False(t, PubSubConfig{OrderEventsTopic: "events"}.Enabled(GCPConfig{}))
}
