package config

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capsulewall/capsulewall/pkg/timecapsule"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "capsule", cfg.DBSchema)
	assert.Equal(t, "memory", cfg.DefaultStorageBackend)
	require.Len(t, cfg.StorageBackends, 1)
	assert.Equal(t, "memory", cfg.StorageBackends[0].Type)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *ServerConfig) {},
			wantErr: "",
		},
		{
			name:    "missing port",
			mutate:  func(c *ServerConfig) { c.Port = "" },
			wantErr: "port is required",
		},
		{
			name:    "unknown database type",
			mutate:  func(c *ServerConfig) { c.DatabaseType = "mysql" },
			wantErr: "database_type",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *ServerConfig) { c.DatabaseType = "postgres" },
			wantErr: "database_url is required",
		},
		{
			name:    "default backend not configured",
			mutate:  func(c *ServerConfig) { c.DefaultStorageBackend = "s3" },
			wantErr: "not found in configured backends",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestBuildService(t *testing.T) {
	t.Run("memory config builds a working service", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		svc, err := cfg.BuildService()
		require.NoError(t, err)

		capsule, err := svc.CreateCapsule(context.Background(), timecapsule.CreateCapsuleRequest{
			OwnerID:    uuid.New(),
			UnlockDate: time.Now().AddDate(1, 0, 0),
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, capsule.ID)
	})

	t.Run("filesystem backend builds", func(t *testing.T) {
		cfg := defaults()
		cfg.DefaultStorageBackend = "fs"
		cfg.StorageBackends = []StorageBackendConfig{
			{
				Name: "fs",
				Type: "fs",
				Config: map[string]interface{}{
					"base_dir":   t.TempDir(),
					"url_prefix": "http://localhost:8080/files",
				},
			},
		}
		require.NoError(t, cfg.Validate())

		svc, err := cfg.BuildService()
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("unsupported backend type fails", func(t *testing.T) {
		cfg := defaults()
		cfg.DefaultStorageBackend = "gcs"
		cfg.StorageBackends = []StorageBackendConfig{
			{Name: "gcs", Type: "gcs", Config: map[string]interface{}{}},
		}

		_, err := cfg.BuildService()
		assert.Error(t, err)
	})
}

func TestConfigValueHelpers(t *testing.T) {
	cfg := map[string]interface{}{
		"str":      "hello",
		"bool":     true,
		"bool_str": "true",
		"int":      42,
		"int_str":  "42",
		"float":    42.0,
	}

	assert.Equal(t, "hello", getString(cfg, "str", "fallback"))
	assert.Equal(t, "fallback", getString(cfg, "missing", "fallback"))

	assert.True(t, getBool(cfg, "bool", false))
	assert.True(t, getBool(cfg, "bool_str", false))
	assert.False(t, getBool(cfg, "missing", false))

	assert.Equal(t, 42, getInt(cfg, "int", 0))
	assert.Equal(t, 42, getInt(cfg, "int_str", 0))
	assert.Equal(t, 42, getInt(cfg, "float", 0))
	assert.Equal(t, 7, getInt(cfg, "missing", 7))
}
