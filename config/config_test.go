package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(50), cfg.Attach.MaxUploadMB)
	assert.Equal(t, 30, cfg.JWT.AccessTTLMin)
	assert.Equal(t, 720, cfg.JWT.RefreshTTLHours)
}

func TestDSNFromComponents(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: "5433", User: "u", Password: "p",
		DBName: "eventops", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5433/eventops?sslmode=disable", db.DSN())

	db.URL = "postgres://explicit/dsn"
	assert.Equal(t, "postgres://explicit/dsn", db.DSN())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "10")
	t.Setenv("JWT_ACCESS_SECRET", "s1")
	t.Setenv("ATTACH_ROOT", "/srv/attach")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(10), cfg.Attach.MaxUploadMB)
	assert.Equal(t, "s1", cfg.JWT.AccessSecret)
	assert.Equal(t, "/srv/attach", cfg.Attach.Root)
}
