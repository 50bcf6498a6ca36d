package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "local_dev_secret", cfg.JWTSecret)
	require.Equal(t, 30*time.Second, cfg.CacheTTL)
	require.Equal(t, int32(20), cfg.Database.MaxConns)
	require.Equal(t, time.UTC, cfg.Location)
	require.Contains(t, cfg.Database.DSN(), "dbname=seafable")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/sea")
	t.Setenv("CACHE_TTL", "5s")
	t.Setenv("APP_TIMEZONE", "Europe/Lisbon")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@db:5432/sea", cfg.Database.DSN())
	require.Equal(t, 5*time.Second, cfg.CacheTTL)
	require.Equal(t, "Europe/Lisbon", cfg.Location.String())
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "x")
	t.Setenv("SWEEP_INTERVAL", "soon")
	_, err = Load()
	require.ErrorContains(t, err, "SWEEP_INTERVAL")
}
