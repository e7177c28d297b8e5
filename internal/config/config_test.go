package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/announce")
	t.Setenv("SESSION_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 500, cfg.MaxMessageLength)
	assert.Equal(t, float64(5), cfg.PublishRate)
	assert.Equal(t, 10, cfg.PublishBurst)
	assert.Empty(t, cfg.PrivilegedUsername)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/announce")
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoadRejectsInvalidMaxMessageLength(t *testing.T) {
	setRequired(t)

	t.Setenv("MAX_MESSAGE_LENGTH", "abc")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("MAX_MESSAGE_LENGTH", "0")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadSeedCredentialsComeInPairs(t *testing.T) {
	setRequired(t)
	t.Setenv("SEED_ADMIN_USERNAME", "Intitech")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_ADMIN_PASSWORD")

	t.Setenv("SEED_ADMIN_PASSWORD", "Admin@123")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Intitech", cfg.SeedAdminUsername)
}

func TestLoadPrivilegedUsername(t *testing.T) {
	setRequired(t)
	t.Setenv("PRIVILEGED_USERNAME", "Intitech")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Intitech", cfg.PrivilegedUsername)
}
