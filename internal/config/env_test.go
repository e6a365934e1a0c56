package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 10, cfg.RateLimitPerMinute)
	assert.Equal(t, "/sign-in", cfg.SignInPath)
	assert.Equal(t, "/pricing", cfg.BillingPath)
	assert.Equal(t, ProviderGemini, cfg.LLMProvider)
	assert.False(t, cfg.S3Enabled())
}

func TestLoadConfigRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadConfigRejectsUnknownProvider(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LLM_PROVIDER", "bard")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("GENERATION_TIMEOUT", "30")
	assert.Equal(t, 30*time.Second, getEnvDuration("GENERATION_TIMEOUT", time.Second))

	t.Setenv("GENERATION_TIMEOUT", "2m")
	assert.Equal(t, 2*time.Minute, getEnvDuration("GENERATION_TIMEOUT", time.Second))

	t.Setenv("GENERATION_TIMEOUT", "soon")
	assert.Equal(t, time.Second, getEnvDuration("GENERATION_TIMEOUT", time.Second))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvList("ALLOWED_ORIGINS", nil))
}

func TestLoadClientConfigUsesXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHOIR_HOME", "")
	t.Setenv("CHOIR_TOKEN", "")
	t.Setenv("CHOIR_API_URL", "http://api.example.test/")
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.test", cfg.APIURL)
	assert.Equal(t, filepath.Join(dir, "choir"), cfg.Home)
	assert.Equal(t, filepath.Join(dir, "choir", "session.json"), cfg.SessionPath())
	assert.Empty(t, cfg.Token)
}

func TestClientTokenPersists(t *testing.T) {
	home := filepath.Join(t.TempDir(), "choir")
	t.Setenv("CHOIR_HOME", home)
	t.Setenv("CHOIR_TOKEN", "")

	cfg, err := LoadClientConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.SaveToken("tok-1"))

	info, err := os.Stat(cfg.TokenPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", again.Token)

	t.Setenv("CHOIR_TOKEN", "from-env")
	fromEnv, err := LoadClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", fromEnv.Token)

	require.NoError(t, again.ClearToken())
	require.NoError(t, again.ClearToken())
	_, err = os.Stat(cfg.TokenPath())
	assert.True(t, os.IsNotExist(err))
}
