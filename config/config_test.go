package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PL_USERNAME", "user@example.com")
	t.Setenv("PL_PASSWORD", "pass")
	t.Setenv("PL_API_KEY", "write-key")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "user@example.com", cfg.Username)
	require.Equal(t, "pass", cfg.Password.Reveal())
	require.Equal(t, "write-key", cfg.APIKey.Reveal())
	require.True(t, cfg.MFAKey.IsZero())
	require.Equal(t, defaultLoginURL, cfg.LoginURL)
	require.Equal(t, 10*time.Second, cfg.PageSettle)
	require.False(t, cfg.ValidateOnly)
	require.True(t, cfg.DoUpdate)
}

func TestFromEnvMissingCredentials(t *testing.T) {
	t.Setenv("PL_USERNAME", "user@example.com")
	t.Setenv("PL_PASSWORD", "")
	t.Setenv("PL_API_KEY", "write-key")

	_, err := FromEnv()
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestFromEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PL_URL", "https://staging.example.com/login")
	t.Setenv("PL_TIME_DELAY", "3")
	t.Setenv("VALIDATE_ONLY", "true")
	t.Setenv("UPDATE_PROJECTIONLAB", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "https://staging.example.com/login", cfg.LoginURL)
	require.Equal(t, 3*time.Second, cfg.PageSettle)
	require.True(t, cfg.ValidateOnly)
	require.False(t, cfg.DoUpdate)
}

func TestFromEnvRejectsBadDelay(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PL_TIME_DELAY", "soon")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnvNormalizesMFAKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PL_MFA_KEY", `"gezd-gnbv gezd"`)

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "GEZDGNBVGEZD", cfg.MFAKey.Reveal())
}

func TestNormalizeMFAKey(t *testing.T) {
	require.Equal(t, "ABCDEF", NormalizeMFAKey("ab cd-ef"))
	require.Equal(t, "ABCD", NormalizeMFAKey(`'AB"CD'`))
	require.Equal(t, "", NormalizeMFAKey(""))
}

func TestConfigFieldsRedactSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PL_MFA_KEY", "SECRETKEY")

	cfg, err := FromEnv()
	require.NoError(t, err)

	for _, field := range cfg.Fields() {
		if s, ok := field.Interface.(interface{ String() string }); ok {
			require.NotContains(t, s.String(), "pass")
			require.NotContains(t, s.String(), "write-key")
			require.NotContains(t, s.String(), "SECRETKEY")
		}
	}
}
