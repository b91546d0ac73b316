package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STAFF_IDS", "900, 901 ,")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"900", "901"}, cfg.Auth.StaffIDs)
	assert.Equal(t, 3, cfg.Whitelist.MaxAttempts)
	assert.Equal(t, 7*24*time.Hour, cfg.Whitelist.Cooldown)
	assert.Equal(t, 5*time.Second, cfg.Database.LockTimeout)
	assert.Equal(t, "secret", cfg.Vault.KVMount)
	assert.False(t, cfg.Notify.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STAFF_IDS", "900")
	t.Setenv("WL_MAX_ATTEMPTS", "5")
	t.Setenv("WL_COOLDOWN", "48h")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("DISCORD_BOT_TOKEN", "bot")
	t.Setenv("DISCORD_SUSPENSION_ROLE_IDS", "r1,r2,r3")
	t.Setenv("WL_NOTES_MAX_LENGTH", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Whitelist.MaxAttempts)
	assert.Equal(t, 48*time.Hour, cfg.Whitelist.Cooldown)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.True(t, cfg.Notify.Enabled())
	assert.Equal(t, []string{"r1", "r2", "r3"}, cfg.Notify.SuspensionRoleIDs)
	assert.Equal(t, 2000, cfg.Whitelist.NotesMaxLength)
}

func TestLoad_StaticValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing staff", map[string]string{}},
		{"zero attempts", map[string]string{"STAFF_IDS": "1", "WL_MAX_ATTEMPTS": "0"}},
		{"negative cooldown", map[string]string{"STAFF_IDS": "1", "WL_COOLDOWN": "-1h"}},
		{"bad trusted proxy", map[string]string{"STAFF_IDS": "1", "TRUSTED_PROXIES": "10.0.0.0/8,proxy.local"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STAFF_IDS", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestTrustedProxyPrefixes(t *testing.T) {
	cfg := ServerConfig{TrustedProxies: []string{"10.1.2.3/8", "192.0.2.10", "::ffff:198.51.100.1", "2001:db8::/32"}}

	prefixes, err := cfg.TrustedProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 4)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.10/32", prefixes[1].String())
	assert.Equal(t, "198.51.100.1/32", prefixes[2].String())
	assert.Equal(t, "2001:db8::/32", prefixes[3].String())

	none, err := ServerConfig{}.TrustedProxyPrefixes()
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestValidate_RequiresSecrets(t *testing.T) {
	cfg := &Config{
		Auth:      AuthConfig{StaffIDs: []string{"1"}},
		Whitelist: WhitelistConfig{MaxAttempts: 3, Cooldown: time.Hour},
		Database:  DatabaseConfig{LockTimeout: time.Second},
		App:       AppConfig{Env: "production"},
	}
	assert.Error(t, cfg.Validate(), "no token source")

	cfg.Auth.JWKSURL = "https://id.example.com/.well-known/jwks.json"
	assert.Error(t, cfg.Validate(), "production without db password")

	cfg.Database.Password = "pw"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseURL_EscapesCredentials(t *testing.T) {
	c := DatabaseConfig{User: "wl", Password: "p@ss/word", Host: "db", Port: "5432", Name: "wlportal", SSLMode: "disable"}
	assert.Equal(t, "postgres://wl:p%40ss%2Fword@db:5432/wlportal?sslmode=disable", c.URL())
}

func TestIsStaff(t *testing.T) {
	c := &AuthConfig{StaffIDs: []string{"900"}}
	assert.True(t, c.IsStaff("900"))
	assert.False(t, c.IsStaff("901"))
	assert.False(t, c.IsStaff(""))
}
