package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wl-portal/internal/config"
	"wl-portal/internal/testutil"
)

func TestNewClient_RequiresAddressAndToken(t *testing.T) {
	_, err := NewClient(&config.VaultConfig{Address: "http://127.0.0.1:8200"})
	assert.Error(t, err)

	_, err = NewClient(&config.VaultConfig{Token: "t"})
	assert.Error(t, err)
}

func TestApplySecrets_FillsOnlyEmptyFields(t *testing.T) {
	tv := testutil.SetupVault(t)
	ctx := context.Background()

	vcfg := &config.VaultConfig{
		Enabled:    true,
		Address:    tv.Address,
		Token:      tv.Token,
		KVMount:    "secret",
		SecretPath: "wl-portal",
	}
	client, err := NewClient(vcfg)
	require.NoError(t, err)
	require.NoError(t, client.HealthCheck(ctx))

	_, err = client.client.KVv2("secret").Put(ctx, "wl-portal", map[string]any{
		KeyJWTSecret:       "from-vault-jwt",
		KeyDiscordBotToken: "from-vault-bot",
		KeyAuditIPSalt:     "from-vault-salt",
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "from-env"

	applied, err := client.ApplySecrets(ctx, cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, applied)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "from-vault-bot", cfg.Notify.BotToken)
	assert.Equal(t, "from-vault-salt", cfg.Whitelist.AuditIPSalt)
	assert.Empty(t, cfg.Database.Password)
}

func TestReadSecrets_MissingPath(t *testing.T) {
	tv := testutil.SetupVault(t)

	client, err := NewClient(&config.VaultConfig{
		Address:    tv.Address,
		Token:      tv.Token,
		KVMount:    "secret",
		SecretPath: "does-not-exist",
	})
	require.NoError(t, err)

	_, err = client.ReadSecrets(context.Background())
	assert.Error(t, err)
}
