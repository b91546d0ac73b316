package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/api"

	"wl-portal/internal/config"
)

// Secret keys read from the KV entry
const (
	KeyJWTSecret       = "jwt_secret"
	KeyDiscordBotToken = "discord_bot_token"
	KeyAuditIPSalt     = "audit_ip_salt"
	KeyDBPassword      = "db_password"
)

// Client reads application secrets from a Vault KV v2 engine
type Client struct {
	client     *api.Client
	kvMount    string
	secretPath string
}

// NewClient creates a new Vault client
func NewClient(cfg *config.VaultConfig) (*Client, error) {
	if cfg.Address == "" || cfg.Token == "" {
		return nil, errors.New("vault address and token are required")
	}

	apiConfig := api.DefaultConfig()
	apiConfig.Address = cfg.Address

	client, err := api.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{
		client:     client,
		kvMount:    cfg.KVMount,
		secretPath: cfg.SecretPath,
	}, nil
}

// ReadSecrets returns the string values stored at the configured path
func (c *Client) ReadSecrets(ctx context.Context) (map[string]string, error) {
	secret, err := c.client.KVv2(c.kvMount).Get(ctx, c.secretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", c.kvMount, c.secretPath, err)
	}

	out := make(map[string]string, len(secret.Data))
	for k, v := range secret.Data {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}

// ApplySecrets fills secrets that the environment left empty. Values set in
// the environment win so local overrides keep working.
func (c *Client) ApplySecrets(ctx context.Context, cfg *config.Config) (int, error) {
	secrets, err := c.ReadSecrets(ctx)
	if err != nil {
		return 0, err
	}

	applied := 0
	fill := func(dst *string, key string) {
		if *dst == "" && secrets[key] != "" {
			*dst = secrets[key]
			applied++
		}
	}
	fill(&cfg.Auth.JWTSecret, KeyJWTSecret)
	fill(&cfg.Notify.BotToken, KeyDiscordBotToken)
	fill(&cfg.Whitelist.AuditIPSalt, KeyAuditIPSalt)
	fill(&cfg.Database.Password, KeyDBPassword)

	return applied, nil
}

// HealthCheck reports whether Vault is reachable and unsealed
func (c *Client) HealthCheck(ctx context.Context) error {
	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return errors.New("vault is sealed")
	}
	return nil
}
