package main

import (
	"context"
	"log/slog"
	"time"

	"wl-portal/internal/config"
	"wl-portal/internal/ratelimit"
	"wl-portal/internal/vault"
)

func loadVaultSecrets(cfg *config.Config) error {
	client, err := vault.NewClient(&cfg.Vault)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	applied, err := client.ApplySecrets(ctx, cfg)
	if err != nil {
		return err
	}
	slog.Info("Secrets loaded from Vault", "vault_addr", cfg.Vault.Address, "applied", applied)
	return nil
}

// cleanupLimiter drops idle rate limit buckets until ctx is done
func cleanupLimiter(ctx context.Context, store *ratelimit.MemoryStore, every time.Duration) {
	if every < time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Cleanup()
		}
	}
}
