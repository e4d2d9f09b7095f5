// Package secrets stores exchange API credentials in HashiCorp Vault, with
// an in-memory fallback when Vault is disabled (development and paper
// trading need no real keys).
package secrets

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"signal-trading-bot/config"
)

// Credentials is one exchange API key pair.
type Credentials struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	Exchange  string `json:"exchange"`
}

// Store wraps the Vault KV v2 engine behind a small typed API.
type Store struct {
	client *api.Client
	cfg    config.VaultConfig

	mu    sync.RWMutex
	cache map[string]Credentials // exchange -> credentials
}

// NewStore connects to Vault when enabled; otherwise it degrades to a
// cache-only store.
func NewStore(cfg config.VaultConfig) (*Store, error) {
	store := &Store{
		cfg:   cfg,
		cache: make(map[string]Credentials),
	}
	if !cfg.Enabled {
		return store, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	store.client = client
	return store, nil
}

// Put stores credentials for an exchange.
func (s *Store) Put(ctx context.Context, creds Credentials) error {
	if s.cfg.Enabled {
		payload := map[string]interface{}{
			"data": map[string]interface{}{
				"api_key":    creds.APIKey,
				"secret_key": creds.SecretKey,
				"exchange":   creds.Exchange,
			},
		}
		if _, err := s.client.Logical().WriteWithContext(ctx, s.secretPath(creds.Exchange), payload); err != nil {
			return fmt.Errorf("failed to store credentials in vault: %w", err)
		}
	}

	s.mu.Lock()
	s.cache[creds.Exchange] = creds
	s.mu.Unlock()
	return nil
}

// Get retrieves credentials for an exchange, preferring the cache.
func (s *Store) Get(ctx context.Context, exchange string) (Credentials, error) {
	s.mu.RLock()
	if cached, ok := s.cache[exchange]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	if !s.cfg.Enabled {
		return Credentials{}, fmt.Errorf("credentials for %s not found and vault is disabled", exchange)
	}

	secret, err := s.client.Logical().ReadWithContext(ctx, s.secretPath(exchange))
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return Credentials{}, fmt.Errorf("credentials for %s not found", exchange)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return Credentials{}, fmt.Errorf("invalid secret format for %s", exchange)
	}

	creds := Credentials{
		APIKey:    getString(data, "api_key"),
		SecretKey: getString(data, "secret_key"),
		Exchange:  getString(data, "exchange"),
	}

	s.mu.Lock()
	s.cache[exchange] = creds
	s.mu.Unlock()
	return creds, nil
}

// Delete removes credentials for an exchange.
func (s *Store) Delete(ctx context.Context, exchange string) error {
	s.mu.Lock()
	delete(s.cache, exchange)
	s.mu.Unlock()

	if !s.cfg.Enabled {
		return nil
	}
	if _, err := s.client.Logical().DeleteWithContext(ctx, s.metadataPath(exchange)); err != nil {
		return fmt.Errorf("failed to delete credentials from vault: %w", err)
	}
	return nil
}

// Health checks the Vault connection; always healthy when disabled.
func (s *Store) Health(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	health, err := s.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func (s *Store) secretPath(exchange string) string {
	return fmt.Sprintf("%s/data/trading/%s", s.cfg.MountPath, exchange)
}

func (s *Store) metadataPath(exchange string) string {
	return fmt.Sprintf("%s/metadata/trading/%s", s.cfg.MountPath, exchange)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
