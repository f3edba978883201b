// internal/security/vault.go
package security

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WalletKeyPath is where the service wallet's signing key lives
const WalletKeyPath = "blockchain/wallet-private-key"

// ErrSecretNotFound is returned when a provider has no value at the path
var ErrSecretNotFound = errors.New("secret not found")

// VaultProvider defines interface for secret storage backends
type VaultProvider interface {
	GetSecret(ctx context.Context, path string) (string, error)
	SetSecret(ctx context.Context, path, value string) error
	DeleteSecret(ctx context.Context, path string) error
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}

// Vault fronts a provider with a short-lived in-memory cache
type Vault struct {
	provider VaultProvider
	cache    map[string]cachedSecret
	mu       sync.RWMutex
	cacheTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

func NewVault(provider VaultProvider, cacheTTL time.Duration, logger *zap.Logger) *Vault {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Vault{
		provider: provider,
		cache:    make(map[string]cachedSecret),
		cacheTTL: cacheTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// GetWalletKey returns the hex private key of the service wallet
func (v *Vault) GetWalletKey(ctx context.Context) (string, error) {
	return v.GetSecret(ctx, WalletKeyPath)
}

// GetSecret retrieves a secret, serving it from cache while fresh
func (v *Vault) GetSecret(ctx context.Context, path string) (string, error) {
	v.mu.RLock()
	cached, ok := v.cache[path]
	v.mu.RUnlock()
	if ok && v.now().Before(cached.expiresAt) {
		v.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return cached.value, nil
	}

	v.logger.Debug("Fetching secret from provider", zap.String("path", path))
	secret, err := v.provider.GetSecret(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s from vault: %w", path, err)
	}

	v.mu.Lock()
	v.cache[path] = cachedSecret{value: secret, expiresAt: v.now().Add(v.cacheTTL)}
	v.mu.Unlock()

	return secret, nil
}

// SetSecret stores a secret and drops any cached copy
func (v *Vault) SetSecret(ctx context.Context, path, value string) error {
	if err := v.provider.SetSecret(ctx, path, value); err != nil {
		return fmt.Errorf("failed to set secret in vault: %w", err)
	}
	v.invalidate(path)
	v.logger.Info("Secret updated in vault", zap.String("path", path))
	return nil
}

// DeleteSecret removes a secret
func (v *Vault) DeleteSecret(ctx context.Context, path string) error {
	if err := v.provider.DeleteSecret(ctx, path); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	v.invalidate(path)
	v.logger.Info("Secret deleted from vault", zap.String("path", path))
	return nil
}

// ListSecrets lists secret paths under prefix
func (v *Vault) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	return v.provider.ListSecrets(ctx, prefix)
}

// ClearCache drops every cached secret
func (v *Vault) ClearCache() {
	v.mu.Lock()
	v.cache = make(map[string]cachedSecret)
	v.mu.Unlock()
	v.logger.Info("Vault cache cleared")
}

func (v *Vault) invalidate(path string) {
	v.mu.Lock()
	delete(v.cache, path)
	v.mu.Unlock()
}

// NewProvider builds the provider named by kind: "env" or "file"
func NewProvider(kind, fileDir, fileKey string) (VaultProvider, error) {
	switch kind {
	case "", "env":
		return NewEnvVaultProvider(), nil
	case "file":
		return NewFileVaultProvider(fileDir, fileKey)
	}
	return nil, fmt.Errorf("unknown vault provider %q", kind)
}
