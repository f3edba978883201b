// internal/security/providers.go
package security

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// EnvVaultProvider reads secrets from environment variables, for development
// and for deployments that inject secrets as env.
type EnvVaultProvider struct{}

func NewEnvVaultProvider() *EnvVaultProvider {
	return &EnvVaultProvider{}
}

func (p *EnvVaultProvider) GetSecret(ctx context.Context, path string) (string, error) {
	envKey := pathToEnvKey(path)
	value := strings.TrimSpace(os.Getenv(envKey))
	if value == "" {
		return "", fmt.Errorf("%w: %s (env: %s)", ErrSecretNotFound, path, envKey)
	}
	return value, nil
}

func (p *EnvVaultProvider) SetSecret(ctx context.Context, path, value string) error {
	return os.Setenv(pathToEnvKey(path), value)
}

func (p *EnvVaultProvider) DeleteSecret(ctx context.Context, path string) error {
	return os.Unsetenv(pathToEnvKey(path))
}

func (p *EnvVaultProvider) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	return nil, errors.New("listing is not supported by the env vault provider")
}

// FileVaultProvider stores each secret AES-GCM encrypted in <baseDir>/<path>.enc
type FileVaultProvider struct {
	baseDir    string
	encryption *Encryption
	mu         sync.RWMutex
}

const secretFileExt = ".enc"

func NewFileVaultProvider(baseDir, encryptionKey string) (*FileVaultProvider, error) {
	if baseDir == "" {
		return nil, errors.New("file vault directory is required")
	}
	encryption, err := NewEncryption(encryptionKey)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return &FileVaultProvider{
		baseDir:    baseDir,
		encryption: encryption,
	}, nil
}

func (p *FileVaultProvider) GetSecret(ctx context.Context, path string) (string, error) {
	filePath, err := p.filePath(path)
	if err != nil {
		return "", err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	ciphertext, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	plaintext, err := p.encryption.DecryptBytes(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

func (p *FileVaultProvider) SetSecret(ctx context.Context, path, value string) error {
	filePath, err := p.filePath(path)
	if err != nil {
		return err
	}

	ciphertext, err := p.encryption.EncryptBytes([]byte(value))
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, ciphertext, 0600); err != nil {
		return fmt.Errorf("failed to write secret: %w", err)
	}
	return nil
}

func (p *FileVaultProvider) DeleteSecret(ctx context.Context, path string) error {
	filePath, err := p.filePath(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}

// ListSecrets returns the sorted secret paths starting with prefix
func (p *FileVaultProvider) ListSecrets(ctx context.Context, prefix string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var paths []string
	err := filepath.WalkDir(p.baseDir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(file, secretFileExt) {
			return nil
		}
		rel, err := filepath.Rel(p.baseDir, file)
		if err != nil {
			return err
		}
		secretPath := strings.TrimSuffix(filepath.ToSlash(rel), secretFileExt)
		if strings.HasPrefix(secretPath, prefix) {
			paths = append(paths, secretPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// filePath maps a secret path into baseDir, refusing paths that escape it
func (p *FileVaultProvider) filePath(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if path == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret path %q", path)
	}
	return filepath.Join(p.baseDir, clean+secretFileExt), nil
}
