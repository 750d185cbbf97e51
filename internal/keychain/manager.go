// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe access to the OS
// credential store. It backs the credential vault: API keys referenced by
// api_key_id in server definitions live here, never in the catalog file.
//
// The package supports the macOS Keychain, Windows Credential Manager, and
// the freedesktop Secret Service, with an encrypted file fallback for
// headless hosts where no native store is available.
package keychain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/99designs/keyring"

	"rowbridge/cli/internal/xdg"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
}

// keychainBackend defines the interface for native keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "rowbridge"

// PassphraseEnv names the environment variable that unlocks the encrypted
// file fallback without an interactive prompt.
const PassphraseEnv = "ROWBRIDGE_VAULT_PASSPHRASE"

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try the native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
		// Fall through to the keyring library if the security command fails
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}

	return &Manager{
		ring: ring,
	}, nil
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}

	return globalManager, nil
}

// openRing opens the OS keyring, preferring native platform backends and
// falling back to an encrypted file under the state directory so headless
// hosts still get a vault.
func openRing() (keyring.Keyring, error) {
	stateDir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}

	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowedBackends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		}
	case "windows":
		allowedBackends = []keyring.BackendType{
			keyring.WinCredBackend,
			keyring.FileBackend,
		}
	default:
		allowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		}
	}

	cfg := keyring.Config{
		ServiceName:              ServiceName,
		AllowedBackends:          allowedBackends,
		PassPrefix:               ServiceName,
		LibSecretCollectionName:  "login",
		FileDir:                  filepath.Join(stateDir, "vault"),
		FilePasswordFunc:         filePassword,
		KeychainTrustApplication: true,
	}

	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}

	return keyring.Open(cfg)
}

// filePassword unlocks the encrypted file backend, preferring the
// environment so scripted runs never block on a prompt.
func filePassword(prompt string) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// Set stores a secret under the given identifier.
// This method is thread-safe.
func (m *Manager) Set(id, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Set(id, secret)
	}

	return m.ring.Set(keyring.Item{Key: id, Data: []byte(secret)})
}

// Get retrieves the secret stored under the given identifier.
// This method is thread-safe.
func (m *Manager) Get(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		secret, err := m.backend.Get(id)
		if err != nil {
			return "", err
		}
		if secret == "" {
			return "", errors.New("empty secret")
		}
		return secret, nil
	}

	it, err := m.ring.Get(id)
	if err != nil {
		return "", err
	}
	if len(it.Data) == 0 {
		return "", errors.New("empty secret")
	}
	return string(it.Data), nil
}

// Delete removes the secret stored under the given identifier.
// This method is thread-safe.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Delete(id)
	}

	return m.ring.Remove(id)
}

// Keys lists the identifiers currently stored in the vault.
// The native macOS security backend cannot enumerate entries; callers get
// an explanatory error there.
func (m *Manager) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		return nil, errors.New("the macOS security backend cannot list entries; use `security find-generic-password -a rowbridge`")
	}

	return m.ring.Keys()
}

// Lookup implements the credential vault contract over Get. The keyring
// API is synchronous, so the context is unused.
func (m *Manager) Lookup(_ context.Context, keyID string) (string, error) {
	return m.Get(keyID)
}
