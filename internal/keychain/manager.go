// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain keeps adw's secrets in the OS credential store: the agent
// server bearer token and the audit database DSN. Nothing secret is written
// to the config file.
package keychain

import (
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	mu            sync.Mutex
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("keychain: key not found")

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "adw"

// Keys used for storing secrets in the OS keychain.
const (
	KeyServerToken = "server_token"
	KeyAuditDSN    = "audit_dsn"
)

// Manager provides thread-safe access to the OS keychain.
type Manager struct {
	mu    sync.RWMutex
	store keychainBackend
}

// keychainBackend is the minimal store the manager needs.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// NewManager opens the platform credential store. On macOS the security(1)
// command is preferred over the keyring library.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if b, err := newSecurityBackend(); err == nil {
			return &Manager{store: b}, nil
		}
	}
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing builds a manager over an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{store: ringBackend{ring: ring}}
}

// GetManager returns the process-wide manager, opening it on first use.
// A failed open is retried on the next call.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()
	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return m, nil
}

func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on this OS; set ADW_SERVER_TOKEN instead")
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}
	return keyring.Open(cfg)
}

// ringBackend adapts a keyring.Keyring to keychainBackend.
type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	if err := r.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

func (m *Manager) set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Set(key, value)
}

// get returns ErrNotFound for missing and blank values alike.
func (m *Manager) get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, err := m.store.Get(key)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Manager) remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(key)
}

// SaveServerToken stores the agent server bearer token.
func (m *Manager) SaveServerToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty server token")
	}
	return m.set(KeyServerToken, strings.TrimSpace(token))
}

// LoadServerToken returns the stored bearer token or ErrNotFound.
func (m *Manager) LoadServerToken() (string, error) { return m.get(KeyServerToken) }

// ClearServerToken removes the stored bearer token.
func (m *Manager) ClearServerToken() error { return m.remove(KeyServerToken) }

// SaveAuditDSN stores the Postgres DSN of the interaction audit sink.
func (m *Manager) SaveAuditDSN(dsn string) error { return m.set(KeyAuditDSN, dsn) }

// LoadAuditDSN returns the stored audit DSN or ErrNotFound.
func (m *Manager) LoadAuditDSN() (string, error) { return m.get(KeyAuditDSN) }

// ClearAuditDSN removes the stored audit DSN.
func (m *Manager) ClearAuditDSN() error { return m.remove(KeyAuditDSN) }

// ClearAll removes every adw secret. Missing keys are ignored.
func (m *Manager) ClearAll() error {
	return errors.Join(m.remove(KeyServerToken), m.remove(KeyAuditDSN))
}
