package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/and161185/shopverse/internal/crypto/clientcrypto"
)

const (
	deviceKeyFile = "device.key"
	saltFile      = "device.salt"
)

// Sealed encrypts every value before handing it to the wrapped Storage.
// Each entry uses its own HKDF-derived key and the storage key as AAD,
// so a value copied under another key fails to open.
type Sealed struct {
	inner     Storage
	deviceKey []byte
}

// NewSealed wraps inner with per-entry AEAD using deviceKey.
func NewSealed(inner Storage, deviceKey []byte) (*Sealed, error) {
	if len(deviceKey) != clientcrypto.DeviceKeyLen {
		return nil, fmt.Errorf("device key must be %d bytes", clientcrypto.DeviceKeyLen)
	}
	return &Sealed{inner: inner, deviceKey: deviceKey}, nil
}

// Get opens the value under key.
func (s *Sealed) Get(ctx context.Context, key string) (string, error) {
	enc, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	blob, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("sealed %s: %w", key, err)
	}
	ek, err := clientcrypto.DeriveEntryKey(s.deviceKey, key)
	if err != nil {
		return "", err
	}
	pt, err := clientcrypto.Open(ek, []byte(key), blob)
	if err != nil {
		return "", fmt.Errorf("sealed %s: %w", key, err)
	}
	return string(pt), nil
}

// Set seals value and stores it under key.
func (s *Sealed) Set(ctx context.Context, key, value string) error {
	ek, err := clientcrypto.DeriveEntryKey(s.deviceKey, key)
	if err != nil {
		return err
	}
	blob, err := clientcrypto.Seal(ek, []byte(key), []byte(value))
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(blob))
}

// Remove deletes key from the wrapped store.
func (s *Sealed) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

// DeviceKey returns the sealing key kept in dir. With an empty passphrase a random
// key is created on first use and stored in device.key (0600); otherwise the key is
// derived from the passphrase and a random salt stored in device.salt.
func DeviceKey(dir, passphrase string) ([]byte, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if passphrase == "" {
		return loadOrCreate(filepath.Join(dir, deviceKeyFile), clientcrypto.DeviceKeyLen)
	}
	salt, err := loadOrCreate(filepath.Join(dir, saltFile), clientcrypto.SaltLen)
	if err != nil {
		return nil, err
	}
	return clientcrypto.DeriveDeviceKey([]byte(passphrase), salt), nil
}

func loadOrCreate(path string, n int) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		if len(b) != n {
			return nil, fmt.Errorf("%s: want %d bytes, got %d", filepath.Base(path), n, len(b))
		}
		return b, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	b, err = clientcrypto.Rand(n)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return nil, err
	}
	return b, nil
}
