// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package vault provides authenticated encryption for the local record cache.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Vault seals and opens cache values with XChaCha20-Poly1305.
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault from a 32-byte key.
func New(key []byte) (*Vault, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating AEAD: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// NewFromHex creates a Vault from a hex-encoded 32-byte key, as stored in
// the cache.key configuration value.
func NewFromHex(keyHex string) (*Vault, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding cache key: %w", err)
	}
	return New(key)
}

// GenerateKey returns a new random key as a hex string, suitable for the
// cache.key configuration value.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating cache key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Seal encrypts plaintext. The random nonce is prepended to the ciphertext
// so Open can recover it.
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal. It fails when the key is wrong or
// the data has been tampered with.
func (v *Vault) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < v.aead.NonceSize() {
		return nil, fmt.Errorf("sealed value too short")
	}
	nonce, ciphertext := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("opening sealed value: %w", err)
	}
	return plaintext, nil
}
