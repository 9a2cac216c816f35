// Package storage provides the encrypted local store used by every
// component that persists state: profiles, biometric templates,
// transaction records, and security events.
//
// Every value is sealed with AES-256-GCM before it is written and opened
// on every read, including indexed scans. Index values themselves are
// stored in the clear so lookups work without a full decrypt pass; the
// documents they point at are not.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Codec seals and opens document payloads with AES-256-GCM. A fresh
// 96-bit nonce is drawn for every seal and prepended to the ciphertext.
// One shared codec serves all persistence paths so the encryption
// semantics cannot drift between components.
type Codec struct {
	gcm cipher.AEAD
}

// NewCodec creates a codec from 32 bytes of key material.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	return &Codec{gcm: gcm}, nil
}

// Seal encrypts plaintext and returns nonce||ciphertext.
func (c *Codec) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts nonce||ciphertext produced by Seal. A wrong key or a
// tampered payload fails authentication and returns an error; it never
// yields corrupted plaintext silently.
func (c *Codec) Open(data []byte) ([]byte, error) {
	nonceSize := c.gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, cipherData := data[:nonceSize], data[nonceSize:]

	plaintext, err := c.gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
