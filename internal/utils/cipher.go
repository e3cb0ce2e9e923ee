package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	nonceLength  = 12
	gcmTagLength = 16
)

// ErrIntegrity indicates that a stored card number blob failed authentication:
// the GCM tag did not verify, the blob is too short to contain a nonce and
// tag, or the encoding itself is broken. It signals corruption or tampering
// and must be surfaced distinctly, never mapped to "not found".
var ErrIntegrity = errors.New("card number ciphertext failed integrity check")

// PANCipher encrypts and decrypts full card numbers with AES-GCM. The key is
// process-wide and immutable; a fresh random nonce is generated on every
// Encrypt call and prepended to the ciphertext, so a stored blob decrypts
// self-contained.
type PANCipher struct {
	aead cipher.AEAD
}

// NewPANCipher creates a cipher from an AES key. Key length is validated at
// construction so a misconfigured key fails startup, not a request.
func NewPANCipher(key []byte) (*PANCipher, error) {
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("PAN encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &PANCipher{aead: aead}, nil
}

// Encrypt encrypts a card number and returns base64(nonce || ciphertext || tag).
func (c *PANCipher) Encrypt(pan string) (string, error) {
	if pan == "" {
		return "", fmt.Errorf("card number is empty")
	}

	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext+tag to the nonce, producing the combined blob.
	combined := c.aead.Seal(nonce, nonce, []byte(pan), nil)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// Decrypt reverses Encrypt. Returns ErrIntegrity when the blob is not valid
// base64, is truncated, or fails tag verification.
func (c *PANCipher) Decrypt(encoded string) (string, error) {
	combined, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrIntegrity
	}
	if len(combined) < nonceLength+gcmTagLength {
		return "", ErrIntegrity
	}

	nonce := combined[:nonceLength]
	ciphertext := combined[nonceLength:]

	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plain), nil
}
