package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"cipherchat/internal/apperr"
)

const (
	KeySize   = 32 // AES-256
	NonceSize = 12
	TagSize   = 16
)

// Codec performs authenticated encryption of message bodies with a
// process-wide AES-256-GCM key. Every Encrypt call draws a fresh random
// nonce; the nonce is returned alongside the ciphertext and stored
// separately as the IV column.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec rejects any key that is not exactly 32 bytes. Padding or
// truncating a misconfigured key would silently weaken the deployment,
// so startup must fail instead.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64 ciphertext‖tag plus the
// base64 12-byte IV.
func (c *Codec) Encrypt(plaintext []byte) (ciphertextB64, ivB64 string, err error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("generating nonce: %w", err)
	}
	ct := c.aead.Seal(nil, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ct), base64.StdEncoding.EncodeToString(nonce), nil
}

// Decrypt reverses Encrypt. Any malformed input, truncated ciphertext,
// or tag mismatch yields a Decryption error; the plaintext is never
// partially returned.
func (c *Codec) Decrypt(ciphertextB64, ivB64 string) ([]byte, error) {
	ct, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, apperr.Wrap(apperr.Decryption, "malformed ciphertext", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return nil, apperr.Wrap(apperr.Decryption, "malformed iv", err)
	}
	if len(nonce) != NonceSize {
		return nil, apperr.New(apperr.Decryption, "bad iv length")
	}
	if len(ct) < TagSize {
		return nil, apperr.New(apperr.Decryption, "ciphertext too short")
	}
	plaintext, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Decryption, "decryption failed", err)
	}
	return plaintext, nil
}
