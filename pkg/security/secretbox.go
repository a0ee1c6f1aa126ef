package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrInvalidKeySize    = errors.New("invalid key size")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrEncryptionFailed  = errors.New("encryption failed")
)

const (
	secretBoxSalt       = "journal-backend-signing-secret-v1"
	secretBoxIterations = 100000
)

// SecretBox seals connected-app signing secrets with AES-256-GCM. Each
// ciphertext is bound to a context string (the owning app) through the GCM
// additional data, so a sealed value copied onto another row fails to open.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox derives the sealing key from masterKey with PBKDF2.
func NewSecretBox(masterKey string) (*SecretBox, error) {
	if len(masterKey) < 32 {
		return nil, fmt.Errorf("%w: master key must be at least 32 characters", ErrInvalidKeySize)
	}

	key := pbkdf2.Key([]byte(masterKey), []byte(secretBoxSalt), secretBoxIterations, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}

	return &SecretBox{aead: aead}, nil
}

// Seal encrypts plaintext bound to boundTo and returns base64(nonce|ciphertext).
func (b *SecretBox) Seal(plaintext, boundTo string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty plaintext", ErrEncryptionFailed)
	}

	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: failed to generate nonce: %v", ErrEncryptionFailed, err)
	}

	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), []byte(boundTo))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. boundTo must match the value used when sealing.
func (b *SecretBox) Open(sealed, boundTo string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64 encoding: %v", ErrInvalidCiphertext, err)
	}

	nonceSize := b.aead.NonceSize()
	if len(data) <= nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrInvalidCiphertext)
	}

	plaintext, err := b.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(boundTo))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}
