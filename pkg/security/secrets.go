package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// LinkTokenBytes and SigningSecretBytes are both 256 bits; hex encoding
// makes each a 64 character string.
const (
	LinkTokenBytes     = 32
	SigningSecretBytes = 32
)

// SignaturePrefix is accepted in front of a hex signature.
const SignaturePrefix = "sha256="

var ErrInvalidSignature = errors.New("invalid signature")

// RandomHex returns n bytes from crypto/rand, hex encoded.
func RandomHex(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func NewLinkToken() (string, error) {
	return RandomHex(LinkTokenBytes)
}

func NewSigningSecret() (string, error) {
	return RandomHex(SigningSecretBytes)
}

// HashSecret returns the SHA-256 of a secret as hex. It identifies a secret
// in storage and logs without revealing it.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Sign computes the hex HMAC-SHA256 of payload keyed with secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a hex HMAC-SHA256 signature in constant time.
func VerifySignature(secret string, payload []byte, signature string) error {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), SignaturePrefix)
	given, err := hex.DecodeString(signature)
	if err != nil || len(given) != sha256.Size {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), given) {
		return ErrInvalidSignature
	}
	return nil
}

// MaskSensitiveData masks sensitive data for logging/display
func MaskSensitiveData(data string, showLength int) string {
	if data == "" {
		return ""
	}
	if showLength <= 0 {
		showLength = 4
	}
	if len(data) <= showLength*2 {
		return "***"
	}
	return data[:showLength] + strings.Repeat("*", len(data)-showLength*2) + data[len(data)-showLength:]
}
