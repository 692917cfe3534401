package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"social-hub/domain/apperrors"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for deriving the AES key from the configured secret.
const (
	kdfIterations  = 3
	kdfMemoryKiB   = 64 * 1024
	kdfParallelism = 2
	keyLength      = 32
	nonceLength    = 16
)

const defaultKeySalt = "social-hub/token-cipher/v1"

// TokenCipher provides authenticated at-rest encryption for OAuth tokens.
// The key is derived once at construction and held immutable for the process
// lifetime; it never appears in logs or diagnostics.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives a 32-byte key from secret via Argon2id and builds an
// AES-256-GCM cipher with a 16-byte nonce. The secret must be at least 32
// bytes; configuration.ValidateCrypto enforces that before this runs, but the
// check is repeated here so no caller can construct a weak cipher.
func NewTokenCipher(secret, salt string) (*TokenCipher, error) {
	if len(secret) < keyLength {
		return nil, fmt.Errorf("encryption secret too short: need at least %d bytes", keyLength)
	}
	if salt == "" {
		salt = defaultKeySalt
	}
	key := argon2.IDKey([]byte(secret), []byte(salt), kdfIterations, kdfMemoryKiB, kdfParallelism, keyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceLength)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the envelope
// "nonce:tag:ciphertext" with each part base64-encoded. Two calls on the same
// plaintext never produce the same envelope.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	// Seal appends the auth tag after the ciphertext; split them so the
	// envelope parts are unambiguously recoverable.
	tagStart := len(sealed) - c.aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	enc := base64.RawStdEncoding.EncodeToString
	return enc(nonce) + ":" + enc(tag) + ":" + enc(ciphertext), nil
}

// Decrypt parses an envelope produced by Encrypt and opens it, failing closed
// with apperrors.ErrDecryptionFailed on any malformed part or tag mismatch.
func (c *TokenCipher) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 envelope parts, got %d", apperrors.ErrDecryptionFailed, len(parts))
	}

	dec := base64.RawStdEncoding.DecodeString
	nonce, err := dec(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: bad nonce encoding", apperrors.ErrDecryptionFailed)
	}
	tag, err := dec(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: bad tag encoding", apperrors.ErrDecryptionFailed)
	}
	ciphertext, err := dec(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", apperrors.ErrDecryptionFailed)
	}
	if len(nonce) != nonceLength {
		return "", fmt.Errorf("%w: nonce length %d, want %d", apperrors.ErrDecryptionFailed, len(nonce), nonceLength)
	}
	if len(tag) != c.aead.Overhead() {
		return "", fmt.Errorf("%w: tag length %d, want %d", apperrors.ErrDecryptionFailed, len(tag), c.aead.Overhead())
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", apperrors.ErrDecryptionFailed)
	}
	return string(plaintext), nil
}

// IsDecryptionFailure reports whether err came from a failed Decrypt.
func IsDecryptionFailure(err error) bool {
	return errors.Is(err, apperrors.ErrDecryptionFailed)
}
