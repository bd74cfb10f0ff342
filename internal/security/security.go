// Package security encrypts exported attendance data and hashes device
// identifiers before they are stored. Tokens are self-contained: the random
// nonce travels with the ciphertext, so only the passphrase is shared state.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// keySalt is fixed so that two services sharing a passphrase derive the
	// same key and can read each other's exports.
	keySalt       = "attendance_salt_2024"
	keyIterations = 100_000
	keyLength     = 32
)

// Codec encrypts and decrypts small payloads with a key derived from a
// passphrase. Safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives an AES-256 key from the passphrase with PBKDF2 and
// prepares an AEAD cipher around it.
func NewCodec(passphrase string) (*Codec, error) {
	if passphrase == "" {
		return nil, errors.New("encryption passphrase must not be empty")
	}

	key := pbkdf2.Key([]byte(passphrase), []byte(keySalt), keyIterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("could not create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("could not create GCM: %w", err)
	}

	return &Codec{aead: aead}, nil
}

// Encrypt seals the plaintext and returns a URL-safe base64 token.
func (c *Codec) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("could not generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. It fails for tokens sealed with
// a different passphrase or modified in transit.
func (c *Codec) Decrypt(token string) ([]byte, error) {
	sealed, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("could not decode token: %w", err)
	}

	return c.OpenBytes(sealed)
}

// SealBytes encrypts the plaintext and returns the raw sealed bytes with the
// nonce prepended. Used for binary columns where base64 would only add bulk.
func (c *Codec) SealBytes(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// OpenBytes decrypts data produced by SealBytes.
func (c *Codec) OpenBytes(sealed []byte) ([]byte, error) {
	if len(sealed) < c.aead.NonceSize() {
		return nil, errors.New("sealed data too short")
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt data: %w", err)
	}

	return plaintext, nil
}

// Hash returns the hex encoded SHA-256 of the input. Used for device
// identifiers that must be comparable but never stored in the clear.
func Hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// HashBytes returns the hex encoded SHA-256 of raw bytes. Face images are
// deduplicated by this digest without ever decrypting the stored copy.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
