// Package crypto encrypts datasource connection configs at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("invalid encryption key: must not be empty")
	// ErrDecryptionFailed is returned when the ciphertext is malformed or
	// was sealed with a different key.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
)

// ConnectionEncryptor seals connection configs with AES-256-GCM before they
// reach the tenant store. Authenticated encryption keeps a tampered row from
// decrypting silently.
type ConnectionEncryptor struct {
	gcm cipher.AEAD
}

// NewConnectionEncryptor creates an encryptor from a key string: either a
// base64-encoded 32-byte key or an arbitrary passphrase, which is hashed to
// 32 bytes with SHA-256.
func NewConnectionEncryptor(keyInput string) (*ConnectionEncryptor, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	var key []byte
	decoded, err := base64.StdEncoding.DecodeString(keyInput)
	if err == nil && len(decoded) == 32 {
		key = decoded
	} else {
		hash := sha256.Sum256([]byte(keyInput))
		key = hash[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &ConnectionEncryptor{gcm: gcm}, nil
}

// EncryptConfig seals a JSON connection config and returns it as a JSON
// string value (base64 of nonce || ciphertext || tag), so the sealed form
// still fits a JSONB column. Empty configs pass through untouched.
func (e *ConnectionEncryptor) EncryptConfig(config json.RawMessage) (json.RawMessage, error) {
	if len(config) == 0 {
		return config, nil
	}

	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := e.gcm.Seal(nonce, nonce, config, nil)
	return json.Marshal(base64.StdEncoding.EncodeToString(sealed))
}

// DecryptConfig reverses EncryptConfig. A stored value that is not a JSON
// string is assumed to predate encryption and is returned as-is.
func (e *ConnectionEncryptor) DecryptConfig(stored json.RawMessage) (json.RawMessage, error) {
	if len(stored) == 0 {
		return stored, nil
	}

	var encoded string
	if err := json.Unmarshal(stored, &encoded); err != nil {
		return stored, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}

	nonceSize := e.gcm.NonceSize()
	if len(data) < nonceSize+e.gcm.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	plaintext, err := e.gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
