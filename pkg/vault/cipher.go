package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// KeyProvider supplies the 32-byte AES key used to seal the vault
type KeyProvider interface {
	Key() ([]byte, error)
}

// StaticKey derives the vault key from a passphrase compiled into the binary.
//
// Anyone holding the binary can recover the key. It keeps credentials out of
// plain sight in the vault file and nothing more; it is not a secret.
type StaticKey struct {
	Passphrase string
	Salt       []byte
	Iterations int
}

const (
	defaultPassphrase = "minio-view-secret-key-2024"
	defaultSalt       = "bucketview/vault/v1"
	defaultIterations = 10_000
	keySize           = 32
)

// DefaultKey returns the key material shipped with the application
func DefaultKey() StaticKey {
	return StaticKey{
		Passphrase: defaultPassphrase,
		Salt:       []byte(defaultSalt),
		Iterations: defaultIterations,
	}
}

// Key derives the AES-256 key with PBKDF2-SHA256
func (k StaticKey) Key() ([]byte, error) {
	if k.Passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	iterations := k.Iterations
	if iterations <= 0 {
		iterations = defaultIterations
	}
	return pbkdf2.Key([]byte(k.Passphrase), k.Salt, iterations, keySize, sha256.New), nil
}

// RawKey is a KeyProvider over an existing 32-byte key
type RawKey []byte

func (k RawKey) Key() ([]byte, error) {
	if len(k) != keySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keySize, len(k))
	}
	return k, nil
}

// Cipher seals payloads with AES-256-GCM into base64 text blobs of nonce||ciphertext
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a cipher from the provider's key
func NewCipher(kp KeyProvider) (*Cipher, error) {
	key, err := kp.Key()
	if err != nil {
		return nil, fmt.Errorf("vault key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce
func (c *Cipher) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal
func (c *Cipher) Open(blob string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode blob: %w", err)
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
