// Package credstore keeps secrets at rest: bucket backend credentials are
// sealed with AES-GCM under a key derived from the configured master key, and
// service token secrets are reduced to keyed digests that can be looked up
// but not reversed.
package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	sealedPrefix = "v1:"
	secretBytes  = 32
)

var kdfSalt = []byte("kineticafs/credstore/v1")

var (
	ErrCorrupt    = errors.New("sealed value is corrupt or was sealed with another key")
	ErrEmptyInput = errors.New("empty secret")
)

// Store seals bucket credentials and digests token secrets.
type Store struct {
	aead   cipher.AEAD
	pepper []byte
}

func New(masterKey, tokenPepper string) (*Store, error) {
	if masterKey == "" || tokenPepper == "" {
		return nil, ErrEmptyInput
	}

	key := argon2.IDKey([]byte(masterKey), kdfSalt, 2, 19*1024, 1, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Store{aead: aead, pepper: []byte(tokenPepper)}, nil
}

// Seal encrypts plaintext with a fresh nonce. The result is printable and
// safe to store in a TEXT column.
func (s *Store) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *Store) Open(sealed string) (string, error) {
	raw, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", ErrCorrupt
	}
	data, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil || len(data) < s.aead.NonceSize() {
		return "", ErrCorrupt
	}
	nonce, ciphertext := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrCorrupt
	}
	return string(plain), nil
}

// Digest is the stored, verifiable derivative of a token secret.
func (s *Store) Digest(secret string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateSecret returns a new 256-bit secret, hex encoded.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// WellFormedSecret reports whether s has the shape GenerateSecret produces.
func WellFormedSecret(s string) bool {
	if len(s) != secretBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
