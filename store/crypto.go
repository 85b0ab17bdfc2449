package store

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
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	sealedPrefix = "sealed:v1:"
	keyedPrefix  = "hmac:"
	plainPrefix  = "sha256:"

	purposeTOTP = "users.totp_secret"
)

var errSealedValue = errors.New("sealed value is corrupt or was sealed with another key")

// secretBox seals column values with AES-256-GCM and derives lookup digests with HMAC-SHA256.
// Both keys come from the configured data key through HKDF. A nil box stores values as given
// and digests with bare SHA-256.
type secretBox struct {
	aead   cipher.AEAD
	macKey []byte
}

func newSecretBox(dataKey string) (*secretBox, error) {
	if dataKey == "" {
		return nil, nil
	}
	kdf := hkdf.New(sha256.New, []byte(dataKey), nil, []byte("folio data key"))
	encKey := make([]byte, 32)
	macKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, encKey); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(kdf, macKey); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &secretBox{aead: aead, macKey: macKey}, nil
}

// Seal encrypts plain for the given column. purpose is bound as associated data, so a value
// copied into another column does not open.
func (b *secretBox) Seal(purpose, plain string) (string, error) {
	if b == nil || plain == "" || isSealed(plain) {
		return plain, nil
	}
	nonce := make([]byte, b.aead.NonceSize(), b.aead.NonceSize()+len(plain)+b.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	blob := b.aead.Seal(nonce, nonce, []byte(plain), []byte(purpose))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(blob), nil
}

// Open reverses Seal. Values that were stored before a key was configured pass through.
func (b *secretBox) Open(purpose, stored string) (string, error) {
	if !isSealed(stored) {
		return stored, nil
	}
	if b == nil {
		return "", fmt.Errorf("%w: no data key configured", errSealedValue)
	}
	blob, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(blob) < b.aead.NonceSize() {
		return "", errSealedValue
	}
	nonce, ciphertext := blob[:b.aead.NonceSize()], blob[b.aead.NonceSize():]
	plain, err := b.aead.Open(nil, nonce, ciphertext, []byte(purpose))
	if err != nil {
		return "", errSealedValue
	}
	return string(plain), nil
}

// Digest returns a stable one-way form of value, keyed when a data key is configured.
func (b *secretBox) Digest(value string) string {
	if value == "" {
		return ""
	}
	if b == nil {
		sum := sha256.Sum256([]byte(value))
		return plainPrefix + hex.EncodeToString(sum[:])
	}
	mac := hmac.New(sha256.New, b.macKey)
	mac.Write([]byte(value))
	return keyedPrefix + hex.EncodeToString(mac.Sum(nil))
}

func isSealed(v string) bool {
	return strings.HasPrefix(v, sealedPrefix)
}
