package container

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"notesec/internal/errkind"
)

// KeySize is the length of a raw container key in bytes.
const KeySize = chacha20poly1305.KeySize

const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// passphraseSalt is fixed: every process configured with the same passphrase
// must derive the same key, or previously written containers become unreadable.
var passphraseSalt = []byte("notesec/container-key/v1")

// Key is the process-wide symmetric secret used to seal every slot.
// It is built once at startup and handed to NewCodec.
type Key struct {
	aead cipher.AEAD
}

// NewKey wraps a raw 32-byte key.
func NewKey(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: container key must be %d bytes, got %d", errkind.ErrInvalid, KeySize, len(raw))
	}
	aead, err := chacha20poly1305.NewX(raw)
	if err != nil {
		return nil, err
	}
	return &Key{aead: aead}, nil
}

// ParseKeyHex decodes a hex-encoded 32-byte key.
func ParseKeyHex(value string) (*Key, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%w: container key is not valid hex: %w", errkind.ErrInvalid, err)
	}
	return NewKey(raw)
}

// DeriveKey stretches a passphrase into a container key with Argon2id.
func DeriveKey(passphrase string) (*Key, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: passphrase is required", errkind.ErrInvalid)
	}
	raw := argon2.IDKey([]byte(passphrase), passphraseSalt, argonTime, argonMemory, argonThreads, KeySize)
	return NewKey(raw)
}

// seal returns nonce|ciphertext. The slot name is bound as additional data so a
// sealed body only opens under the name it was written with.
func (k *Key) seal(name string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, k.aead.NonceSize(), k.aead.NonceSize()+len(plaintext)+k.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return k.aead.Seal(nonce, nonce, plaintext, []byte(name)), nil
}

func (k *Key) open(name string, sealed []byte) ([]byte, error) {
	ns := k.aead.NonceSize()
	if len(sealed) < ns+k.aead.Overhead() {
		return nil, fmt.Errorf("%w: slot %s: ciphertext too short", errkind.ErrDecryptFailed, name)
	}
	plaintext, err := k.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(name))
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %w", errkind.ErrDecryptFailed, name, err)
	}
	return plaintext, nil
}
