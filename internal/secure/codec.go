// Package secure implements the symmetric frame codec used on every client
// connection. One key is generated per server process and handed to each
// client in the clear as the very first frame after the connection is
// accepted. That handshake is a known weakness of the protocol: anyone who
// observes it can read the whole session.
package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// KeySize is the length of the process-wide symmetric key (AES-256).
const KeySize = 32

// ErrDecrypt is returned when a ciphertext fails authentication, typically
// because it was tampered with, truncated, or produced under a different key.
var ErrDecrypt = errors.New("secure: ciphertext rejected")

// NewKey generates a fresh random symmetric key.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// Codec encrypts and decrypts individual frames with AES-256-GCM. Each frame
// is sealed independently under a random nonce, so frames may be decrypted in
// any order. A Codec is safe for concurrent use.
type Codec struct {
	key  []byte
	aead cipher.AEAD
}

// NewCodec builds a Codec around a KeySize-byte key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("secure: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secure: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secure: init gcm: %w", err)
	}
	return &Codec{key: append([]byte(nil), key...), aead: aead}, nil
}

// Key returns the raw key so the accept path can ship it to the client during
// the in-clear handshake.
func (c *Codec) Key() []byte {
	return append([]byte(nil), c.key...)
}

// Encrypt seals one plaintext frame. The random nonce is prepended to the
// returned ciphertext.
func (c *Codec) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("secure: nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens one frame produced by Encrypt. Any forgery, truncation, or
// key mismatch yields ErrDecrypt; the caller treats that as fatal for the
// connection but it never affects other sessions.
func (c *Codec) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, sealed := ciphertext[:c.aead.NonceSize()], ciphertext[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
