package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophmail/internal/common"
)

// KeySize is the AES-256 key length expected by NewCipher.
const KeySize = 32

var (
	// ErrDecrypt is returned when a ciphertext fails authentication or is malformed.
	ErrDecrypt = errors.New("decrypt: message authentication failed")
	// ErrInvalidKey is returned for keys of the wrong size or encoding.
	ErrInvalidKey = errors.New("invalid cipher key")
)

// Cipher is a symmetric authenticated cipher over AES-GCM. The random nonce
// is prepended to every ciphertext, so Encrypt never returns the same bytes
// twice for the same plaintext.
//
// A Cipher is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// NewCipherFromString builds a Cipher from a base64 (standard or URL
// alphabet) encoded 32-byte key, as found in configuration files.
func NewCipherFromString(encoded string) (*Cipher, error) {
	key, err := DecodeKey(encoded)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)
	return NewCipher(key)
}

// DecodeKey decodes a base64 key and checks its length.
func DecodeKey(encoded string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		key, err := enc.DecodeString(encoded)
		if err == nil {
			if len(key) != KeySize {
				return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
			}
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: not base64", ErrInvalidKey)
}

// GenerateKey returns a new random key encoded for configuration files.
func GenerateKey() string {
	return base64.StdEncoding.EncodeToString(common.GenerateRandByteArray(KeySize))
}

// Encrypt seals plaintext. The result is nonce || ciphertext || tag.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := common.GenerateRandByteArray(c.aead.NonceSize())
	out := make([]byte, 0, len(nonce)+len(plaintext)+c.aead.Overhead())
	out = append(out, nonce...)
	return c.aead.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any tampering yields ErrDecrypt.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(ciphertext) < ns+c.aead.Overhead() {
		return nil, ErrDecrypt
	}
	plaintext, err := c.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
