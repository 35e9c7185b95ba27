package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

// FieldCipher encrypts individual document fields with AES-GCM. Ciphertexts
// are base64(nonce || sealed).
type FieldCipher struct {
	gcm cipher.AEAD
}

// NewFieldCipher builds a cipher from a 32-byte key. When key is empty the
// key is derived from fallbackSecret with sha256.
func NewFieldCipher(key []byte, fallbackSecret string) (*FieldCipher, error) {
	if len(key) == 0 {
		sum := sha256.Sum256([]byte(fallbackSecret))
		key = sum[:]
	}
	if len(key) != 32 {
		return nil, errors.New("field key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{gcm: gcm}, nil
}

func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := c.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	payload := append(nonce, ciphertext...)
	return base64.StdEncoding.EncodeToString(payload), nil
}

func (c *FieldCipher) Decrypt(ciphertextB64 string) (string, error) {
	payload, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", err
	}

	ns := c.gcm.NonceSize()
	if len(payload) < ns {
		return "", errors.New("ciphertext too short")
	}
	nonce, ct := payload[:ns], payload[ns:]

	pt, err := c.gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
