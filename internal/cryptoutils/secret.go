package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
)

const keySize = 32

// Cipher encrypts and decrypts sensitive destination-config fields with
// AES-256-GCM. It is constructed once at startup and passed in explicitly;
// there is no process-global instance.
type Cipher struct {
	key    []byte
	logger *zap.Logger
}

// NewCipher derives a 32-byte key from the configured encryption key. A
// base64-encoded 32-byte key is used as-is; anything else is hashed down to
// size so operators can supply an arbitrary passphrase.
func NewCipher(rawKey string, logger *zap.Logger) (*Cipher, error) {
	if rawKey == "" {
		return nil, fmt.Errorf("encryption key is not configured")
	}
	if decoded, err := base64.StdEncoding.DecodeString(rawKey); err == nil && len(decoded) == keySize {
		return &Cipher{key: decoded, logger: logger}, nil
	}
	sum := sha256.Sum256([]byte(rawKey))
	return &Cipher{key: sum[:], logger: logger}, nil
}

// Encrypt seals plaintext and returns base64(nonce||ciphertext). Empty input
// is a no-op.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	payload := append(nonce, ciphertext...)
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt reverses Encrypt. Empty input is a no-op.
func (c *Cipher) Decrypt(ciphertextB64 string) (string, error) {
	if ciphertextB64 == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce := raw[:gcm.NonceSize()]
	ciphertext := raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}

// EncryptConfig returns a copy of config with the sensitive fields for the
// given destination type encrypted. The input map is not modified.
func (c *Cipher) EncryptConfig(dtype destination.Type, config map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(config))
	for k, v := range config {
		out[k] = v
	}
	for _, field := range destination.SensitiveFields[dtype] {
		value, ok := out[field]
		if !ok || value == "" {
			continue
		}
		sealed, err := c.Encrypt(value)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", field, err)
		}
		out[field] = sealed
	}
	return out, nil
}

// DecryptConfig returns a copy of config with the sensitive fields for the
// given destination type decrypted. A value that fails to decrypt is used
// as-is: destinations created before encryption was enabled stored plaintext,
// and refusing to deliver for them would break every legacy destination at
// once. Each such value is logged for migration visibility.
func (c *Cipher) DecryptConfig(dtype destination.Type, config map[string]string) map[string]string {
	out := make(map[string]string, len(config))
	for k, v := range config {
		out[k] = v
	}
	for _, field := range destination.SensitiveFields[dtype] {
		value, ok := out[field]
		if !ok || value == "" {
			continue
		}
		plain, err := c.Decrypt(value)
		if err != nil {
			c.logger.Warn("config_field_not_encrypted_using_as_is",
				zap.String("destination_type", string(dtype)),
				zap.String("field", field),
			)
			continue
		}
		out[field] = plain
	}
	return out
}
