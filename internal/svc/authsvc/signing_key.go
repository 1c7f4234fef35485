package authsvc

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkrupp/taskapp/internal/domain"
)

// DefaultSecretSize is the size in bytes of generated signing secrets.
const DefaultSecretSize = 32

// MinSecretSize is the smallest accepted signing secret in bytes.
const MinSecretSize = 16

// DecodeSecret reads a hex-encoded signing secret.
// Returns an error if the secret cannot be read, is not hex or is too short.
func DecodeSecret(r io.Reader) ([]byte, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}

	secret, err := hex.DecodeString(strings.TrimSpace(string(buf)))
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	if len(secret) < MinSecretSize {
		return nil, fmt.Errorf("decode secret: %w", domain.ErrSecretTooShort)
	}

	return secret, nil
}

// GenerateSecret creates a new random signing secret of the given size.
func GenerateSecret(size int) ([]byte, error) {
	secret := make([]byte, size)

	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	return secret, nil
}

// EncodeSecret encodes a signing secret for storage.
func EncodeSecret(secret []byte) []byte {
	return []byte(hex.EncodeToString(secret) + "\n")
}

// GetSecret loads or creates a signing secret at the specified file path.
// If the file exists, it loads and decodes the secret.
// If the file doesn't exist, it generates a new secret and saves it to the file.
func GetSecret(path string) ([]byte, error) {
	// Try decode existing secret
	secretFile, err := os.Open(path)
	if err == nil {
		defer secretFile.Close()

		secret, err := DecodeSecret(secretFile)
		if err != nil {
			return nil, fmt.Errorf("decode secret file: %w", err)
		}

		return secret, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open secret file: %w", err)
	}

	// Generate new secret
	secret, err := GenerateSecret(DefaultSecretSize)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create secret dir: %w", err)
	}

	// Write secret to file
	if err := os.WriteFile(path, EncodeSecret(secret), 0o600); err != nil {
		return nil, fmt.Errorf("write secret file: %w", err)
	}

	return secret, nil
}

// LoadSecret returns the configured signing secret. An inline secret takes
// precedence over the secret file.
func LoadSecret(cfg AuthConfig) ([]byte, error) {
	if cfg.Secret != "" {
		if len(cfg.Secret) < MinSecretSize {
			return nil, domain.ErrSecretTooShort
		}

		return []byte(cfg.Secret), nil
	}

	return GetSecret(cfg.SecretFile)
}
