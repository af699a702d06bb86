package encryption

import (
	"fmt"

	"certvault-go/internal/cert"
	"certvault-go/internal/config"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (cert.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
