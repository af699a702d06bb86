package docstore

import (
	"fmt"

	"certvault-go/internal/cert"
	"certvault-go/internal/config"
)

// NewVaultFromConfig creates a DocumentVault implementation based on the
// vault config type.
func NewVaultFromConfig(cfg config.VaultConfig) (cert.DocumentVault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	case "s3":
		return NewS3Vault(cfg)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
