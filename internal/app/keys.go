package app

import (
	"errors"
	"strings"

	"github.com/inboxpilot/folderengine/pkg/crypto"
)

// VaultKey derives the AES-256 key used to seal stored OAuth credentials.
// The configured encryption key is a passphrase, not raw key material.
func VaultKey(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	passphrase := strings.TrimSpace(cfg.Vault.EncryptionKey)
	if passphrase == "" {
		return nil, errors.New("vault.encryption_key must be configured")
	}

	salt := strings.TrimSpace(cfg.Vault.KeySalt)
	if salt == "" {
		salt = "folderengine-credentials"
	}

	return crypto.DeriveKey(passphrase, salt), nil
}
