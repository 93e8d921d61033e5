package secrets

import (
	"os"

	"github.com/jnury/regis/pkg/logger"
)

// NewStore returns the best available token store: the OS keyring when one
// is usable, otherwise the encrypted file fallback.
func NewStore() (Store, error) {
	keyringStore := NewKeyringStore()
	if keyringStore.Available() {
		return keyringStore, nil
	}

	logger.Warnf("OS keyring unavailable, falling back to encrypted file storage")
	return NewEncryptedStore(os.Getenv(PasswordEnvVar))
}
