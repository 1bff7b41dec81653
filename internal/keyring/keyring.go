package keyring

import (
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const serviceName = "gpucompress"

// Key is the keyring account for an archive: its absolute path.
func Key(archivePath string) string {
	if abs, err := filepath.Abs(archivePath); err == nil {
		return abs
	}
	return archivePath
}

// SavePassword stores an archive password in the OS keyring
func SavePassword(archivePath string, password string) error {
	return keyring.Set(serviceName, Key(archivePath), password)
}

// GetPassword retrieves an archive password from the OS keyring
func GetPassword(archivePath string) (string, error) {
	return keyring.Get(serviceName, Key(archivePath))
}

// DeletePassword removes an archive password from the OS keyring
func DeletePassword(archivePath string) error {
	return keyring.Delete(serviceName, Key(archivePath))
}

// HasPassword checks if a password is stored for the archive
func HasPassword(archivePath string) bool {
	_, err := keyring.Get(serviceName, Key(archivePath))
	return err == nil
}
