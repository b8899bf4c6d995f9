package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "upm"

// ErrNotFound is returned when no password is stored for a database
var ErrNotFound = errors.New("password not found in keyring")

// SavePassword stores a master password in the OS keyring
func SavePassword(databaseID string, password string) error {
	return keyring.Set(serviceName, databaseID, password)
}

// GetPassword retrieves a master password from the OS keyring
func GetPassword(databaseID string) (string, error) {
	password, err := keyring.Get(serviceName, databaseID)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return password, err
}

// DeletePassword removes a master password from the OS keyring.
// Deleting a missing entry is not an error.
func DeletePassword(databaseID string) error {
	err := keyring.Delete(serviceName, databaseID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(databaseID string) bool {
	_, err := keyring.Get(serviceName, databaseID)
	return err == nil
}
