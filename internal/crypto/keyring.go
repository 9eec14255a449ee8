package crypto

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	ServiceName = "timekeeper"
	KeyName     = "db-encryption-key"

	// EnvKey overrides the system keyring, for headless machines and CI
	EnvKey = "TIMEKEEPER_DB_KEY"
)

// ErrNoKey is returned when no database key has been stored yet
var ErrNoKey = errors.New("no database encryption key stored")

// Keyring provides secure key storage abstraction
type Keyring interface {
	GetKey() (string, error)
	SetKey(password string) error
	DeleteKey() error
}

// SystemKeyring stores the key in the OS keyring (Keychain, Secret Service
// or Credential Manager). A non-empty EnvKey variable takes precedence.
type SystemKeyring struct {
	service string
	user    string
}

// NewKeyring returns the keyring for the timekeeper database key
func NewKeyring() *SystemKeyring {
	return &SystemKeyring{service: ServiceName, user: KeyName}
}

// GetKey returns the stored key, or ErrNoKey
func (k *SystemKeyring) GetKey() (string, error) {
	if key := os.Getenv(EnvKey); key != "" {
		return key, nil
	}

	key, err := keyring.Get(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoKey
		}
		return "", fmt.Errorf("failed to retrieve key from keyring (set %s to bypass): %w", EnvKey, err)
	}

	if key == "" {
		return "", ErrNoKey
	}

	return key, nil
}

// SetKey stores the key in the system keyring
func (k *SystemKeyring) SetKey(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	if err := keyring.Set(k.service, k.user, password); err != nil {
		return fmt.Errorf("failed to store key in keyring (set %s instead): %w", EnvKey, err)
	}

	return nil
}

// DeleteKey removes the key from the system keyring
func (k *SystemKeyring) DeleteKey() error {
	err := keyring.Delete(k.service, k.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNoKey
		}
		return fmt.Errorf("failed to delete key from keyring: %w", err)
	}

	return nil
}
