// Package credentials stores and retrieves the portal password in the OS keyring.
package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// ErrNotFound is returned when the keyring holds no secret for the user.
var ErrNotFound = errors.New("no password stored in keyring")

// Keyring addresses one secret in the OS keyring.
type Keyring struct {
	Service string
	User    string
}

func NewKeyring(service, user string) *Keyring {
	return &Keyring{
		Service: service,
		User:    user,
	}
}

func (k *Keyring) Get() (string, error) {
	secret, err := keyringGet(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w (service %s, user %s)", ErrNotFound, k.Service, k.User)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read keyring: %w", err)
	}
	return secret, nil
}

func (k *Keyring) Set(secret string) error {
	if secret == "" {
		return errors.New("refusing to store an empty password")
	}
	if err := keyringSet(k.Service, k.User, secret); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

func (k *Keyring) Delete() error {
	err := keyringDelete(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
