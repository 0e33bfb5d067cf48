// Package secrets stores the panel API key in the system keyring, with the
// config file and environment as fallbacks for headless hosts.
package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "panelpilot.panel"
	keyringUser    = "api-key"
)

// ErrNoAPIKey means no credential was found anywhere.
var ErrNoAPIKey = errors.New("no panel API key configured")

// StoreAPIKey saves the panel API key in the system keyring.
func StoreAPIKey(key string) error {
	return keyring.Set(keyringService, keyringUser, strings.TrimSpace(key))
}

// DeleteAPIKey removes the stored key. A missing entry is not an error.
func DeleteAPIKey() error {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// ResolveAPIKey returns the panel API key: an explicit value (from config or
// environment) wins, otherwise the system keyring is consulted.
func ResolveAPIKey(explicit string) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	val, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoAPIKey
		}
		return "", err
	}
	if strings.TrimSpace(val) == "" {
		return "", ErrNoAPIKey
	}
	return val, nil
}
