// Package secrets provides a platform-abstracted interface for secure credential storage.
// On macOS, credentials are stored in the system Keychain.
// On other platforms, a no-op fallback is used (the session cookie stays in settings.yaml).
package secrets

import "errors"

// Service name used for Scrabble credentials in the system keychain.
const ServiceName = "Scrabble"

// Account names for different credential types.
const (
	// AccountSessionCookie is the account holding the server session cookie
	// (the "session_token=<jwt>" value presented on the socket handshake).
	AccountSessionCookie = "session-cookie"
)

// ErrNotFound is returned when a credential is not found in the store.
var ErrNotFound = errors.New("credential not found")

// ErrNotSupported is returned when the secret store is not supported on the current platform.
var ErrNotSupported = errors.New("secret store not supported on this platform")

// SecretStore provides an interface for secure credential storage.
// Implementations should be safe for concurrent use.
type SecretStore interface {
	// Get retrieves a password for the given service and account.
	// Returns ErrNotFound if the credential does not exist.
	Get(service, account string) (string, error)

	// Set stores a password for the given service and account.
	// If a credential already exists, it is updated.
	Set(service, account, password string) error

	// Delete removes a credential for the given service and account.
	// Returns ErrNotFound if the credential does not exist.
	Delete(service, account string) error

	// IsSupported returns true if this store is functional on the current platform.
	IsSupported() bool
}

// store is the package-level secret store instance, initialized at package load time.
// It is set by the platform-specific init() function.
var store SecretStore

// Default returns the default SecretStore for the current platform.
// This function always returns a valid store; on unsupported platforms,
// it returns a NoopStore that returns ErrNotSupported for all operations.
func Default() SecretStore {
	if store == nil {
		// Fallback to noop store if not initialized (should not happen)
		store = &NoopStore{}
	}
	return store
}

// GetSessionCookie retrieves the stored session cookie from the given store.
// Returns ErrNotFound if no cookie was saved.
func GetSessionCookie(s SecretStore) (string, error) {
	return s.Get(ServiceName, AccountSessionCookie)
}

// SetSessionCookie stores the session cookie in the given store.
func SetSessionCookie(s SecretStore, cookie string) error {
	return s.Set(ServiceName, AccountSessionCookie, cookie)
}

// DeleteSessionCookie removes the session cookie from the given store.
func DeleteSessionCookie(s SecretStore) error {
	return s.Delete(ServiceName, AccountSessionCookie)
}
