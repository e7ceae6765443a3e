package service

import "errors"

// Error taxonomy for the authentication path. Handlers map these onto the
// wire error codes; callers use errors.Is to decide between retry and
// re-authentication.
var (
	// ErrInvalidState means the callback's state token is unknown, already
	// consumed, or expired. CSRF/replay defense: the flow is dead and the
	// user must restart it.
	ErrInvalidState = errors.New("invalid_state")

	// ErrTokenExchange means the provider rejected the authorization code or
	// the exchange failed at the transport level (including timeout).
	ErrTokenExchange = errors.New("token_exchange_failed")

	// ErrRefreshFailed means the refresh token is absent or was rejected by
	// the provider. The caller must send the user back through the flow.
	ErrRefreshFailed = errors.New("refresh_failed")

	// ErrDecryption means a stored bundle could not be opened with the
	// current key. Fatal for that user's record; requires re-auth.
	ErrDecryption = errors.New("decryption_failed")

	// ErrStorageWrite surfaces an I/O failure writing a bundle. Never
	// swallowed.
	ErrStorageWrite = errors.New("storage_write_failed")

	// ErrAuthenticationRequired is the generic signal to downstream callers
	// that the user must (re-)authenticate.
	ErrAuthenticationRequired = errors.New("authentication_required")
)
