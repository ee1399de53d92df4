package bottle

import "errors"

// Error kinds shared by the notifier, the sweep, and the HTTP layer. Callers
// wrap them with fmt.Errorf("...: %w", ErrX) and match with errors.Is.
var (
	// ErrConfiguration means a required secret or endpoint is absent. Fatal to
	// the whole invocation; no partial work is attempted.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation means caller-supplied fields are missing or malformed.
	ErrValidation = errors.New("validation error")

	// ErrTransport means the email provider rejected the send or could not be
	// reached.
	ErrTransport = errors.New("transport error")

	// ErrPersistence means a store read or write failed.
	ErrPersistence = errors.New("persistence error")

	// ErrNotFound is returned when a bottle does not exist or is not visible
	// to the caller.
	ErrNotFound = errors.New("bottle not found")
)
