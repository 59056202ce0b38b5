package constants

import "errors"

// Errors
var (
	InvalidResponse = errors.New("invalid Syncano response") //nolint:stylecheck
	// ErrService is matched by every failure reported by the remote platform.
	ErrService = errors.New("syncano service error")
	// ErrInvalidArgument is matched by every local validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
)

var (
	ErrIDInUse            = errors.New("id already in use")
	ErrTimeout            = errors.New("timeout")
	ErrNoBaseURL          = errors.New("base url not set")
	ErrNoMarshaler        = errors.New("marshaler is not set")
	ErrNoAPIKey           = errors.New("api key is not set")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrNotConnected       = errors.New("connection is not established")
	ErrMethodNotAvailable = errors.New("method not available on this connection")
	ErrUnsupportedScheme  = errors.New("unsupported endpoint scheme")
)
