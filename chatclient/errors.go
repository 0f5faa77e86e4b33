package chatclient

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by operations that require a live connection.
// Best-effort signals (typing, read receipts, deletes, room membership)
// silently no-op instead; see the per-operation docs.
var ErrNotConnected = errors.New("chat: not connected")

// ErrConnectionTimeout is returned by Connect when the server does not
// confirm the session identity within the handshake timeout.
var ErrConnectionTimeout = errors.New("chat: timed out waiting for identity confirmation")

// AuthError is returned by Connect when the transport fails before the
// identity confirmation arrives.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("chat: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RequestError carries the server-provided message of a failed REST call.
// When the body has no JSON "message" field, Message falls back to the HTTP
// status text.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("chat: request failed (%d): %s", e.StatusCode, e.Message)
}
