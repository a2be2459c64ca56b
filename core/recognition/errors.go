package recognition

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when audio is sent outside an open session.
var ErrNotConnected = errors.New("no open transcription session")

// ErrPermissionDenied marks microphone acquisition failures. Unlike transport
// problems these are not fixed by reconnecting, so sessions halt instead of
// retrying when an error matches it.
var ErrPermissionDenied = errors.New("microphone permission denied")

// ConnectionError reports a failure to establish or keep the transcription
// connection. It is recoverable by opening a new session, unlike a missing
// microphone.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("transcription connection failed: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}
