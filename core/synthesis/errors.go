package synthesis

import (
	"errors"
	"fmt"
)

// ErrNoAudio is returned when a provider answers successfully but without
// any audio payload.
var ErrNoAudio = errors.New("provider returned no audio")

// StatusError reports a non-success HTTP response from a provider.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("synthesis request failed: %s", e.Status)
}
