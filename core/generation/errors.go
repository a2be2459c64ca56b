package generation

import (
	"errors"
	"fmt"
)

// ErrEmptyReply is returned when a provider answers successfully but with no
// usable text.
var ErrEmptyReply = errors.New("provider returned an empty reply")

// StatusError reports a non-success HTTP response from a provider.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation request failed: %s", e.Status)
}
