package resilience

import (
	"context"
	"errors"
	"fmt"
)

// ErrAllFailed is returned when every provider in a [Chain] fails.
var ErrAllFailed = errors.New("all providers failed")

// ErrNoProviders is returned when a [Chain] is executed without any
// registered providers.
var ErrNoProviders = errors.New("no providers registered")

type chainEntry[T any] struct {
	name  string
	value T
}

// Chain holds an ordered list of interchangeable providers. Every execution
// walks the list from the front, so a provider that failed on one call is
// tried again on the next and a recovered primary takes over on its own.
//
// Registration is not synchronized; register everything before first use.
type Chain[T any] struct {
	entries []chainEntry[T]
}

func NewChain[T any]() *Chain[T] {
	return &Chain[T]{}
}

// Register appends a provider. Providers are tried in registration order.
func (c *Chain[T]) Register(name string, value T) *Chain[T] {
	c.entries = append(c.entries, chainEntry[T]{name: name, value: value})
	return c
}

func (c *Chain[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Names returns the provider names in execution order.
func (c *Chain[T]) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.entries))
	for i, entry := range c.entries {
		names[i] = entry.name
	}
	return names
}

// Execute tries fn against each provider in order until one succeeds and
// returns the result along with the name of the provider that produced it.
// If ctx expires mid-walk the walk stops there, since later providers share
// the same deadline; the context error is returned unwrapped so callers can
// tell a timeout from exhaustion. When every provider fails the last error
// is wrapped in [ErrAllFailed].
//
// This is a package-level function because Go does not support method-level
// type parameters.
func Execute[T any, R any](ctx context.Context, c *Chain[T], fn func(context.Context, T) (R, error)) (R, string, error) {
	var zero R
	if c.Len() == 0 {
		return zero, "", ErrNoProviders
	}

	var lastErr error
	for i := range c.entries {
		entry := &c.entries[i]

		result, err := fn(ctx, entry.value)
		if err == nil {
			return result, entry.name, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, entry.name, ctxErr
		}

		lastErr = err
		logger.Warn("provider failed, trying next",
			"provider", entry.name, "error", err)
	}
	return zero, "", fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
