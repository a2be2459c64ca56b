package utils

// Ptr returns a pointer to v. Handy for optional fields in request payloads.
func Ptr[T any](v T) *T {
	return &v
}
