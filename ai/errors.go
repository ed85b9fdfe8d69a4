package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredential indicates that no provider credential is configured.
	ErrNoCredential = errors.New("ai provider credential missing")

	// ErrUnavailable indicates a transport failure or a non-200 response.
	ErrUnavailable = errors.New("ai provider unavailable")

	// ErrMalformedResponse indicates a response body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed ai provider response")
)

// ProviderError carries an error message reported by the provider in a
// successful response body.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ai provider error: %s", e.Message)
}
