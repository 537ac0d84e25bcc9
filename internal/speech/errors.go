package speech

import (
	"errors"
	"fmt"
)

// ErrNotConfigured indicates the synthesis provider has no API key.
var ErrNotConfigured = errors.New("speech synthesis not configured")

// SynthesisError is a non-2xx response from the hosted synthesis API.
type SynthesisError struct {
	Message string
	Status  int
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis error (status %d): %s", e.Status, e.Message)
}
