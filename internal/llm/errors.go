package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured indicates the AI backend has no credential. Operations
// fail fast on it before any network call is attempted; callers surface it
// as "feature unavailable".
var ErrNotConfigured = errors.New("AI service is not configured")

// ServiceError is a non-success response from the upstream AI service.
// Calls are never retried automatically; every request is a single attempt.
type ServiceError struct {
	Message string
	Status  int
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("AI service error (status %d): %s", e.Status, e.Message)
}

// rawPrefixLen bounds how much of an unparseable response is kept for
// diagnostics.
const rawPrefixLen = 160

// MalformedResponseError indicates the upstream returned text that is not
// valid JSON after fence stripping. Raw holds a prefix of the offending text.
type MalformedResponseError struct {
	Raw string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("AI response is not valid JSON: %q", e.Raw)
}

// newMalformedResponseError trims raw to the diagnostic prefix.
func newMalformedResponseError(raw string) *MalformedResponseError {
	if len(raw) > rawPrefixLen {
		raw = raw[:rawPrefixLen]
	}
	return &MalformedResponseError{Raw: raw}
}
