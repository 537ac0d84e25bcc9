package voice

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind distinguishes the recognition failure conditions, each of which
// maps to a distinct user-facing message.
type ErrorKind int

const (
	// ErrorUnsupported means no recognition engine is available.
	ErrorUnsupported ErrorKind = iota
	// ErrorPermissionDenied means microphone access was refused.
	ErrorPermissionDenied
	// ErrorNoSpeech means the session heard nothing before the hard timeout.
	ErrorNoSpeech
	// ErrorGeneric covers all other recognizer failures.
	ErrorGeneric
)

// Sentinel errors recognizer implementations can return so the adapter
// classifies them.
var (
	ErrUnsupported      = errors.New("speech recognition unsupported")
	ErrPermissionDenied = errors.New("microphone permission denied")
)

// RecognitionError is a voice-capture failure with its user-facing message.
type RecognitionError struct {
	message string
	Kind    ErrorKind
}

func (e *RecognitionError) Error() string { return e.message }

var kindMessages = map[ErrorKind]string{
	ErrorUnsupported:      "Voice input is not supported in this environment.",
	ErrorPermissionDenied: "Microphone access denied.",
	ErrorNoSpeech:         "No speech detected.",
	ErrorGeneric:          "Speech recognition failed.",
}

func newRecognitionError(kind ErrorKind, detail string) *RecognitionError {
	msg := kindMessages[kind]
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return &RecognitionError{Kind: kind, message: msg}
}

// classifyStartError maps recognizer errors onto the failure taxonomy.
func classifyStartError(err error) *RecognitionError {
	var rerr *RecognitionError
	switch {
	case errors.As(err, &rerr):
		return rerr
	case errors.Is(err, ErrUnsupported):
		return newRecognitionError(ErrorUnsupported, "")
	case errors.Is(err, ErrPermissionDenied):
		return newRecognitionError(ErrorPermissionDenied, "")
	case errors.Is(err, context.Canceled):
		return newRecognitionError(ErrorGeneric, "canceled")
	default:
		return newRecognitionError(ErrorGeneric, err.Error())
	}
}
