package domain

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the failing stage of a message-processing pass.
type ErrorKind string

const (
	ErrKindValidation      ErrorKind = "validation_error"
	ErrKindAudioFetch      ErrorKind = "audio_fetch_error"
	ErrKindAudioTooLarge   ErrorKind = "audio_too_large_error"
	ErrKindTranscription   ErrorKind = "transcription_error"
	ErrKindIntentDetection ErrorKind = "intent_detection_error"
	ErrKindSynthesis       ErrorKind = "synthesis_error"
	ErrKindDelivery        ErrorKind = "delivery_error"
)

// OperationalError is an expected failure whose UserMessage is safe to relay
// to the end user. Anything that is not an OperationalError is treated as
// internal: full detail goes to the log, the user gets a generic apology.
type OperationalError struct {
	Kind        ErrorKind
	UserMessage string
	Err         error
}

func (e *OperationalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.UserMessage, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.UserMessage)
}

func (e *OperationalError) Unwrap() error {
	return e.Err
}

// AsOperational reports whether err (or anything it wraps) is operational.
func AsOperational(err error) (*OperationalError, bool) {
	var opErr *OperationalError
	if errors.As(err, &opErr) {
		return opErr, true
	}
	return nil, false
}

func NewValidationError(userMessage string) *OperationalError {
	return &OperationalError{Kind: ErrKindValidation, UserMessage: userMessage}
}

func NewAudioFetchError(userMessage string, err error) *OperationalError {
	return &OperationalError{Kind: ErrKindAudioFetch, UserMessage: userMessage, Err: err}
}

func NewAudioTooLargeError(userMessage string) *OperationalError {
	return &OperationalError{Kind: ErrKindAudioTooLarge, UserMessage: userMessage}
}

func NewTranscriptionError(userMessage string, err error) *OperationalError {
	return &OperationalError{Kind: ErrKindTranscription, UserMessage: userMessage, Err: err}
}

func NewIntentDetectionError(userMessage string, err error) *OperationalError {
	return &OperationalError{Kind: ErrKindIntentDetection, UserMessage: userMessage, Err: err}
}

func NewSynthesisError(userMessage string, err error) *OperationalError {
	return &OperationalError{Kind: ErrKindSynthesis, UserMessage: userMessage, Err: err}
}

func NewDeliveryError(userMessage string, err error) *OperationalError {
	return &OperationalError{Kind: ErrKindDelivery, UserMessage: userMessage, Err: err}
}
