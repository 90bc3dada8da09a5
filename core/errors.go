package core

import (
	"errors"
	"fmt"
)

// TranscodeError reports that received audio could not be converted to the
// format the transcription service accepts.
type TranscodeError struct {
	SourceFormat string
	TargetFormat string
	Err          error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s to %s: %v", e.SourceFormat, e.TargetFormat, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// IsTranscodeError checks if an error is a transcode error.
func IsTranscodeError(err error) bool {
	var t *TranscodeError
	return errors.As(err, &t)
}

// TranscriptionError reports a failed or empty speech-to-text result. An
// empty transcript is an error, never a valid empty user turn.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// IsTranscriptionError checks if an error is a transcription error.
func IsTranscriptionError(err error) bool {
	var t *TranscriptionError
	return errors.As(err, &t)
}

// CompletionError reports that the language model returned no usable reply.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// IsCompletionError checks if an error is a completion error.
func IsCompletionError(err error) bool {
	var c *CompletionError
	return errors.As(err, &c)
}

// SynthesisError reports a failed or empty text-to-speech result.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// IsSynthesisError checks if an error is a synthesis error.
func IsSynthesisError(err error) bool {
	var s *SynthesisError
	return errors.As(err, &s)
}

// PersistenceError reports a durable-store failure during a history
// operation. The in-memory tier is never mutated when one is returned.
type PersistenceError struct {
	Op             string
	ConversationID string
	Err            error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s for conversation %s: %v", e.Op, e.ConversationID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistenceError checks if an error is a persistence error.
func IsPersistenceError(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
