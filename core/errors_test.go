package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsAreDistinguishable(t *testing.T) {
	cause := errors.New("boom")

	cases := []struct {
		name    string
		err     error
		matches func(error) bool
	}{
		{"transcode", &TranscodeError{SourceFormat: "oga", TargetFormat: "mp3", Err: cause}, IsTranscodeError},
		{"transcription", &TranscriptionError{Err: cause}, IsTranscriptionError},
		{"completion", &CompletionError{Err: cause}, IsCompletionError},
		{"synthesis", &SynthesisError{Err: cause}, IsSynthesisError},
		{"persistence", &PersistenceError{Op: "append", ConversationID: "c1", Err: cause}, IsPersistenceError},
	}

	checks := []func(error) bool{
		IsTranscodeError, IsTranscriptionError, IsCompletionError, IsSynthesisError, IsPersistenceError,
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matched := 0
			for _, check := range checks {
				if check(tc.err) {
					matched++
				}
			}
			assert.Equal(t, 1, matched, "each error must match exactly one kind")
			assert.True(t, tc.matches(tc.err))

			// Matching survives wrapping, and the cause stays reachable.
			wrapped := fmt.Errorf("stage failed: %w", tc.err)
			assert.True(t, tc.matches(wrapped))
			assert.True(t, errors.Is(wrapped, cause))
		})
	}
}

func TestPersistenceErrorMessage(t *testing.T) {
	err := &PersistenceError{Op: "append", ConversationID: "c1", Err: errors.New("no reachable servers")}
	assert.Contains(t, err.Error(), "append")
	assert.Contains(t, err.Error(), "c1")
	assert.Contains(t, err.Error(), "no reachable servers")
}
