package core

import (
	"context"
	"time"
)

// Transcoder converts a voice-note byte stream between audio formats.
type Transcoder interface {
	Transcode(ctx context.Context, raw []byte, sourceFormat, targetFormat string) ([]byte, error)
}

// Transcriber converts spoken audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// Completer produces the assistant's next reply from the ordered turn log.
// The full log is sent as context; no windowing is applied.
type Completer interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// Synthesizer renders text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// History is the two-tier conversation log. Appends are write-through: a turn
// is committed to the durable tier before it becomes visible in memory, so a
// reader never observes a turn in one tier only.
type History interface {
	Append(ctx context.Context, conversationID string, turn Turn) error
	Read(ctx context.Context, conversationID string) ([]Turn, error)
	Reset(ctx context.Context, conversationID string) error
}

// DurableStore is the backing document store for conversation logs, keyed by
// conversation identifier. A missing conversation is not an error: Load
// reports found=false and Delete of an absent record succeeds.
type DurableStore interface {
	AppendTurn(ctx context.Context, conversationID string, turn Turn) error
	Load(ctx context.Context, conversationID string) (turns []Turn, found bool, err error)
	Create(ctx context.Context, conversationID string) error
	Delete(ctx context.Context, conversationID string) error
}

// VoiceExchanger runs one voice exchange: transports hand it a conversation
// identifier plus the raw voice note and get back the reply text and audio.
type VoiceExchanger interface {
	Run(ctx context.Context, conversationID string, voice []byte, sourceFormat string) (Reply, error)
}

// StageObserver receives the outcome of every pipeline stage. Implementations
// must be safe for concurrent use.
type StageObserver interface {
	ObserveStage(stage string, err error, elapsed time.Duration)
}
