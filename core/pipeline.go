package core

import (
	"context"
	"fmt"
	"time"
)

// Pipeline stage names, in execution order. They label logs and metrics; the
// history appends count as stages of their own because they are the only
// durable mutations in a run.
const (
	StageTranscode       = "transcode"
	StageTranscribe      = "transcribe"
	StageAppendUser      = "append_user"
	StageComplete        = "complete"
	StageAppendAssistant = "append_assistant"
	StageSynthesize      = "synthesize"
)

// PipelineConfig wires the collaborators of a Pipeline.
type PipelineConfig struct {
	Transcoder  Transcoder
	Transcriber Transcriber
	Completer   Completer
	Synthesizer Synthesizer
	History     History

	// TargetFormat is the audio format handed to the transcription service.
	// Defaults to "mp3".
	TargetFormat string

	// Observer, when set, receives per-stage outcomes.
	Observer StageObserver

	Logger *Logger
}

// Pipeline drives one voice exchange per invocation: transcode the received
// voice note, transcribe it, append the user turn, complete against the full
// history, append the assistant turn, synthesize the reply.
//
// Failure containment: nothing is rolled back once committed. A failure
// before the first append mutates nothing; a completion failure leaves the
// user turn in place awaiting the next exchange; a synthesis failure still
// yields the assistant text so the caller can deliver it without audio.
//
// Invocations for different conversation identifiers may run concurrently;
// the History implementation serializes operations on the same identifier.
type Pipeline struct {
	transcoder   Transcoder
	transcriber  Transcriber
	completer    Completer
	synthesizer  Synthesizer
	history      History
	targetFormat string
	observer     StageObserver
	logger       *Logger
}

// NewPipeline validates the configuration and creates a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Transcoder == nil {
		return nil, fmt.Errorf("pipeline requires a transcoder")
	}
	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("pipeline requires a transcriber")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("pipeline requires a completer")
	}
	if cfg.Synthesizer == nil {
		return nil, fmt.Errorf("pipeline requires a synthesizer")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("pipeline requires a history store")
	}
	if cfg.TargetFormat == "" {
		cfg.TargetFormat = "mp3"
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}
	return &Pipeline{
		transcoder:   cfg.Transcoder,
		transcriber:  cfg.Transcriber,
		completer:    cfg.Completer,
		synthesizer:  cfg.Synthesizer,
		history:      cfg.History,
		targetFormat: cfg.TargetFormat,
		observer:     cfg.Observer,
		logger:       cfg.Logger,
	}, nil
}

// Run executes the stage sequence for one received voice note and returns the
// assistant's reply. On a synthesis failure the returned Reply carries the
// text alongside the error; for every other failure the Reply is empty.
func (p *Pipeline) Run(ctx context.Context, conversationID string, voice []byte, sourceFormat string) (Reply, error) {
	log := p.logger.With(map[string]interface{}{"conversation_id": conversationID})
	log.Debug("pipeline run started", "voice_bytes", len(voice), "source_format", sourceFormat)

	audio, err := p.transcode(ctx, voice, sourceFormat)
	if err != nil {
		return Reply{}, err
	}

	transcript, err := p.transcribe(ctx, audio)
	if err != nil {
		return Reply{}, err
	}
	log.Debug("voice note transcribed", "transcript_len", len(transcript))

	if err := p.appendTurn(ctx, StageAppendUser, conversationID, UserTurn(transcript)); err != nil {
		return Reply{}, err
	}

	// The user turn is committed from here on. A downstream failure leaves
	// it in the log rather than discarding the user's utterance.
	text, err := p.complete(ctx, conversationID)
	if err != nil {
		return Reply{}, err
	}

	if err := p.appendTurn(ctx, StageAppendAssistant, conversationID, AssistantTurn(text)); err != nil {
		return Reply{}, err
	}

	speech, err := p.synthesize(ctx, text)
	if err != nil {
		// Text and audio are independently deliverable: the exchange is
		// committed, only the spoken rendition is missing.
		return Reply{Text: text}, err
	}

	log.Debug("pipeline run finished", "reply_len", len(text), "audio_bytes", len(speech))
	return Reply{Text: text, Audio: speech}, nil
}

func (p *Pipeline) transcode(ctx context.Context, voice []byte, sourceFormat string) ([]byte, error) {
	begin := time.Now()
	audio, err := p.transcoder.Transcode(ctx, voice, sourceFormat, p.targetFormat)
	p.observe(StageTranscode, err, begin)
	return audio, err
}

func (p *Pipeline) transcribe(ctx context.Context, audio []byte) (string, error) {
	begin := time.Now()
	transcript, err := p.transcriber.Transcribe(ctx, audio, p.targetFormat)
	p.observe(StageTranscribe, err, begin)
	return transcript, err
}

func (p *Pipeline) appendTurn(ctx context.Context, stage, conversationID string, turn Turn) error {
	begin := time.Now()
	err := p.history.Append(ctx, conversationID, turn)
	p.observe(stage, err, begin)
	return err
}

func (p *Pipeline) complete(ctx context.Context, conversationID string) (string, error) {
	begin := time.Now()
	turns, err := p.history.Read(ctx, conversationID)
	if err != nil {
		p.observe(StageComplete, err, begin)
		return "", err
	}
	text, err := p.completer.Complete(ctx, turns)
	p.observe(StageComplete, err, begin)
	return text, err
}

func (p *Pipeline) synthesize(ctx context.Context, text string) ([]byte, error) {
	begin := time.Now()
	speech, err := p.synthesizer.Synthesize(ctx, text)
	p.observe(StageSynthesize, err, begin)
	return speech, err
}

func (p *Pipeline) observe(stage string, err error, begin time.Time) {
	if err != nil {
		p.logger.Error("pipeline stage failed", "stage", stage, "error", err)
	}
	if p.observer != nil {
		p.observer.ObserveStage(stage, err, time.Since(begin))
	}
}
