// Package factories assembles the relay from its settings: storage, history,
// the three service clients, the transcoder and the turn pipeline.
package factories

import (
	"context"
	"fmt"

	"voicerelay/audio"
	"voicerelay/core"
	"voicerelay/history"
	"voicerelay/metrics"
	"voicerelay/services/openai/llm"
	"voicerelay/services/openai/stt"
	"voicerelay/services/openai/tts"
	mongostore "voicerelay/storage/mongo"
)

// System is the assembled relay core, ready for a transport to drive.
type System struct {
	Pipeline *core.Pipeline
	History  core.History
	Metrics  *metrics.Metrics // nil unless enabled

	store *mongostore.Store
}

// BuildSystem connects the durable store and constructs the pipeline with all
// of its collaborators.
func BuildSystem(ctx context.Context, settings Settings, logger *core.Logger) (*System, error) {
	if logger == nil {
		logger = core.GetLogger()
	}

	store, err := mongostore.NewStore(ctx, mongostore.Config{
		URI:        settings.Mongo.URI,
		Database:   settings.Mongo.Database,
		Collection: settings.Mongo.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("durable store: %w", err)
	}

	hist := history.NewStore(store, logger)

	transcriber, err := stt.NewOpenAISTTService(stt.Config{
		APIKey:  settings.OpenAI.APIKey,
		Model:   settings.OpenAI.TranscriptionModel,
		BaseURL: settings.OpenAI.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription client: %w", err)
	}

	completer, err := llm.NewOpenAILLMService(llm.Config{
		APIKey:      settings.OpenAI.APIKey,
		Model:       settings.OpenAI.ChatModel,
		MaxTokens:   settings.OpenAI.MaxTokens,
		Temperature: settings.OpenAI.Temperature,
		BaseURL:     settings.OpenAI.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("completion client: %w", err)
	}

	synthesizer, err := tts.NewOpenAITTSService(tts.Config{
		APIKey:  settings.OpenAI.APIKey,
		Model:   settings.OpenAI.SpeechModel,
		Voice:   settings.OpenAI.Voice,
		BaseURL: settings.OpenAI.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis client: %w", err)
	}

	var stats *metrics.Metrics
	var observer core.StageObserver
	if settings.Metrics.Enabled {
		stats = metrics.NewMetrics()
		observer = stats
	}

	pipeline, err := core.NewPipeline(core.PipelineConfig{
		Transcoder: audio.NewTranscoder(audio.TranscoderConfig{
			FFmpegPath: settings.Transcode.FFmpegPath,
			TempDir:    settings.Transcode.TempDir,
		}),
		Transcriber:  transcriber,
		Completer:    completer,
		Synthesizer:  synthesizer,
		History:      hist,
		TargetFormat: settings.Transcode.TargetFormat,
		Observer:     observer,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &System{
		Pipeline: pipeline,
		History:  hist,
		Metrics:  stats,
		store:    store,
	}, nil
}

// Close releases the durable-store connection.
func (s *System) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
