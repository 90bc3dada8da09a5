package tts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"voicerelay/core"
)

// OpenAITTSService implements core.Synthesizer using OpenAI speech synthesis.
type OpenAITTSService struct {
	client  *openai.Client
	model   openai.SpeechModel
	voice   openai.SpeechVoice
	timeout time.Duration
}

// Config holds the configuration for the OpenAI TTS service
type Config struct {
	APIKey  string
	Model   string        // defaults to tts-1
	Voice   string        // defaults to alloy
	Timeout time.Duration // per-request, defaults to 60s
	BaseURL string        // override for tests and proxies
}

// NewOpenAITTSService creates a new instance of OpenAITTSService
func NewOpenAITTSService(config Config) (*OpenAITTSService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = string(openai.TTSModel1)
	}
	if config.Voice == "" {
		config.Voice = string(openai.VoiceAlloy)
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAITTSService{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   openai.SpeechModel(config.Model),
		voice:   openai.SpeechVoice(config.Voice),
		timeout: config.Timeout,
	}, nil
}

// Synthesize renders text to speech and returns the audio bytes (MP3).
func (s *OpenAITTSService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &core.SynthesisError{Err: fmt.Errorf("nothing to synthesize")}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: s.model,
		Input: text,
		Voice: s.voice,
	})
	if err != nil {
		return nil, &core.SynthesisError{Err: err}
	}
	defer resp.Close()

	speech, err := io.ReadAll(resp)
	if err != nil {
		return nil, &core.SynthesisError{Err: fmt.Errorf("read speech stream: %w", err)}
	}
	if len(speech) == 0 {
		return nil, &core.SynthesisError{Err: fmt.Errorf("service returned empty audio")}
	}
	return speech, nil
}
