package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"voicerelay/core"
)

// OpenAISTTService implements core.Transcriber using OpenAI's transcription
// endpoint (Whisper).
type OpenAISTTService struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// Config holds the configuration for the OpenAI STT service
type Config struct {
	APIKey  string
	Model   string        // defaults to whisper-1
	Timeout time.Duration // per-request, defaults to 60s
	BaseURL string        // override for tests and proxies
}

// NewOpenAISTTService creates a new instance of OpenAISTTService
func NewOpenAISTTService(config Config) (*OpenAISTTService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAISTTService{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   config.Model,
		timeout: config.Timeout,
	}, nil
}

// Transcribe sends the audio to the transcription endpoint and returns the
// recognized text. A blank transcript is an error: a voice note that decodes
// to nothing must not become a user turn.
func (s *OpenAISTTService) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		Reader:   bytes.NewReader(audio),
		FilePath: "voice." + format, // names the multipart upload
	})
	if err != nil {
		return "", &core.TranscriptionError{Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &core.TranscriptionError{Err: fmt.Errorf("service returned an empty transcript")}
	}
	return text, nil
}
