package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"voicerelay/core"
)

// OpenAILLMService implements core.Completer using OpenAI chat completions.
// The full ordered turn log is sent as context on every call.
type OpenAILLMService struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// Config holds the configuration for the OpenAI LLM service
type Config struct {
	APIKey      string
	Model       string // defaults to gpt-4-1106-preview
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration // per-request, defaults to 120s
	BaseURL     string        // override for tests and proxies
}

// NewOpenAILLMService creates a new instance of OpenAILLMService
func NewOpenAILLMService(config Config) (*OpenAILLMService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = openai.GPT4Turbo1106
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAILLMService{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		timeout:     config.Timeout,
	}, nil
}

// Complete runs a chat completion over the conversation and returns the
// generated reply text.
func (s *OpenAILLMService) Complete(ctx context.Context, turns []core.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    convertTurns(turns),
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", &core.CompletionError{Err: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &core.CompletionError{Err: fmt.Errorf("response contained no generated content")}
	}
	return resp.Choices[0].Message.Content, nil
}

// convertTurns converts conversation turns to OpenAI chat messages.
func convertTurns(turns []core.Turn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    convertRole(turn.Role),
			Content: turn.Content,
		})
	}
	return messages
}

// convertRole converts a turn role to an OpenAI role.
func convertRole(role core.Role) string {
	switch role {
	case core.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
