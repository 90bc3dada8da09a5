package factories

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
)

// Settings is the top-level config loaded from settings.json. Secrets may be
// supplied or overridden through the environment instead of the file.
type Settings struct {
	Telegram  TelegramSettings  `json:"telegram"`
	OpenAI    OpenAISettings    `json:"openai"`
	Mongo     MongoSettings     `json:"mongo"`
	Transcode TranscodeSettings `json:"transcode"`
	WebSocket WebSocketSettings `json:"websocket"`
	Metrics   MetricsSettings   `json:"metrics"`
}

// TelegramSettings configures the messaging transport. The transport is
// enabled when a token is present.
type TelegramSettings struct {
	Token       string `json:"token,omitempty"`
	PollTimeout int    `json:"poll_timeout,omitempty"`
}

// OpenAISettings configures the transcription, completion and synthesis
// clients.
type OpenAISettings struct {
	APIKey             string  `json:"api_key,omitempty"`
	ChatModel          string  `json:"chat_model,omitempty"`
	TranscriptionModel string  `json:"transcription_model,omitempty"`
	SpeechModel        string  `json:"speech_model,omitempty"`
	Voice              string  `json:"voice,omitempty"`
	MaxTokens          int     `json:"max_tokens,omitempty"`
	Temperature        float32 `json:"temperature,omitempty"`
	BaseURL            string  `json:"base_url,omitempty"`
}

// MongoSettings configures the durable conversation store.
type MongoSettings struct {
	URI        string `json:"uri,omitempty"`
	Database   string `json:"database,omitempty"`
	Collection string `json:"collection,omitempty"`
}

// TranscodeSettings configures the audio transcoder.
type TranscodeSettings struct {
	FFmpegPath   string `json:"ffmpeg_path,omitempty"`
	TempDir      string `json:"temp_dir,omitempty"`
	TargetFormat string `json:"target_format,omitempty"`
}

// WebSocketSettings configures the optional development transport.
type WebSocketSettings struct {
	Enabled    bool   `json:"enabled,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
	Path       string `json:"path,omitempty"`
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled    bool   `json:"enabled,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultSettings returns a Settings pre-filled with defaults.
func DefaultSettings() Settings {
	return Settings{
		Telegram:  TelegramSettings{PollTimeout: 30},
		OpenAI:    OpenAISettings{},
		Mongo:     MongoSettings{Collection: "chats"},
		Transcode: TranscodeSettings{TargetFormat: "mp3"},
		WebSocket: WebSocketSettings{ListenAddr: ":8081", Path: "/session"},
		Metrics:   MetricsSettings{ListenAddr: ":9090"},
	}
}

// LoadSettings reads path (when it exists), applies environment overrides and
// validates the result. A missing file is not an error; the environment alone
// can carry a complete configuration.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env-only configuration
		case err != nil:
			return Settings{}, fmt.Errorf("read settings: %w", err)
		default:
			if err := sonic.Unmarshal(data, &settings); err != nil {
				return Settings{}, fmt.Errorf("parse settings: %w", err)
			}
		}
	}

	settings.applyEnv()
	if err := settings.validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// applyEnv pulls secrets from the environment. Environment values win over
// the settings file.
func (s *Settings) applyEnv() {
	if v := os.Getenv("TELEGRAM_API_KEY"); v != "" {
		s.Telegram.Token = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		s.OpenAI.APIKey = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		s.Mongo.URI = v
	}
	if v := os.Getenv("MONGODB_NAME"); v != "" {
		s.Mongo.Database = v
	}
}

func (s *Settings) validate() error {
	if s.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key is required (settings or OPENAI_API_KEY)")
	}
	if s.Mongo.URI == "" {
		return fmt.Errorf("mongo uri is required (settings or MONGODB_URI)")
	}
	if s.Mongo.Database == "" {
		return fmt.Errorf("mongo database is required (settings or MONGODB_NAME)")
	}
	if s.Telegram.Token == "" && !s.WebSocket.Enabled {
		return fmt.Errorf("no transport configured: set a telegram token or enable the websocket transport")
	}
	return nil
}
