// Package telegram is the messaging transport: it long-polls for updates,
// feeds voice notes through the turn pipeline, and delivers the reply text
// and audio back to the chat.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"voicerelay/core"
	"voicerelay/metrics"
)

const (
	defaultGreeting = "Hi! I'm a bot that can transcribe your voice messages and respond to you. " +
		"Send me a voice message to get started!"
	defaultFailureNotice = "Sorry, an error occurred."
	resetNotice          = "Your chat history has been reset."

	// Telegram voice notes arrive as OGG/Opus.
	voiceNoteFormat = "oga"
)

// Config holds the configuration for the Telegram transport.
type Config struct {
	Token         string
	PollTimeout   int    // long-poll timeout in seconds, defaults to 30
	Greeting      string // reply to /start and /help
	FailureNotice string // the single user-visible failure signal
}

// Bot wires Telegram updates to the turn pipeline and the history store.
type Bot struct {
	api           *tgbotapi.BotAPI
	exchanger     core.VoiceExchanger
	history       core.History
	logger        *core.Logger
	httpClient    *http.Client
	stats         *metrics.Metrics
	pollTimeout   int
	greeting      string
	failureNotice string
}

// NewBot authenticates against the Bot API and creates the transport.
// stats may be nil.
func NewBot(config Config, exchanger core.VoiceExchanger, history core.History, stats *metrics.Metrics, logger *core.Logger) (*Bot, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = 30
	}
	if config.Greeting == "" {
		config.Greeting = defaultGreeting
	}
	if config.FailureNotice == "" {
		config.FailureNotice = defaultFailureNotice
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	return &Bot{
		api:           api,
		exchanger:     exchanger,
		history:       history,
		logger:        logger.With(map[string]interface{}{"transport": "telegram"}),
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		stats:         stats,
		pollTimeout:   config.PollTimeout,
		greeting:      config.Greeting,
		failureNotice: config.FailureNotice,
	}, nil
}

// Run polls for updates until ctx is cancelled. Voice notes are handled in
// their own goroutines so conversations proceed independently; the history
// store serializes operations within one conversation.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot polling started", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot polling stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, chatID, msg.Command())
	case msg.Voice != nil:
		if b.stats != nil {
			b.stats.VoiceMessages.Inc()
		}
		go b.handleVoice(ctx, chatID, msg.Voice)
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command string) {
	switch command {
	case "start", "help":
		b.send(chatID, b.greeting)
	case "reset":
		if b.stats != nil {
			b.stats.ResetCommands.Inc()
		}
		convID := conversationID(chatID)
		if err := b.history.Reset(ctx, convID); err != nil {
			b.logger.Error("reset failed", "conversation_id", convID, "error", err)
			b.send(chatID, b.failureNotice)
			return
		}
		b.send(chatID, resetNotice)
	}
}

func (b *Bot) handleVoice(ctx context.Context, chatID int64, voice *tgbotapi.Voice) {
	convID := conversationID(chatID)
	log := b.logger.With(map[string]interface{}{"conversation_id": convID})

	raw, err := b.downloadVoice(ctx, voice.FileID)
	if err != nil {
		log.Error("voice download failed", "error", err)
		b.send(chatID, b.failureNotice)
		return
	}

	reply, err := b.exchanger.Run(ctx, convID, raw, voiceNoteFormat)
	if err != nil {
		// Detailed error information stays in the log; the user sees one
		// uniform failure signal. When only synthesis failed the text reply
		// is still deliverable.
		log.Error("voice exchange failed", "error", err)
		if reply.Text != "" {
			b.send(chatID, reply.Text)
			return
		}
		b.send(chatID, b.failureNotice)
		return
	}

	b.send(chatID, reply.Text)
	if _, err := b.api.Send(tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{
		Name:  "reply.mp3",
		Bytes: reply.Audio,
	})); err != nil {
		log.Error("failed to send voice reply", "error", err)
	}
}

// downloadVoice fetches the voice note payload from the Bot API file server.
func (b *Bot) downloadVoice(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch voice file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch voice file: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// conversationID renders the chat ID as the opaque conversation key used by
// the history store.
func conversationID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
