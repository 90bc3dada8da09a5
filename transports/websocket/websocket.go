// Package websocket is a development transport: a client speaks a small
// framed protocol (JSON control frames, binary audio frames) to exercise the
// turn pipeline without a messaging platform in front.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"voicerelay/core"
)

// Frame is a JSON control frame. A "voice" frame announces a binary audio
// frame to follow; "reset" clears the conversation; outbound "text" carries
// the reply, "audio" announces the binary reply frame, "error" the uniform
// failure notice.
type Frame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Format         string `json:"format,omitempty"`
	Data           string `json:"data,omitempty"`
	Size           int    `json:"size,omitempty"`
}

// Config holds the configuration for the WebSocket transport.
type Config struct {
	// VoiceFormat is assumed for binary voice frames whose header did not
	// name one. Defaults to "wav".
	VoiceFormat string

	// FailureNotice is the single user-visible failure signal.
	FailureNotice string
}

// Server implements the transport over gorilla/websocket connections.
type Server struct {
	exchanger     core.VoiceExchanger
	history       core.History
	logger        *core.Logger
	upgrader      websocket.Upgrader
	voiceFormat   string
	failureNotice string
}

// NewServer creates the transport.
func NewServer(config Config, exchanger core.VoiceExchanger, history core.History, logger *core.Logger) *Server {
	if config.VoiceFormat == "" {
		config.VoiceFormat = "wav"
	}
	if config.FailureNotice == "" {
		config.FailureNotice = "Sorry, an error occurred."
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Server{
		exchanger:     exchanger,
		history:       history,
		logger:        logger.With(map[string]interface{}{"transport": "websocket"}),
		upgrader:      websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		voiceFormat:   config.VoiceFormat,
		failureNotice: config.FailureNotice,
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	s.serveConn(r.Context(), conn)
}

// serveConn runs the read loop. A voice header stays pending until its binary
// frame arrives; the pair is then run through the pipeline.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) {
	var writeMu sync.Mutex // protects writes
	var pending *Frame

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("connection closed", "error", err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			var frame Frame
			if err := sonic.Unmarshal(payload, &frame); err != nil {
				s.writeError(conn, &writeMu, "malformed control frame")
				continue
			}
			switch frame.Type {
			case "voice":
				if frame.ConversationID == "" {
					s.writeError(conn, &writeMu, "voice frame requires a conversation_id")
					continue
				}
				pending = &frame
			case "reset":
				s.handleReset(ctx, conn, &writeMu, frame.ConversationID)
			default:
				s.writeError(conn, &writeMu, fmt.Sprintf("unknown frame type %q", frame.Type))
			}

		case websocket.BinaryMessage:
			if pending == nil {
				s.writeError(conn, &writeMu, "binary frame without a voice header")
				continue
			}
			header := *pending
			pending = nil
			s.handleVoice(ctx, conn, &writeMu, header, payload)
		}
	}
}

func (s *Server) handleVoice(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex, header Frame, voice []byte) {
	format := header.Format
	if format == "" {
		format = s.voiceFormat
	}

	reply, err := s.exchanger.Run(ctx, header.ConversationID, voice, format)
	if err != nil {
		s.logger.Error("voice exchange failed", "conversation_id", header.ConversationID, "error", err)
		if reply.Text == "" {
			s.writeError(conn, writeMu, s.failureNotice)
			return
		}
		// Synthesis failed after a committed exchange; the text still goes out.
	}

	s.writeFrame(conn, writeMu, Frame{Type: "text", Data: reply.Text})
	if len(reply.Audio) > 0 {
		writeMu.Lock()
		defer writeMu.Unlock()
		head, _ := sonic.Marshal(Frame{Type: "audio", Format: "mp3", Size: len(reply.Audio)})
		if err := conn.WriteMessage(websocket.TextMessage, head); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, reply.Audio)
	}
}

func (s *Server) handleReset(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex, conversationID string) {
	if conversationID == "" {
		s.writeError(conn, writeMu, "reset frame requires a conversation_id")
		return
	}
	if err := s.history.Reset(ctx, conversationID); err != nil {
		s.logger.Error("reset failed", "conversation_id", conversationID, "error", err)
		s.writeError(conn, writeMu, s.failureNotice)
		return
	}
	s.writeFrame(conn, writeMu, Frame{Type: "text", Data: "Your chat history has been reset."})
}

func (s *Server) writeFrame(conn *websocket.Conn, writeMu *sync.Mutex, frame Frame) {
	writeMu.Lock()
	defer writeMu.Unlock()
	payload, err := sonic.Marshal(frame)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.Debug("write failed", "error", err)
	}
}

func (s *Server) writeError(conn *websocket.Conn, writeMu *sync.Mutex, message string) {
	s.writeFrame(conn, writeMu, Frame{Type: "error", Data: message})
}
