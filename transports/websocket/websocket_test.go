package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicerelay/core"
)

type stubExchanger struct {
	mu    sync.Mutex
	reply core.Reply
	err   error
	runs  []string // conversation ids seen
}

func (s *stubExchanger) Run(_ context.Context, conversationID string, _ []byte, _ string) (core.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, conversationID)
	return s.reply, s.err
}

type stubHistory struct {
	mu     sync.Mutex
	resets []string
}

func (s *stubHistory) Append(context.Context, string, core.Turn) error { return nil }
func (s *stubHistory) Read(context.Context, string) ([]core.Turn, error) {
	return nil, nil
}
func (s *stubHistory) Reset(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, conversationID)
	return nil
}

func dial(t *testing.T, exchanger core.VoiceExchanger, hist core.History) *websocket.Conn {
	t.Helper()
	server := NewServer(Config{}, exchanger, hist, nil)
	srv := httptest.NewServer(server)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame Frame) {
	t.Helper()
	payload, err := sonic.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	messageType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, messageType)

	var frame Frame
	require.NoError(t, sonic.Unmarshal(payload, &frame))
	return frame
}

func TestVoiceExchangeDeliversTextAndAudio(t *testing.T) {
	exchanger := &stubExchanger{reply: core.Reply{Text: "hi there", Audio: []byte("mp3-bytes")}}
	conn := dial(t, exchanger, &stubHistory{})

	sendFrame(t, conn, Frame{Type: "voice", ConversationID: "c1", Format: "wav"})
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("voice-bytes")))

	text := readFrame(t, conn)
	assert.Equal(t, "text", text.Type)
	assert.Equal(t, "hi there", text.Data)

	head := readFrame(t, conn)
	assert.Equal(t, "audio", head.Type)
	assert.Equal(t, len("mp3-bytes"), head.Size)

	messageType, audio, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, messageType)
	assert.Equal(t, []byte("mp3-bytes"), audio)

	assert.Equal(t, []string{"c1"}, exchanger.runs)
}

func TestVoiceExchangeSynthesisFailureStillDeliversText(t *testing.T) {
	exchanger := &stubExchanger{
		reply: core.Reply{Text: "hi there"},
		err:   &core.SynthesisError{},
	}
	hist := &stubHistory{}
	conn := dial(t, exchanger, hist)

	sendFrame(t, conn, Frame{Type: "voice", ConversationID: "c1"})
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("voice-bytes")))

	text := readFrame(t, conn)
	assert.Equal(t, "text", text.Type)
	assert.Equal(t, "hi there", text.Data)

	// No audio frame follows: the next reply on the wire answers the reset.
	sendFrame(t, conn, Frame{Type: "reset", ConversationID: "c1"})
	ack := readFrame(t, conn)
	assert.Equal(t, "text", ack.Type)
	assert.Equal(t, []string{"c1"}, hist.resets)
}

func TestVoiceExchangeFailureSendsUniformNotice(t *testing.T) {
	exchanger := &stubExchanger{err: &core.CompletionError{}}
	conn := dial(t, exchanger, &stubHistory{})

	sendFrame(t, conn, Frame{Type: "voice", ConversationID: "c1"})
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("voice-bytes")))

	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, "Sorry, an error occurred.", frame.Data)
}

func TestBinaryFrameWithoutHeaderIsRejected(t *testing.T) {
	conn := dial(t, &stubExchanger{}, &stubHistory{})

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("orphan")))
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
}

func TestVoiceFrameRequiresConversationID(t *testing.T) {
	conn := dial(t, &stubExchanger{}, &stubHistory{})

	sendFrame(t, conn, Frame{Type: "voice"})
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame.Type)
}
