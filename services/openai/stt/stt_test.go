package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicerelay/core"
)

func newService(t *testing.T, handler http.HandlerFunc) *OpenAISTTService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	service, err := NewOpenAISTTService(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return service
}

func TestTranscribeReturnsText(t *testing.T) {
	service := newService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello"}`))
	})

	text, err := service.Transcribe(context.Background(), []byte("mp3-bytes"), "mp3")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestTranscribeRejectsBlankTranscript(t *testing.T) {
	service := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"   "}`))
	})

	_, err := service.Transcribe(context.Background(), []byte("mp3-bytes"), "mp3")
	require.Error(t, err)
	assert.True(t, core.IsTranscriptionError(err),
		"a blank transcript must fail rather than become an empty user turn")
}

func TestTranscribeReportsRemoteFailure(t *testing.T) {
	service := newService(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"bad audio"}}`, http.StatusBadRequest)
	})

	_, err := service.Transcribe(context.Background(), []byte("mp3-bytes"), "mp3")
	require.Error(t, err)
	assert.True(t, core.IsTranscriptionError(err))
}

func TestNewOpenAISTTServiceRequiresKey(t *testing.T) {
	_, err := NewOpenAISTTService(Config{})
	assert.Error(t, err)
}
