package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaf/g711"

	"voicerelay/core"
)

func TestTranscodeRejectsEmptyPayload(t *testing.T) {
	tr := NewTranscoder(TranscoderConfig{})
	_, err := tr.Transcode(context.Background(), nil, "oga", "mp3")
	require.Error(t, err)
	assert.True(t, core.IsTranscodeError(err))
}

func TestTranscodeUlawToWAV(t *testing.T) {
	samples := []int16{0, 512, -512, 8000, -8000}
	var lpcm bytes.Buffer
	require.NoError(t, binary.Write(&lpcm, binary.LittleEndian, samples))

	tr := NewTranscoder(TranscoderConfig{})
	out, err := tr.Transcode(context.Background(), g711.EncodeUlaw(lpcm.Bytes()), "ulaw", "wav")
	require.NoError(t, err)

	decoded, rate, err := DecodeWAV(out)
	require.NoError(t, err)
	assert.Equal(t, g711SampleRate, rate)
	assert.Len(t, decoded, len(samples))
}

func TestTranscodeAlawToWAV(t *testing.T) {
	samples := []int16{100, -100, 2000, -2000}
	var lpcm bytes.Buffer
	require.NoError(t, binary.Write(&lpcm, binary.LittleEndian, samples))

	tr := NewTranscoder(TranscoderConfig{})
	out, err := tr.Transcode(context.Background(), g711.EncodeAlaw(lpcm.Bytes()), "alaw", "wav")
	require.NoError(t, err)

	_, rate, err := DecodeWAV(out)
	require.NoError(t, err)
	assert.Equal(t, g711SampleRate, rate)
}

func TestTranscodeFailureLeavesNoTempFiles(t *testing.T) {
	tempDir := t.TempDir()
	tr := NewTranscoder(TranscoderConfig{
		FFmpegPath: filepath.Join(tempDir, "no-such-binary"),
		TempDir:    tempDir,
	})

	// Several successive failing runs must not accumulate scratch files.
	for i := 0; i < 5; i++ {
		_, err := tr.Transcode(context.Background(), []byte("not real audio"), "oga", "mp3")
		require.Error(t, err)
		assert.True(t, core.IsTranscodeError(err))
	}

	assertOnlyFFmpegStub(t, tempDir, "no-such-binary")
}

func TestTranscodeSuccessLeavesNoTempFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub transcoder script requires a POSIX shell")
	}

	tempDir := t.TempDir()
	// Stands in for ffmpeg: copies the source scratch file to the target.
	stub := filepath.Join(tempDir, "fake-ffmpeg")
	script := "#!/bin/sh\ncp \"$3\" \"$4\"\n"
	require.NoError(t, os.WriteFile(stub, []byte(script), 0o755))

	tr := NewTranscoder(TranscoderConfig{FFmpegPath: stub, TempDir: tempDir})

	payload := []byte("pretend-ogg-bytes")
	out, err := tr.Transcode(context.Background(), payload, "oga", "mp3")
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	assertOnlyFFmpegStub(t, tempDir, "fake-ffmpeg")
}

// assertOnlyFFmpegStub verifies the scratch directory holds nothing beyond
// the stub binary placed there by the test.
func assertOnlyFFmpegStub(t *testing.T, dir, stubName string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Equal(t, stubName, entry.Name(), "leaked temp file: %s", entry.Name())
	}
}
