package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zaf/g711"

	"voicerelay/core"
)

// G.711 voice notes carry 8 kHz telephony audio.
const g711SampleRate = 8000

// TranscoderConfig holds the configuration for the Transcoder.
type TranscoderConfig struct {
	// FFmpegPath is the transcoding binary to invoke. Defaults to "ffmpeg"
	// resolved through PATH.
	FFmpegPath string

	// TempDir receives the per-invocation scratch files. Defaults to the
	// system temp directory.
	TempDir string
}

// Transcoder implements core.Transcoder. It is stateless; every invocation
// scopes its own pair of temporary files and removes both on all exit paths.
type Transcoder struct {
	ffmpegPath string
	tempDir    string
}

// NewTranscoder creates a Transcoder.
func NewTranscoder(cfg TranscoderConfig) *Transcoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Transcoder{ffmpegPath: cfg.FFmpegPath, tempDir: cfg.TempDir}
}

// Transcode converts raw from sourceFormat to targetFormat. Raw G.711
// streams ("ulaw"/"alaw") headed for WAV are decoded in process; everything
// else is delegated to ffmpeg through two ephemeral files.
func (t *Transcoder) Transcode(ctx context.Context, raw []byte, sourceFormat, targetFormat string) ([]byte, error) {
	if len(raw) == 0 {
		return nil, &core.TranscodeError{
			SourceFormat: sourceFormat,
			TargetFormat: targetFormat,
			Err:          fmt.Errorf("empty audio payload"),
		}
	}

	if targetFormat == "wav" {
		switch sourceFormat {
		case "ulaw", "pcmu":
			return t.transcodeG711(g711.DecodeUlaw(raw), sourceFormat)
		case "alaw", "pcma":
			return t.transcodeG711(g711.DecodeAlaw(raw), sourceFormat)
		}
	}

	return t.transcodeFFmpeg(ctx, raw, sourceFormat, targetFormat)
}

// transcodeG711 wraps decoded 16-bit LPCM in a WAV container.
func (t *Transcoder) transcodeG711(lpcm []byte, sourceFormat string) ([]byte, error) {
	samples := make([]int16, len(lpcm)/2)
	if err := binary.Read(bytes.NewReader(lpcm[:len(samples)*2]), binary.LittleEndian, samples); err != nil {
		return nil, &core.TranscodeError{SourceFormat: sourceFormat, TargetFormat: "wav", Err: err}
	}
	out, err := EncodeWAV(samples, g711SampleRate)
	if err != nil {
		return nil, &core.TranscodeError{SourceFormat: sourceFormat, TargetFormat: "wav", Err: err}
	}
	return out, nil
}

func (t *Transcoder) transcodeFFmpeg(ctx context.Context, raw []byte, sourceFormat, targetFormat string) ([]byte, error) {
	name := uuid.NewString()
	src := filepath.Join(t.tempDir, "voice-"+name+"."+sourceFormat)
	dst := filepath.Join(t.tempDir, "voice-"+name+"."+targetFormat)

	// Both scratch files go away on every exit path, success or failure.
	defer func() {
		_ = os.Remove(src)
		_ = os.Remove(dst)
	}()

	if err := os.WriteFile(src, raw, 0o600); err != nil {
		return nil, &core.TranscodeError{SourceFormat: sourceFormat, TargetFormat: targetFormat, Err: err}
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.ffmpegPath, "-y", "-i", src, dst)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &core.TranscodeError{
			SourceFormat: sourceFormat,
			TargetFormat: targetFormat,
			Err:          fmt.Errorf("%s: %v: %s", t.ffmpegPath, err, lastLine(stderr.Bytes())),
		}
	}

	out, err := os.ReadFile(dst)
	if err != nil {
		return nil, &core.TranscodeError{SourceFormat: sourceFormat, TargetFormat: targetFormat, Err: err}
	}
	return out, nil
}

// lastLine extracts the final non-empty line of ffmpeg's stderr, which holds
// the actual failure reason below the banner noise.
func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if line := bytes.TrimSpace(lines[i]); len(line) > 0 {
			return string(line)
		}
	}
	return ""
}
