package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768, 42}

	data, err := EncodeWAV(samples, 8000)
	require.NoError(t, err)
	assert.Len(t, data, 44+len(samples)*2)

	decoded, rate, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, 8000, rate)
	assert.Equal(t, samples, decoded)
}

func TestEncodeWAVRejectsBadInput(t *testing.T) {
	_, err := EncodeWAV(nil, 8000)
	assert.Error(t, err)

	_, err = EncodeWAV([]int16{1, 2, 3}, 0)
	assert.Error(t, err)
}

func TestDecodeWAVRejectsBadInput(t *testing.T) {
	_, _, err := DecodeWAV([]byte("short"))
	assert.Error(t, err)

	notWAV := make([]byte, 64)
	copy(notWAV, "OggS")
	_, _, err = DecodeWAV(notWAV)
	assert.Error(t, err)
}
