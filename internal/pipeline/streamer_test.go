package pipeline

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamerFor(src io.Reader) *pcmStreamer {
	return &pcmStreamer{
		r:   bufio.NewReaderSize(src, 128*1024),
		buf: make([]byte, 2048*bytesPerSample),
	}
}

func s16le(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestStreamConvertsSamples(t *testing.T) {
	// two stereo frames: (max, min) and (0, half)
	src := s16le(32767, -32768, 0, 16384)
	ps := streamerFor(bytes.NewReader(src))

	out := make([][2]float64, 2)
	n, ok := ps.Stream(out)
	require.True(t, ok)
	require.Equal(t, 2, n)

	assert.InDelta(t, 32767.0/32768, out[0][0], 1e-9)
	assert.InDelta(t, -1.0, out[0][1], 1e-9)
	assert.InDelta(t, 0.0, out[1][0], 1e-9)
	assert.InDelta(t, 0.5, out[1][1], 1e-9)
	assert.NoError(t, ps.Err())
}

func TestStreamDiscardsTrailingPartialFrame(t *testing.T) {
	src := append(s16le(100, 200), 0x01) // one frame plus a stray byte
	ps := streamerFor(bytes.NewReader(src))

	out := make([][2]float64, 4)
	n, ok := ps.Stream(out)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = ps.Stream(out)
	assert.False(t, ok)
	assert.NoError(t, ps.Err())
}

func TestStreamCleanEOFIsNotAnError(t *testing.T) {
	ps := streamerFor(bytes.NewReader(nil))

	out := make([][2]float64, 4)
	n, ok := ps.Stream(out)
	assert.False(t, ok)
	assert.Equal(t, 0, n)
	assert.NoError(t, ps.Err())

	// the streamer stays drained
	_, ok = ps.Stream(out)
	assert.False(t, ok)
}

func TestStreamSurfacesSourceFailure(t *testing.T) {
	srcErr := errors.New("connection reset")
	pr, pw := io.Pipe()
	go func() {
		pw.Write(s16le(1, 2))
		pw.CloseWithError(srcErr)
	}()
	ps := streamerFor(pr)

	out := make([][2]float64, 4)
	for {
		if _, ok := ps.Stream(out); !ok {
			break
		}
	}
	assert.ErrorIs(t, ps.Err(), srcErr)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Null", StateNull.String())
	assert.Equal(t, "Ready", StateReady.String())
	assert.Equal(t, "Playing", StatePlaying.String())
	assert.Equal(t, "Paused", StatePaused.String())
}
