package pipeline

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

const bytesPerSample = 4 // s16le stereo

// pcmStreamer adapts the raw s16le PCM feed to the speaker's sample
// interface. It drains whole samples only; a trailing partial frame at the
// end of the stream is discarded.
type pcmStreamer struct {
	r   *bufio.Reader
	buf []byte
	err error
}

func newPCMStreamer(src *pcmStream) *pcmStreamer {
	return &pcmStreamer{
		r:   bufio.NewReaderSize(src.Reader(), 128*1024),
		buf: make([]byte, 2048*bytesPerSample),
	}
}

func (ps *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if ps.err != nil {
		return 0, false
	}

	want := len(samples) * bytesPerSample
	if want > len(ps.buf) {
		want = len(ps.buf)
	}
	n, err := io.ReadFull(ps.r, ps.buf[:want])
	if err != nil {
		ps.err = err
	}
	n -= n % bytesPerSample

	count := n / bytesPerSample
	for i := 0; i < count; i++ {
		l := int16(binary.LittleEndian.Uint16(ps.buf[i*bytesPerSample:]))
		r := int16(binary.LittleEndian.Uint16(ps.buf[i*bytesPerSample+2:]))
		samples[i][0] = float64(l) / 32768
		samples[i][1] = float64(r) / 32768
	}
	return count, count > 0
}

// Err reports only real failures; a clean end of stream is not an error.
func (ps *pcmStreamer) Err() error {
	if errors.Is(ps.err, io.EOF) || errors.Is(ps.err, io.ErrUnexpectedEOF) {
		return nil
	}
	return ps.err
}
