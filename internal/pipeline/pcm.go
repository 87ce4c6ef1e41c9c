package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/asticode/go-astiav"

	"github.com/huahuadeliaoliao/RoseSong/internal/bilibili"
)

// pcmStream demuxes and decodes one remote audio stream to raw s16le stereo
// 48k PCM, readable from Reader(). It lives for a single playback attempt.
type pcmStream struct {
	cancel context.CancelFunc
	pr     *io.PipeReader

	closeOnce sync.Once

	errMu  sync.Mutex
	runErr error
}

const (
	targetRate = 48000
)

// newPCMStream opens inputURL with the spoofed request headers the CDN
// expects and starts the background decode loop. Errors after this point
// surface through Err() and the pipe.
func newPCMStream(ctx context.Context, inputURL string) (*pcmStream, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("alloc format context")
	}

	dict := astiav.NewDictionary()
	defer dict.Free()
	_ = dict.Set("user_agent", bilibili.UserAgent, 0)
	_ = dict.Set("headers", "Referer: "+bilibili.Referer+"\r\n", 0)
	_ = dict.Set("reconnect", "1", 0)
	_ = dict.Set("reconnect_streamed", "1", 0)
	_ = dict.Set("reconnect_delay_max", "5", 0)

	if err := fc.OpenInput(inputURL, nil, dict); err != nil {
		fc.Free()
		return nil, fmt.Errorf("open input: %w", err)
	}

	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("find stream info: %w", err)
	}

	st, codec, err := fc.FindBestStream(astiav.MediaTypeAudio, -1, -1)
	if err != nil || st == nil || codec == nil {
		fc.CloseInput()
		fc.Free()
		if err != nil {
			return nil, fmt.Errorf("find best audio stream: %w", err)
		}
		return nil, errors.New("no audio stream found")
	}

	decCtx := astiav.AllocCodecContext(codec)
	if decCtx == nil {
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("alloc codec context")
	}
	if err := decCtx.FromCodecParameters(st.CodecParameters()); err != nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("codec from params: %w", err)
	}
	decCtx.SetTimeBase(st.TimeBase())

	if err := decCtx.Open(codec, nil); err != nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("open decoder: %w", err)
	}

	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("alloc swr")
	}

	srcFrame := astiav.AllocFrame()
	dstFrame := astiav.AllocFrame()
	if srcFrame == nil || dstFrame == nil {
		if srcFrame != nil {
			srcFrame.Free()
		}
		if dstFrame != nil {
			dstFrame.Free()
		}
		swr.Free()
		decCtx.Free()
		fc.CloseInput()
		fc.Free()
		return nil, errors.New("alloc frames")
	}

	pr, pw := io.Pipe()
	ctx2, cancel := context.WithCancel(ctx)

	s := &pcmStream{cancel: cancel, pr: pr}
	d := &decodeLoop{
		stream: s,
		fc:     fc,
		st:     st,
		decCtx: decCtx,
		swr:    swr,
		src:    srcFrame,
		dst:    dstFrame,
		pw:     pw,
	}
	go d.run(ctx2)

	return s, nil
}

// Reader yields the decoded PCM. It reports io.EOF on a clean end of
// stream and the decode error otherwise.
func (s *pcmStream) Reader() io.Reader { return s.pr }

// Err returns the terminal decode error, nil for a clean end of stream.
func (s *pcmStream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.runErr
}

// Close cancels the decode loop and releases any reader blocked on the
// pipe. Safe to call more than once; the loop frees its own resources.
func (s *pcmStream) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.pr.Close()
	})
}

func (s *pcmStream) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.runErr == nil {
		s.runErr = err
	}
}

// decodeLoop owns the libav objects; they are allocated before the loop
// starts and freed only when it exits, so Close never races the decoder.
type decodeLoop struct {
	stream *pcmStream
	fc     *astiav.FormatContext
	st     *astiav.Stream
	decCtx *astiav.CodecContext
	swr    *astiav.SoftwareResampleContext
	src    *astiav.Frame
	dst    *astiav.Frame
	pw     *io.PipeWriter
}

func (d *decodeLoop) free() {
	d.src.Free()
	d.dst.Free()
	d.swr.Free()
	d.decCtx.Free()
	d.fc.CloseInput()
	d.fc.Free()
}

func (d *decodeLoop) run(ctx context.Context) {
	defer d.free()

	err := d.loop(ctx)
	switch {
	case err == nil:
		_ = d.pw.Close() // clean EOS; reader sees io.EOF
	case errors.Is(err, context.Canceled):
		_ = d.pw.CloseWithError(err)
	default:
		d.stream.setErr(err)
		_ = d.pw.CloseWithError(err)
	}
}

func (d *decodeLoop) loop(ctx context.Context) error {
	packet := astiav.AllocPacket()
	defer packet.Free()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		packet.Unref()
		if err := d.fc.ReadFrame(packet); err != nil {
			if astErr, ok := err.(astiav.Error); ok && astErr.Is(io.EOF) {
				return d.flush()
			}
			if astErr, ok := err.(astiav.Error); ok && astErr.Is(astiav.ErrorAgain) {
				continue
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if packet.StreamIndex() != d.st.Index() {
			continue
		}

		if err := d.decCtx.SendPacket(packet); err != nil {
			if astErr, ok := err.(astiav.Error); !ok || !astErr.Is(astiav.ErrorAgain) {
				return fmt.Errorf("send packet: %w", err)
			}
		}

		if err := d.drainDecoder(); err != nil {
			return err
		}
	}
}

// flush pushes the decoder's buffered frames out after demux EOF.
func (d *decodeLoop) flush() error {
	_ = d.decCtx.SendPacket(nil)
	for {
		d.src.Unref()
		if err := d.decCtx.ReceiveFrame(d.src); err != nil {
			return nil
		}
		if err := d.convertAndWrite(); err != nil {
			return err
		}
	}
}

func (d *decodeLoop) drainDecoder() error {
	for {
		d.src.Unref()
		if err := d.decCtx.ReceiveFrame(d.src); err != nil {
			if astErr, ok := err.(astiav.Error); ok && (astErr.Is(astiav.ErrorAgain) || astErr.Is(io.EOF)) {
				return nil
			}
			return fmt.Errorf("receive frame: %w", err)
		}
		if err := d.convertAndWrite(); err != nil {
			return err
		}
	}
}

// convertAndWrite resamples one decoded frame to s16le stereo 48k and
// writes the interleaved bytes to the pipe.
func (d *decodeLoop) convertAndWrite() error {
	d.dst.Unref()
	d.dst.SetNbSamples(d.src.NbSamples())
	d.dst.SetChannelLayout(astiav.ChannelLayoutStereo)
	d.dst.SetSampleRate(targetRate)
	d.dst.SetSampleFormat(astiav.SampleFormatS16)
	if err := d.dst.AllocBuffer(0); err != nil {
		return fmt.Errorf("dst alloc buffer: %w", err)
	}

	if err := d.swr.ConvertFrame(d.src, d.dst); err != nil {
		return fmt.Errorf("swr convert: %w", err)
	}

	b, err := d.dst.Data().Bytes(0)
	if err != nil {
		return fmt.Errorf("dst bytes: %w", err)
	}
	if _, err := d.pw.Write(b); err != nil {
		return err
	}
	return nil
}
