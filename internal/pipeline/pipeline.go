package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/huahuadeliaoliao/RoseSong/internal/playlist"
)

// State is the pipeline lifecycle: Null -> Ready -> Playing <-> Paused,
// with Null reachable from anywhere.
type State int

const (
	StateNull State = iota
	StateReady
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "Null"
	case StateReady:
		return "Ready"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type MessageKind int

const (
	MessageEOS MessageKind = iota
	MessageError
)

// Message is an asynchronous pipeline event: end-of-stream for the current
// track, or a mid-playback decode error.
type Message struct {
	Kind MessageKind
	Err  error
}

// ErrNoStream reports a Playing/Paused transition with no wired track.
var ErrNoStream = errors.New("no stream wired into the pipeline")

// URLResolver supplies the verified playable URL for a track.
type URLResolver interface {
	Resolve(ctx context.Context, bvid, cid string) (string, error)
}

const sampleRate = beep.SampleRate(48000)

// Pipeline owns the audio output device and at most one decode session.
// Sessions are torn down and rebuilt for every track, never reused.
type Pipeline struct {
	resolver URLResolver

	mu    sync.Mutex
	state State
	sess  *session

	bus chan Message
}

type session struct {
	pcm  *pcmStream
	ctrl *beep.Ctrl
}

// NewPipeline initializes the audio output device. Failure here is fatal to
// the daemon; there is no playback without a speaker.
func NewPipeline(r URLResolver) (*Pipeline, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("init audio output: %w", err)
	}
	slog.Info("audio pipeline created")
	return &Pipeline{
		resolver: r,
		state:    StateNull,
		bus:      make(chan Message, 16),
	}, nil
}

// Bus exposes pipeline events. The channel is buffered so an end-of-stream
// emitted while the dispatcher is busy is queued, never dropped.
func (p *Pipeline) Bus() <-chan Message { return p.bus }

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// PlayTrack flushes any previous session, resolves a fresh stream URL for
// the track and wires a new decode session into the speaker. On failure the
// pipeline is left in Ready (resolution failed) or Null (wiring failed),
// never half-wired.
func (p *Pipeline) PlayTrack(ctx context.Context, t playlist.Track) error {
	p.mu.Lock()
	p.teardownLocked()
	p.state = StateReady
	p.mu.Unlock()

	// Network I/O happens outside the pipeline lock.
	url, err := p.resolver.Resolve(ctx, t.Bvid, t.Cid)
	if err != nil {
		return err
	}

	pcm, err := newPCMStream(ctx, url)
	if err != nil {
		p.mu.Lock()
		p.state = StateNull
		p.mu.Unlock()
		return fmt.Errorf("wire decode session: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateReady {
		pcm.Close()
		return fmt.Errorf("pipeline left %s while wiring", p.state)
	}

	sess := &session{
		pcm:  pcm,
		ctrl: &beep.Ctrl{Streamer: newPCMStreamer(pcm)},
	}
	p.sess = sess
	speaker.Play(beep.Seq(sess.ctrl, beep.Callback(func() {
		// The callback runs on the speaker's own thread; hop off it before
		// touching pipeline state.
		go p.sessionDrained(sess)
	})))
	p.state = StatePlaying
	slog.Info("track playing", "bvid", t.Bvid, "cid", t.Cid, "title", t.Title)
	return nil
}

// SetState performs a direct lifecycle transition without rebuilding the
// decode session.
func (p *Pipeline) SetState(target State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch target {
	case StateNull:
		p.teardownLocked()
		return nil
	case StatePlaying, StatePaused:
		if p.sess == nil {
			return ErrNoStream
		}
		speaker.Lock()
		p.sess.ctrl.Paused = target == StatePaused
		speaker.Unlock()
		p.state = target
		return nil
	default:
		return fmt.Errorf("cannot transition directly to %s", target)
	}
}

// Close releases the current session. The speaker stays initialized for the
// life of the process.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
}

// teardownLocked drops the current session. The pcm stream is closed before
// speaker.Clear so a speaker thread blocked on a network read is released
// first.
func (p *Pipeline) teardownLocked() {
	if p.sess != nil {
		p.sess.pcm.Close()
		p.sess = nil
	}
	speaker.Clear()
	p.state = StateNull
}

// sessionDrained runs once per session when the speaker has consumed it to
// the end. A session replaced by teardown is stale and ignored, so exactly
// one message reaches the bus per completed track.
func (p *Pipeline) sessionDrained(sess *session) {
	p.mu.Lock()
	if p.sess != sess {
		p.mu.Unlock()
		return
	}
	p.sess = nil
	p.state = StateNull
	p.mu.Unlock()

	err := sess.pcm.Err()
	sess.pcm.Close()

	if err != nil && !errors.Is(err, io.EOF) {
		slog.Error("pipeline decode error", "err", err)
		p.bus <- Message{Kind: MessageError, Err: err}
		return
	}
	slog.Info("end of stream")
	p.bus <- Message{Kind: MessageEOS}
}
