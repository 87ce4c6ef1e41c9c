package player

import (
	"context"
	"log/slog"
	"sync"

	"github.com/huahuadeliaoliao/RoseSong/internal/pipeline"
	"github.com/huahuadeliaoliao/RoseSong/internal/playlist"
)

// Engine is the playback pipeline as the dispatcher sees it. *pipeline.Pipeline
// satisfies it; tests substitute a counter fake.
type Engine interface {
	PlayTrack(ctx context.Context, t playlist.Track) error
	SetState(s pipeline.State) error
	Bus() <-chan pipeline.Message
}

// Recorder receives successfully started tracks. Optional.
type Recorder interface {
	Record(ctx context.Context, t playlist.Track) error
}

// Player is the single consumer serializing every playback-affecting
// operation: external commands and end-of-stream auto-advance flow through
// one loop, so no two of them ever touch the engine concurrently.
type Player struct {
	store        *playlist.Store
	engine       Engine
	history      Recorder
	playlistPath string

	modeMu sync.RWMutex
	mode   playlist.PlayMode

	cmds chan Command

	// emptied marks that the playlist file was emptied; the next reload
	// replays from index 0 instead of reconciling against the old cursor.
	emptied bool

	stopOnce sync.Once
	done     chan struct{}
}

func New(store *playlist.Store, engine Engine, history Recorder, playlistPath string, mode playlist.PlayMode) *Player {
	return &Player{
		store:        store,
		engine:       engine,
		history:      history,
		playlistPath: playlistPath,
		mode:         mode,
		cmds:         make(chan Command, 8),
		done:         make(chan struct{}),
	}
}

// Enqueue hands a command to the dispatcher loop. It blocks when the
// channel is full, which is the back-pressure the control surface relies on.
func (p *Player) Enqueue(ctx context.Context, cmd Command) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return context.Canceled
	case p.cmds <- cmd:
		return nil
	}
}

// Done is closed once a Stop command has been applied.
func (p *Player) Done() <-chan struct{} { return p.done }

// Mode returns the current play mode.
func (p *Player) Mode() playlist.PlayMode {
	p.modeMu.RLock()
	defer p.modeMu.RUnlock()
	return p.mode
}

func (p *Player) setMode(m playlist.PlayMode) {
	p.modeMu.Lock()
	p.mode = m
	p.modeMu.Unlock()
	slog.Info("play mode set", "mode", m)
}

// navMode is the mode used for an explicit Next/Previous: a single-repeat
// player still moves to the neighbouring track when asked to.
func (p *Player) navMode() playlist.PlayMode {
	m := p.Mode()
	if m == playlist.SingleRepeat {
		return playlist.Loop
	}
	return m
}

// Run starts playback of the current track and then drains commands and
// pipeline events until a Stop command or context cancellation. It is the
// only goroutine that drives the engine.
func (p *Player) Run(ctx context.Context) {
	p.playCurrent(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case cmd := <-p.cmds:
			p.handle(ctx, cmd)
		case msg := <-p.engine.Bus():
			p.handleBus(ctx, msg)
		}
	}
}

func (p *Player) handle(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case PlayCmd:
		slog.Info("resume playback")
		if err := p.engine.SetState(pipeline.StatePlaying); err != nil {
			slog.Error("resume", "err", err)
		}
	case PauseCmd:
		slog.Info("pause playback")
		if err := p.engine.SetState(pipeline.StatePaused); err != nil {
			slog.Error("pause", "err", err)
		}
	case NextCmd:
		slog.Info("play next track")
		p.store.Advance(p.navMode())
		p.playCurrent(ctx)
	case PreviousCmd:
		slog.Info("play previous track")
		p.store.Retreat(p.navMode())
		p.playCurrent(ctx)
	case PlayBvidCmd:
		idx, ok := p.store.Find(c.Bvid)
		if !ok {
			slog.Error("track not in playlist", "bvid", c.Bvid)
			return
		}
		slog.Info("jump to track", "bvid", c.Bvid, "index", idx)
		p.store.SetCursor(idx)
		p.playCurrent(ctx)
	case StopCmd:
		slog.Info("stop")
		if err := p.engine.SetState(pipeline.StateNull); err != nil {
			slog.Error("stop pipeline", "err", err)
		}
		p.stopOnce.Do(func() { close(p.done) })
	case SetModeCmd:
		p.setMode(c.Mode)
	case ReloadPlaylistCmd:
		p.reload(ctx)
	case PlaylistEmptiedCmd:
		slog.Info("playlist emptied, going idle")
		if err := p.engine.SetState(pipeline.StateNull); err != nil {
			slog.Error("halt pipeline", "err", err)
		}
		p.emptied = true
	}
}

func (p *Player) handleBus(ctx context.Context, msg pipeline.Message) {
	switch msg.Kind {
	case pipeline.MessageEOS:
		slog.Info("track finished, auto-advancing")
		if mode := p.Mode(); mode != playlist.SingleRepeat {
			p.store.Advance(mode)
		}
		p.playCurrent(ctx)
	case pipeline.MessageError:
		// The engine already parked itself in Null; wait for the next
		// command rather than tearing the process down.
		slog.Error("pipeline reported error", "err", msg.Err)
	}
}

// playCurrent starts the track under the cursor. Resolution and wiring
// failures are logged and leave the dispatcher waiting for the next
// command; they never propagate further.
func (p *Player) playCurrent(ctx context.Context) {
	track, err := p.store.Current()
	if err != nil {
		slog.Error("no current track", "err", err)
		return
	}
	if err := p.engine.PlayTrack(ctx, track); err != nil {
		slog.Error("could not start track", "bvid", track.Bvid, "err", err)
		return
	}
	if p.history != nil {
		if err := p.history.Record(ctx, track); err != nil {
			slog.Warn("record play history", "bvid", track.Bvid, "err", err)
		}
	}
}

// reload re-reads the playlist file. When the track that was playing is
// still present the cursor follows it and playback continues undisturbed;
// otherwise the cursor clamps to the nearest valid index and that track is
// replayed. After a PlaylistEmptied notification the reload is a fresh
// start from the top instead.
func (p *Player) reload(ctx context.Context) {
	if p.emptied {
		p.emptied = false
		slog.Info("playlist repopulated, starting over")
		if err := p.store.Load(p.playlistPath); err != nil {
			slog.Error("reload playlist", "err", err)
			return
		}
		p.store.SetCursor(0)
		p.playCurrent(ctx)
		return
	}

	prevTrack, prevErr := p.store.Current()
	prevIdx := p.store.Cursor()

	if err := p.store.Load(p.playlistPath); err != nil {
		slog.Error("reload playlist", "err", err)
		return
	}
	if prevErr != nil {
		return
	}

	if idx, ok := p.store.Find(prevTrack.Bvid); ok {
		p.store.SetCursor(idx)
		slog.Info("current track kept after reload", "bvid", prevTrack.Bvid, "index", idx)
		return
	}

	idx := prevIdx
	if n := p.store.Len(); idx >= n {
		idx = n - 1
	}
	p.store.SetCursor(idx)
	slog.Info("current track gone after reload, replaying", "index", idx)
	p.playCurrent(ctx)
}
