package player

import "github.com/huahuadeliaoliao/RoseSong/internal/playlist"

// Command is the closed set of playback-affecting operations. The sealed
// marker method keeps the dispatcher's type switch exhaustive at review
// time; nothing outside this package can add a variant.
type Command interface{ isCommand() }

type PlayCmd struct{}

type PauseCmd struct{}

type NextCmd struct{}

type PreviousCmd struct{}

type StopCmd struct{}

type PlayBvidCmd struct{ Bvid string }

type SetModeCmd struct{ Mode playlist.PlayMode }

type ReloadPlaylistCmd struct{}

// PlaylistEmptiedCmd tells the dispatcher the on-disk playlist was emptied
// by the editing client: stop output and treat the next reload as a fresh
// start from index 0.
type PlaylistEmptiedCmd struct{}

func (PlayCmd) isCommand()            {}
func (PauseCmd) isCommand()           {}
func (NextCmd) isCommand()            {}
func (PreviousCmd) isCommand()        {}
func (StopCmd) isCommand()            {}
func (PlayBvidCmd) isCommand()        {}
func (SetModeCmd) isCommand()         {}
func (ReloadPlaylistCmd) isCommand()  {}
func (PlaylistEmptiedCmd) isCommand() {}
