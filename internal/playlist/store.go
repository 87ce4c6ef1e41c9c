package playlist

import (
	"math/rand/v2"
	"sync"
)

// Store owns the active playlist and the current-position cursor. Every
// navigation decision happens inside one critical section so a concurrent
// reload can never be interleaved with a read of the old list length.
type Store struct {
	mu     sync.RWMutex
	tracks []Track
	cursor int

	// randIndex picks the Shuffle target. Swapped out in tests.
	randIndex func(n int) int
}

func NewStore() *Store {
	return &Store{randIndex: rand.IntN}
}

// Load parses the playlist file and, only on full success with at least one
// track, replaces the active list wholesale. The previous list stays intact
// on any parse or read failure, and on an empty file.
func (s *Store) Load(path string) error {
	tracks, err := ParseFile(path)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return ErrEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = tracks
	if s.cursor >= len(tracks) {
		s.cursor = 0
	}
	return nil
}

// Current returns the track under the cursor.
func (s *Store) Current() (Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cursor < 0 || s.cursor >= len(s.tracks) {
		return Track{}, ErrOutOfBounds
	}
	return s.tracks[s.cursor], nil
}

// Advance moves the cursor forward according to mode and returns the new
// index. Shuffle picks uniformly over the whole list and may land on the
// same index again.
func (s *Store) Advance(mode PlayMode) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.tracks)
	if n == 0 {
		return s.cursor
	}
	switch mode {
	case Loop:
		s.cursor = (s.cursor + 1) % n
	case Shuffle:
		s.cursor = s.randIndex(n)
	case SingleRepeat:
	}
	return s.cursor
}

// Retreat moves the cursor backward according to mode and returns the new
// index.
func (s *Store) Retreat(mode PlayMode) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.tracks)
	if n == 0 {
		return s.cursor
	}
	switch mode {
	case Loop:
		if s.cursor == 0 {
			s.cursor = n - 1
		} else {
			s.cursor--
		}
	case Shuffle:
		s.cursor = s.randIndex(n)
	case SingleRepeat:
	}
	return s.cursor
}

// Find returns the index of the first track with the given bvid.
func (s *Store) Find(bvid string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, t := range s.tracks {
		if t.Bvid == bvid {
			return i, true
		}
	}
	return 0, false
}

// SetCursor overwrites the cursor unconditionally. Keeping it in range is
// the caller's job.
func (s *Store) SetCursor(index int) {
	s.mu.Lock()
	s.cursor = index
	s.mu.Unlock()
}

func (s *Store) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// Tracks returns a copy of the active list for inspection.
func (s *Store) Tracks() []Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Track, len(s.tracks))
	copy(out, s.tracks)
	return out
}
