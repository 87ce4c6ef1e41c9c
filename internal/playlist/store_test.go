package playlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlaylist = `
[[tracks]]
bvid = "BV1one"
cid = "111"
title = "first"
owner = "alice"

[[tracks]]
bvid = "BV2two"
cid = "222"
title = "second"
owner = "bob"

[[tracks]]
bvid = "BV3three"
cid = "333"
title = "third"
owner = "alice"
`

func writePlaylist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playlist.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.Load(writePlaylist(t, samplePlaylist)))
	return s
}

func TestLoadParsesTracks(t *testing.T) {
	s := loadedStore(t)
	assert.Equal(t, 3, s.Len())

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, Track{Bvid: "BV1one", Cid: "111", Title: "first", Owner: "alice"}, cur)
}

func TestLoadEmptyFile(t *testing.T) {
	s := NewStore()
	err := s.Load(writePlaylist(t, ""))
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, 0, s.Len())
}

func TestLoadKeepsOldListOnFailure(t *testing.T) {
	s := loadedStore(t)

	assert.Error(t, s.Load(writePlaylist(t, "[[tracks]\nbroken")))
	assert.ErrorIs(t, s.Load(writePlaylist(t, "")), ErrEmpty)
	assert.Error(t, s.Load(filepath.Join(t.TempDir(), "missing.toml")))

	// the previously loaded list must be untouched
	assert.Equal(t, 3, s.Len())
	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "BV1one", cur.Bvid)
}

func TestCurrentEmptyStore(t *testing.T) {
	s := NewStore()
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestAdvanceLoopCyclesAllIndices(t *testing.T) {
	s := loadedStore(t)

	seen := []int{s.Cursor()}
	for i := 0; i < s.Len(); i++ {
		seen = append(seen, s.Advance(Loop))
	}
	assert.Equal(t, []int{0, 1, 2, 0}, seen)
}

func TestAdvanceLoopWrapsFromEnd(t *testing.T) {
	s := loadedStore(t)
	s.SetCursor(2)
	assert.Equal(t, 0, s.Advance(Loop))
}

func TestRetreatLoopWrapsFromStart(t *testing.T) {
	s := loadedStore(t)
	assert.Equal(t, 2, s.Retreat(Loop))
	assert.Equal(t, 1, s.Retreat(Loop))
}

func TestSingleRepeatNavigationNoops(t *testing.T) {
	s := loadedStore(t)
	s.SetCursor(1)
	assert.Equal(t, 1, s.Advance(SingleRepeat))
	assert.Equal(t, 1, s.Retreat(SingleRepeat))
	assert.Equal(t, 1, s.Cursor())
}

func TestShuffleUsesRandomIndex(t *testing.T) {
	s := loadedStore(t)
	picks := []int{2, 0, 2}
	s.randIndex = func(n int) int {
		require.Equal(t, 3, n)
		next := picks[0]
		picks = picks[1:]
		return next
	}

	assert.Equal(t, 2, s.Advance(Shuffle))
	assert.Equal(t, 0, s.Advance(Shuffle))
	// shuffle may land on the same index it already points at
	s.SetCursor(2)
	assert.Equal(t, 2, s.Retreat(Shuffle))
}

func TestNavigationOnEmptyStore(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 0, s.Advance(Loop))
	assert.Equal(t, 0, s.Retreat(Loop))
	assert.Equal(t, 0, s.Advance(Shuffle))
}

func TestFindReturnsFirstMatch(t *testing.T) {
	path := writePlaylist(t, `
[[tracks]]
bvid = "BVdup"
cid = "1"

[[tracks]]
bvid = "BVother"
cid = "2"

[[tracks]]
bvid = "BVdup"
cid = "3"
`)
	s := NewStore()
	require.NoError(t, s.Load(path))

	idx, ok := s.Find("BVdup")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = s.Find("BVmissing")
	assert.False(t, ok)
}

func TestLoadResetsStaleCursor(t *testing.T) {
	s := loadedStore(t)
	s.SetCursor(2)
	require.NoError(t, s.Load(writePlaylist(t, `
[[tracks]]
bvid = "BVonly"
cid = "9"
`)))
	assert.Equal(t, 0, s.Cursor())
	cur, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "BVonly", cur.Bvid)
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.toml")
	tracks := []Track{
		{Bvid: "BV1", Cid: "10", Title: "one", Owner: "a"},
		{Bvid: "BV2", Cid: "20"},
	}
	require.NoError(t, WriteFile(path, tracks))

	got, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, tracks, got)
}
