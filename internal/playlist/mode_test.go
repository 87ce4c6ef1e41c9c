package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	for _, want := range []PlayMode{Loop, Shuffle, SingleRepeat} {
		got, err := ParseMode(want.String())
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMode("backwards")
	assert.Error(t, err)
}
