package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	id := ID()
	assert.True(t, IsValidID(id))
	assert.NotEqual(t, id, ID())
	assert.False(t, IsValidID("meeting-1"))
}

func TestNickname(t *testing.T) {
	name, err := Nickname()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "Rabbit_"))
	assert.Len(t, name, len("Rabbit_")+nicknameSuffixLength)
}

func TestShuffleIsPermutationAndCopies(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e"}
	out := Shuffle(in)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, in, "input must not be reordered")
	assert.ElementsMatch(t, in, out)
	assert.Empty(t, Shuffle(nil))
}
