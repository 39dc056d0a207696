package stores

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundtrip(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "http://localhost:8080/media")

	require.NoError(t, s.Write("1_rec.m4a", strings.NewReader("audio-bytes"), "audio/m4a"))

	exists, err := s.Exists("1_rec.m4a")
	require.NoError(t, err)
	assert.True(t, exists)

	r, size, err := s.Read("1_rec.m4a")
	require.NoError(t, err)
	defer r.Close()
	assert.EqualValues(t, len("audio-bytes"), size)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))

	assert.Equal(t, "http://localhost:8080/media/1_rec.m4a", s.PublicURL("1_rec.m4a"))

	require.NoError(t, s.Delete("1_rec.m4a"))
	exists, err = s.Exists("1_rec.m4a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStoreConfinesKeys(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir, "")

	require.NoError(t, s.Write("../escape.m4a", strings.NewReader("x"), "audio/m4a"))

	// the traversal collapses inside the base directory
	exists, err := s.Exists("escape.m4a")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStoreReadMissing(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "")
	_, _, err := s.Read("nope.m4a")
	assert.Error(t, err)
}
