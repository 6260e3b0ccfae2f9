package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytes_Text(t *testing.T) {
	text, err := FromBytes("notes.TXT", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	text, err = FromBytes("readme.md", []byte("# Title"))
	require.NoError(t, err)
	assert.Equal(t, "# Title", text)
}

func TestFromBytes_Errors(t *testing.T) {
	_, err := FromBytes("empty.txt", []byte("  \n "))
	assert.ErrorIs(t, err, ErrNoText)

	_, err = FromBytes("image.png", []byte{0x89})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = FromBytes("broken.pdf", []byte("not a pdf"))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("file body"), 0o644))

	text, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file body", text)

	_, err = FromFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
